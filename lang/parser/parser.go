// Package parser implements the push-model recursive-descent parser that
// turns a token stream into a command tree (spec.md §4.2).
package parser

import (
	"github.com/mna/bktk/lang/ast"
	"github.com/mna/bktk/lang/diag"
	"github.com/mna/bktk/lang/token"
)

// cmdState tracks progress within the command currently being accumulated,
// independent of the group-nesting stack.
type cmdState uint8

const (
	atBoundary cmdState = iota // between commands: next token starts a new one (or a group/comment)
	haveArg                    // at least one argument token consumed, may see ArgSep or a terminator
	afterSep                   // just consumed ':', next token must be an argument-bearing token
)

// Parser consumes a token stream (delivered via Feed, push-model, to match
// the tokenizer) and builds an *ast.Node tree.
type Parser struct {
	arena ast.Arena

	groupStack []*ast.Node // stack[0] is always the synthetic root
	cmd        cmdState

	pendingName string
	pendingArgs []ast.Arg
	pendingOff  token.Position

	diags    diag.List
	errored  bool
	finished bool
}

// New returns a ready-to-use Parser.
func New() *Parser {
	p := &Parser{}
	p.groupStack = []*ast.Node{ast.NewRoot()}
	return p
}

// Err returns the accumulated parse diagnostics, or nil if parsing has not
// failed.
func (p *Parser) Err() error { return p.diags.Err() }

// Root returns the synthetic root node. It is only meaningful to call this
// after Finish, and only if Err() is nil.
func (p *Parser) Root() *ast.Node { return p.groupStack[0] }

func (p *Parser) error(kind diag.Kind, pos token.Position, format string, args ...any) {
	p.diags.Add(kind, pos, format, args...)
	p.errored = true
}

// Feed pushes a batch of tokens (as delivered by the tokenizer's emit
// callback) into the parser. It returns a non-nil error once the parser has
// entered its error state; further tokens are rejected without further
// processing, matching spec.md §4.2 ("the parser enters Error and rejects
// further tokens").
func (p *Parser) Feed(toks []token.Token) error {
	if p.errored {
		return p.diags.Err()
	}
	for _, tok := range toks {
		p.feedOne(tok)
		if p.errored {
			return p.diags.Err()
		}
	}
	return nil
}

// Finish signals end of input. It finalizes any pending command, checks for
// unbalanced groups, and returns the parsed tree's root (see Root) along
// with any accumulated error.
func (p *Parser) Finish() (*ast.Node, error) {
	if p.errored {
		return nil, p.diags.Err()
	}
	if !p.finished {
		p.feedOne(token.Token{Type: token.End})
	}
	if p.errored {
		return nil, p.diags.Err()
	}
	return p.Root(), nil
}

func (p *Parser) top() *ast.Node { return p.groupStack[len(p.groupStack)-1] }

func (p *Parser) feedOne(tok token.Token) {
	switch tok.Type {
	case token.Space:
		return // whitespace never affects parser state
	case token.Comment:
		p.feedComment(tok)
		return
	}

	switch p.cmd {
	case atBoundary:
		p.feedAtBoundary(tok)
	case haveArg:
		p.feedHaveArg(tok)
	case afterSep:
		p.feedAfterSep(tok)
	}
}

func (p *Parser) feedComment(tok token.Token) {
	switch p.cmd {
	case haveArg:
		// a comment after a command's last argument ends the command, as a
		// line break would.
		p.finalizeCommand()
	case afterSep:
		p.error(diag.Syntactic, tok.Pos, "expected argument after ':', found %s", tok.Type)
		return
	}
	node := &ast.Node{
		Name:   p.arena.Intern(tok.Value),
		Type:   token.Comment,
		Offset: tok.Pos,
	}
	p.top().Append(node)
}

func (p *Parser) feedAtBoundary(tok token.Token) {
	switch tok.Type {
	case token.Arg, token.String, token.Data:
		p.pendingName = p.arena.Intern(tok.Value)
		p.pendingArgs = []ast.Arg{{Value: p.pendingName, Type: tok.Type, Offset: tok.Pos}}
		p.pendingOff = tok.Pos
		p.cmd = haveArg

	case token.GrpOpen:
		p.groupStack = append(p.groupStack, &ast.Node{Type: token.GrpOpen, IsGroup: true, Offset: tok.Pos})

	case token.GrpClose:
		p.closeGroup(tok)

	case token.CmdSep, token.LineBreak:
		// empty statement, ignore.

	case token.End:
		if len(p.groupStack) > 1 {
			p.error(diag.Syntactic, tok.Pos, "unbalanced group: missing ']'")
			return
		}
		p.finished = true

	default:
		p.error(diag.Syntactic, tok.Pos, "unexpected token %s", tok.Type)
	}
}

func (p *Parser) feedHaveArg(tok token.Token) {
	switch tok.Type {
	case token.ArgSep:
		p.cmd = afterSep

	case token.CmdSep, token.LineBreak:
		p.finalizeCommand()

	case token.End:
		p.finalizeCommand()
		if len(p.groupStack) > 1 {
			p.error(diag.Syntactic, tok.Pos, "unbalanced group: missing ']'")
			return
		}
		p.finished = true

	case token.GrpClose:
		// a command is always terminated before a group can close; treat the
		// missing separator as an implicit terminator (matches the original
		// tokenizer's leniency around trailing separators before ']').
		p.finalizeCommand()
		p.closeGroup(tok)

	default:
		p.error(diag.Syntactic, tok.Pos, "expected ':' or ';', found %s", tok.Type)
	}
}

func (p *Parser) feedAfterSep(tok token.Token) {
	switch tok.Type {
	case token.Arg, token.String, token.Data:
		p.pendingArgs = append(p.pendingArgs, ast.Arg{Value: p.arena.Intern(tok.Value), Type: tok.Type, Offset: tok.Pos})
		p.cmd = haveArg

	case token.End:
		p.error(diag.Syntactic, tok.Pos, "expected argument after ':', found end of input")

	default:
		p.error(diag.Syntactic, tok.Pos, "expected argument after ':', found %s", tok.Type)
	}
}

func (p *Parser) finalizeCommand() {
	node := &ast.Node{
		Name:   p.pendingName,
		Args:   p.pendingArgs,
		Type:   token.Arg,
		Offset: p.pendingOff,
	}
	p.top().Append(node)
	p.pendingName = ""
	p.pendingArgs = nil
	p.cmd = atBoundary
}

func (p *Parser) closeGroup(tok token.Token) {
	if len(p.groupStack) <= 1 {
		p.error(diag.Syntactic, tok.Pos, "unbalanced group: unexpected ']'")
		return
	}
	group := p.groupStack[len(p.groupStack)-1]
	p.groupStack = p.groupStack[:len(p.groupStack)-1]

	head := group.SubNode
	if head == nil || head.IsGroup {
		p.error(diag.Syntactic, group.Offset, "group has no head command")
		return
	}
	group.Name = head.Name
	group.Args = head.Args
	group.Offset = head.Offset
	group.SubNode = head.NextNode

	p.top().Append(group)
}
