// Package ast defines the parsed command tree produced by the parser: a
// ParserNode forest where NextNode chains commands within a scope and
// SubNode descends into a group's children (spec.md §3).
package ast

import (
	"fmt"
	"strings"

	"github.com/mna/bktk/lang/token"
)

// Arg is a single argument of a command, or the base64/string payload of a
// comment node.
type Arg struct {
	Value  string
	Type   token.Type // token.Arg, token.String, or token.Data
	Offset token.Position
}

// Node is a single command or group in the parsed tree. The root of a parse
// is a synthetic group Node of Type == token.GrpOpen holding the top-level
// commands as its SubNode chain.
type Node struct {
	Name   string // the command name, i.e. Args[0].Value for convenience
	Args   []Arg
	Type   token.Type // token.Arg (command), token.GrpOpen (group), or token.Comment
	Offset token.Position

	IsGroup bool

	// SubNode is the first child of a group; NextNode chains siblings within
	// the same scope (command list).
	SubNode  *Node
	NextNode *Node
}

// NewRoot returns a fresh synthetic root group node, the entry point of a
// parsed chunk.
func NewRoot() *Node {
	return &Node{Type: token.GrpOpen, IsGroup: true}
}

// Append adds child as the last sibling in n's SubNode chain and returns
// child, for convenient chaining while building a tree.
func (n *Node) Append(child *Node) *Node {
	if n.SubNode == nil {
		n.SubNode = child
		return child
	}
	last := n.SubNode
	for last.NextNode != nil {
		last = last.NextNode
	}
	last.NextNode = child
	return child
}

// Children returns the node's SubNode chain as a slice, for callers that
// prefer iteration over manual chain-walking.
func (n *Node) Children() []*Node {
	var out []*Node
	for c := n.SubNode; c != nil; c = c.NextNode {
		out = append(out, c)
	}
	return out
}

// HeadArgs returns the string values of the node's arguments, skipping the
// command name itself (Args[0]).
func (n *Node) HeadArgs() []string {
	if len(n.Args) <= 1 {
		return nil
	}
	out := make([]string, len(n.Args)-1)
	for i, a := range n.Args[1:] {
		out[i] = a.Value
	}
	return out
}

func (n *Node) String() string {
	var sb strings.Builder
	n.write(&sb, 0)
	return sb.String()
}

func (n *Node) write(sb *strings.Builder, depth int) {
	indent := strings.Repeat("  ", depth)
	if n.IsGroup {
		fmt.Fprintf(sb, "%s[%s", indent, n.Name)
	} else {
		fmt.Fprintf(sb, "%s%s", indent, n.Name)
	}
	for _, a := range n.Args[min(1, len(n.Args)):] {
		fmt.Fprintf(sb, ":%s", a.Value)
	}
	if n.IsGroup {
		sb.WriteString("\n")
		for c := n.SubNode; c != nil; c = c.NextNode {
			c.write(sb, depth+1)
		}
		fmt.Fprintf(sb, "%s]\n", indent)
	} else {
		sb.WriteString("\n")
	}
}
