// Package writer serializes a parsed command tree back into score text,
// porting parser/BKTKWriter.c's round-trip writer (spec.md §8: "a parsed
// tree, written back with a writer that escapes strings, retokenized and
// reparsed produces an isomorphic tree").
package writer

import (
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/mna/bktk/lang/ast"
	"github.com/mna/bktk/lang/token"
)

// Write serializes root (as returned by parser.Parser.Finish) to w. It does
// not write the synthetic root node itself, only its children.
func Write(w io.Writer, root *ast.Node) error {
	sw := &stringsWriter{w: w}
	for c := root.SubNode; c != nil; c = c.NextNode {
		writeNode(sw, c)
		if sw.err != nil {
			return sw.err
		}
	}
	return sw.err
}

// String is a convenience wrapper around Write for tests and callers that
// just want the resulting text.
func String(root *ast.Node) (string, error) {
	var sb strings.Builder
	if err := Write(&sb, root); err != nil {
		return "", err
	}
	return sb.String(), nil
}

type stringsWriter struct {
	w   io.Writer
	err error
}

func (sw *stringsWriter) writeString(s string) {
	if sw.err != nil {
		return
	}
	_, sw.err = io.WriteString(sw.w, s)
}

func writeNode(sw *stringsWriter, n *ast.Node) {
	switch {
	case n.Type == token.Comment:
		sw.writeString(n.Name)
		sw.writeString("\n")
	case n.IsGroup:
		writeGroup(sw, n)
	default:
		writeCommand(sw, n)
		sw.writeString(";")
	}
}

func writeGroup(sw *stringsWriter, n *ast.Node) {
	sw.writeString("[")
	writeCommand(sw, n)
	sw.writeString(";")
	for c := n.SubNode; c != nil; c = c.NextNode {
		writeNode(sw, c)
	}
	sw.writeString("]")
}

// writeCommand writes just "name:arg1:arg2..." with no trailing separator.
func writeCommand(sw *stringsWriter, n *ast.Node) {
	sw.writeString(writeArg(n.Name, headArgType(n)))
	for _, a := range n.Args[min(1, len(n.Args)):] {
		sw.writeString(":")
		sw.writeString(writeArg(a.Value, a.Type))
	}
}

// headArgType returns the token type the node's own name was captured with,
// falling back to token.Arg (plain text) for synthetic/promoted nodes whose
// Args slice may be empty.
func headArgType(n *ast.Node) token.Type {
	if len(n.Args) == 0 {
		return token.Arg
	}
	return n.Args[0].Type
}

func writeArg(value string, typ token.Type) string {
	switch typ {
	case token.String:
		return quoteString(value)
	case token.Data:
		return `!"` + base64.StdEncoding.EncodeToString([]byte(value)) + `"`
	default:
		// Arg-typed values contain no separator or whitespace characters and
		// do not start with a quote; writing them back raw preserves their
		// token.Arg type on reparse.
		return value
	}
}

func quoteString(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\a':
			sb.WriteString(`\a`)
		case '\b':
			sb.WriteString(`\b`)
		case '\f':
			sb.WriteString(`\f`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		case '\v':
			sb.WriteString(`\v`)
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		default:
			if c < 0x20 || c >= 0x7f {
				fmt.Fprintf(&sb, `\x%02X`, c)
			} else {
				sb.WriteByte(c)
			}
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
