package writer_test

import (
	"testing"

	"github.com/mna/bktk/lang/ast"
	"github.com/mna/bktk/lang/parser"
	"github.com/mna/bktk/lang/token"
	"github.com/mna/bktk/lang/tokenizer"
	"github.com/mna/bktk/lang/writer"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, src string) *ast.Node {
	t.Helper()
	tz := tokenizer.New()
	p := parser.New()
	emit := func(batch []token.Token) error { return p.Feed(batch) }
	require.NoError(t, tz.PutChars([]byte(src), emit))
	require.NoError(t, tz.Close(emit))
	root, err := p.Finish()
	require.NoError(t, err)
	return root
}

// roundTrip parses src, writes it back out, reparses the result, and
// returns both trees for isomorphism comparison.
func roundTrip(t *testing.T, src string) (first, second *ast.Node, written string) {
	t.Helper()
	first = mustParse(t, src)
	written, err := writer.String(first)
	require.NoError(t, err)
	second = mustParse(t, written)
	return first, second, written
}

func sameShape(t *testing.T, a, b *ast.Node) {
	t.Helper()
	require.Equal(t, a.Type, b.Type)
	require.Equal(t, a.IsGroup, b.IsGroup)
	require.Equal(t, a.Name, b.Name)
	require.Len(t, b.Args, len(a.Args))
	for i := range a.Args {
		require.Equal(t, a.Args[i].Value, b.Args[i].Value)
		require.Equal(t, a.Args[i].Type, b.Args[i].Type)
	}
	ac, bc := a.Children(), b.Children()
	require.Len(t, bc, len(ac))
	for i := range ac {
		sameShape(t, ac[i], bc[i])
	}
}

func TestRoundTripFlatCommands(t *testing.T) {
	a, b, _ := roundTrip(t, "v:128;a:c4;s:4;r")
	sameShape(t, a, b)
}

func TestRoundTripGroup(t *testing.T) {
	a, b, _ := roundTrip(t, "[instr:vol;v:0:1:255:0:0]")
	sameShape(t, a, b)
}

func TestRoundTripNestedGroups(t *testing.T) {
	a, b, _ := roundTrip(t, "[track:0;[grp:0;a:c4]]")
	sameShape(t, a, b)
}

func TestRoundTripStringEscapes(t *testing.T) {
	a, b, written := roundTrip(t, `d:"kick\n\x01"`)
	sameShape(t, a, b)
	require.Contains(t, written, `\n`)
}

func TestRoundTripDataLiteral(t *testing.T) {
	a, b, written := roundTrip(t, `samp:0:!"aGVsbG8="`)
	sameShape(t, a, b)
	require.Contains(t, written, `!"`)
}

func TestRoundTripComment(t *testing.T) {
	a, b, _ := roundTrip(t, "v:1 %a comment\nr")
	sameShape(t, a, b)
}
