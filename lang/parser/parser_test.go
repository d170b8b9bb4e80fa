package parser_test

import (
	"testing"

	"github.com/mna/bktk/lang/parser"
	"github.com/mna/bktk/lang/token"
	"github.com/mna/bktk/lang/tokenizer"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, src string) *parser.Parser {
	t.Helper()
	tz := tokenizer.New()
	p := parser.New()
	emit := func(batch []token.Token) error { return p.Feed(batch) }
	// An error returned through emit is the parser's own diagnostic; the
	// tests check it through Finish.
	if err := tz.PutChars([]byte(src), emit); err != nil {
		require.Same(t, p.Err(), err)
	}
	if err := tz.Close(emit); err != nil {
		require.Same(t, p.Err(), err)
	}
	return p
}

func TestParseFlatCommandChain(t *testing.T) {
	p := parse(t, "v:128;a:c4;s:4;r")
	root, err := p.Finish()
	require.NoError(t, err)

	children := root.Children()
	require.Len(t, children, 4)

	require.Equal(t, "v", children[0].Name)
	require.Equal(t, []string{"128"}, children[0].HeadArgs())

	require.Equal(t, "r", children[3].Name)
	require.Empty(t, children[3].HeadArgs())
}

func TestParseGroupPromotesHeadCommand(t *testing.T) {
	p := parse(t, "[instr:vol;v:0:1:255:0:0]")
	root, err := p.Finish()
	require.NoError(t, err)

	children := root.Children()
	require.Len(t, children, 1)

	group := children[0]
	require.True(t, group.IsGroup)
	require.Equal(t, "instr", group.Name)
	require.Equal(t, []string{"vol"}, group.HeadArgs())

	sub := group.Children()
	require.Len(t, sub, 1)
	require.Equal(t, "v", sub[0].Name)
	require.Equal(t, []string{"0", "1", "255", "0", "0"}, sub[0].HeadArgs())
}

func TestParseNestedGroups(t *testing.T) {
	p := parse(t, "[track:0;[grp:0;a:c4]]")
	root, err := p.Finish()
	require.NoError(t, err)

	top := root.Children()
	require.Len(t, top, 1)

	track := top[0]
	require.Equal(t, "track", track.Name)

	sub := track.Children()
	require.Len(t, sub, 1)
	grp := sub[0]
	require.True(t, grp.IsGroup)
	require.Equal(t, "grp", grp.Name)
	require.Equal(t, []string{"0"}, grp.HeadArgs())

	grpChildren := grp.Children()
	require.Len(t, grpChildren, 1)
	require.Equal(t, "a", grpChildren[0].Name)
}

func TestParseUnbalancedGroupMissingClose(t *testing.T) {
	p := parse(t, "[grp:0;a:c4")
	_, err := p.Finish()
	require.Error(t, err)
}

func TestParseUnbalancedGroupExtraClose(t *testing.T) {
	p := parse(t, "v:1]")
	_, err := p.Finish()
	require.Error(t, err)
}

func TestParseDanglingArgSep(t *testing.T) {
	p := parse(t, "v:")
	_, err := p.Finish()
	require.Error(t, err)
}

func TestParseCommentIsSkippedAsSibling(t *testing.T) {
	p := parse(t, "v:1 %a comment\nr")
	root, err := p.Finish()
	require.NoError(t, err)

	children := root.Children()
	require.Len(t, children, 3)
	require.Equal(t, token.Arg, children[0].Type)
	require.Equal(t, token.Comment, children[1].Type)
	require.Equal(t, token.Arg, children[2].Type)
}

func TestParseDataLiteralArgument(t *testing.T) {
	p := parse(t, `samp:0:!"aGVsbG8="`)
	root, err := p.Finish()
	require.NoError(t, err)

	children := root.Children()
	require.Len(t, children, 1)
	require.Equal(t, []string{"0", "hello"}, children[0].HeadArgs())
}
