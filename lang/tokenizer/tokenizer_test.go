package tokenizer_test

import (
	"testing"

	"github.com/mna/bktk/lang/token"
	"github.com/mna/bktk/lang/tokenizer"
	"github.com/stretchr/testify/require"
)

func tokenize(t *testing.T, src string) []token.Token {
	t.Helper()
	tz := tokenizer.New()
	var got []token.Token
	emit := func(batch []token.Token) error {
		got = append(got, batch...)
		return nil
	}
	require.NoError(t, tz.PutChars([]byte(src), emit))
	require.NoError(t, tz.Close(emit))
	return got
}

func types(toks []token.Token) []token.Type {
	out := make([]token.Type, len(toks))
	for i, tk := range toks {
		out[i] = tk.Type
	}
	return out
}

func TestTokenizeSimpleCommands(t *testing.T) {
	toks := tokenize(t, "v:128;a:c4;s:4;r")
	require.Equal(t, []token.Type{
		token.Arg, token.ArgSep, token.Arg, token.CmdSep,
		token.Arg, token.ArgSep, token.Arg, token.CmdSep,
		token.Arg, token.ArgSep, token.Arg, token.CmdSep,
		token.Arg, token.End,
	}, types(toks))

	require.Equal(t, "v", string(toks[0].Value))
	require.Equal(t, "128", string(toks[2].Value))
	require.Equal(t, "r", string(toks[12].Value))
}

func TestTokenizeGroups(t *testing.T) {
	toks := tokenize(t, "[grp:0;a:c4;s:1;x]")
	require.Equal(t, token.GrpOpen, toks[0].Type)
	require.Equal(t, token.GrpClose, toks[len(toks)-2].Type)
	require.Equal(t, token.End, toks[len(toks)-1].Type)
}

func TestTokenizeStringEscapes(t *testing.T) {
	toks := tokenize(t, `"kick\n\x41"`)
	require.Equal(t, []token.Type{token.String, token.End}, types(toks))
	require.Equal(t, "kick\nA", string(toks[0].Value))
}

func TestTokenizeInvalidHexEscape(t *testing.T) {
	tz := tokenizer.New()
	err := tz.PutChars([]byte(`"\xG1"`), func([]token.Token) error { return nil })
	require.Error(t, err)
}

func TestTokenizeDataLiteral(t *testing.T) {
	toks := tokenize(t, `!"aGVsbG8="`)
	require.Equal(t, []token.Type{token.Data, token.End}, types(toks))
	require.Equal(t, "hello", string(toks[0].Value))
}

func TestTokenizeDataLiteralTrailingTwo(t *testing.T) {
	// "YQ" (2 base64 chars, no padding) decodes to the single byte 'a'.
	toks := tokenize(t, `!"YQ"`)
	require.Equal(t, token.Data, toks[0].Type)
	require.Len(t, toks[0].Value, 1)
}

func TestTokenizeDataLiteralTrailingOne(t *testing.T) {
	// "Y" (1 base64 char) still carries 6 recoverable bits: Y == 24, so the
	// left-aligned accumulator yields 24<<2 == 0x60, i.e. '`'.
	toks := tokenize(t, `!"Y"`)
	require.Equal(t, token.Data, toks[0].Type)
	require.Equal(t, []byte{0x60}, toks[0].Value)
}

func TestTokenizeBangWithoutQuoteIsArg(t *testing.T) {
	toks := tokenize(t, "!foo")
	require.Equal(t, []token.Type{token.Arg, token.End}, types(toks))
	require.Equal(t, "!foo", string(toks[0].Value))
}

func TestTokenizeComment(t *testing.T) {
	toks := tokenize(t, "v:1 %a comment\nr")
	require.Equal(t, token.Arg, toks[0].Type)
	require.Equal(t, token.ArgSep, toks[1].Type)
	require.Equal(t, token.Arg, toks[2].Type)
	require.Equal(t, token.Space, toks[3].Type)
	require.Equal(t, token.Comment, toks[4].Type)
	require.Equal(t, token.LineBreak, toks[5].Type)
	require.Equal(t, token.Arg, toks[6].Type)
}

func TestTokenizeChunkedInput(t *testing.T) {
	tz := tokenizer.New()
	var got []token.Token
	emit := func(batch []token.Token) error {
		got = append(got, batch...)
		return nil
	}
	src := `v:128;a:c4;!"aGVsbG8=";r`
	for i := 0; i < len(src); i++ {
		require.NoError(t, tz.PutChars([]byte{src[i]}, emit))
	}
	require.NoError(t, tz.Close(emit))

	var arg, data bool
	for _, tk := range got {
		if tk.Type == token.Arg && string(tk.Value) == "128" {
			arg = true
		}
		if tk.Type == token.Data && string(tk.Value) == "hello" {
			data = true
		}
	}
	require.True(t, arg)
	require.True(t, data)
}
