// Package tokenizer implements the streaming, push-model lexer for the score
// language (spec.md §4.1). PutChars ingests a chunk of bytes at a time and
// invokes an emit callback with batches of tokens; this lets a caller feed
// the tokenizer from any byte source — a fully-read file, or a network
// stream — without the tokenizer ever blocking on I/O itself.
package tokenizer

import (
	"fmt"

	"github.com/mna/bktk/lang/diag"
	"github.com/mna/bktk/lang/token"
)

// batchSize is the number of tokens buffered before Emit is invoked, per
// spec.md §4.1 ("buffer up to 8 tokens, then flush").
const batchSize = 8

type state uint8

//nolint:revive
const (
	stRoot state = iota
	stArg
	stStringStart
	stString
	stStringEsc
	stStringHex
	stCommentStart
	stData
	stDataEq
	stSpace
	stEnd
	stError
)

// Tokenizer is a streaming lexer. Construct one with New, which starts
// positions at line 1, column 1.
//
// Unlike the original implementation this is ported from, token values are
// copied out of the rolling buffer as they are produced rather than borrowed
// from it: it costs an extra allocation per token but means a caller can
// retain a Token beyond the emit call without the tokenizer's buffer
// compaction invalidating it (see Design Note "pointer graphs").
type Tokenizer struct {
	buf      []byte // rolling buffer of bytes not yet fully consumed
	pos      int    // scan cursor within buf
	tokStart int     // buf index where the current raw-span token began
	state    state

	line, col       int // position of buf[pos], 1-based
	tokLine, tokCol int // position where the current token started

	scratch []byte // decode buffer for String/Data content

	quote      byte // which quote char opened the current string
	hexDigits  int
	hexVal     byte
	b64Run     [4]byte
	b64RunLen  int

	pending []token.Token

	errored bool
	err     diag.Diagnostic
}

// New returns a ready-to-use Tokenizer.
func New() *Tokenizer {
	return &Tokenizer{line: 1, col: 1, tokLine: 1, tokCol: 1}
}

// Err returns the lexical diagnostic that put the tokenizer in its terminal
// error state, or nil if it has not errored.
func (t *Tokenizer) Err() error {
	if !t.errored {
		return nil
	}
	return t.err
}

// PutChars ingests a chunk of bytes, emitting batches of up to 8 tokens at a
// time via emit. PutChars returns a non-nil error if the
// tokenizer was already in an error state, if it enters an error state while
// processing this chunk, or if emit itself returns an error (propagated
// unchanged, per spec.md §7 policy).
func (t *Tokenizer) PutChars(data []byte, emit func([]token.Token) error) error {
	if t.errored {
		return t.err
	}
	if t.state == stEnd {
		return diag.Diagnostic{Kind: diag.Lexical, Pos: token.Position{Line: t.line, Col: t.col}, Message: "input after end of stream"}
	}
	t.buf = append(t.buf, data...)

	for t.pos < len(t.buf) {
		if t.state == stRoot && t.buf[t.pos] == '!' && t.pos+1 >= len(t.buf) {
			// lookahead for a data literal's opening quote needs one more
			// byte than we currently have buffered; wait for it.
			break
		}
		if err := t.step(emit); err != nil {
			return err
		}
		if t.errored {
			return t.err
		}
	}

	if err := t.flush(emit); err != nil {
		return err
	}
	t.compact()
	return nil
}

// Close signals end of input: it finalizes any in-progress token, emits a
// terminal End token, and flushes the batch. After Close, further PutChars
// calls are errors.
func (t *Tokenizer) Close(emit func([]token.Token) error) error {
	if t.errored {
		return t.err
	}
	if t.state == stRoot && t.pos < len(t.buf) && t.buf[t.pos] == '!' {
		// a trailing '!' with no confirming quote ever arrived: it is a
		// one-byte Arg token on its own.
		t.beginToken()
		t.advance('!')
		t.emitRawSpan(token.Arg)
	}
	switch t.state {
	case stArg:
		t.emitRawSpan(token.Arg)
	case stCommentStart:
		t.emitRawSpan(token.Comment)
	case stStringStart, stString, stStringEsc, stStringHex:
		t.fail(diag.Lexical, "premature end of input inside string literal")
		return t.err
	case stData, stDataEq:
		t.fail(diag.Lexical, "premature end of input inside data literal")
		return t.err
	}
	t.pending = append(t.pending, token.Token{Type: token.End, Pos: token.Position{Line: t.line, Col: t.col}})
	t.state = stEnd
	if err := t.flush(emit); err != nil {
		return err
	}
	t.compact()
	return nil
}

func (t *Tokenizer) fail(kind diag.Kind, format string, args ...any) {
	t.errored = true
	t.err = diag.Diagnostic{Kind: kind, Pos: token.Position{Line: t.tokLine, Col: t.tokCol}, Message: fmt.Sprintf(format, args...)}
	t.state = stError
}

// step consumes exactly one byte (or a recognized multi-byte sequence such
// as NBSP) from buf[pos] and advances the state machine.
func (t *Tokenizer) step(emit func([]token.Token) error) error {
	c := t.buf[t.pos]

	switch t.state {
	case stRoot:
		return t.stepRoot(c, emit)
	case stArg:
		return t.stepArg(c, emit)
	case stStringStart:
		return t.stepStringStart(c)
	case stString:
		return t.stepString(c, emit)
	case stStringEsc:
		return t.stepStringEsc(c)
	case stStringHex:
		return t.stepStringHex(c)
	case stCommentStart:
		return t.stepComment(c, emit)
	case stData:
		return t.stepData(c, emit)
	case stDataEq:
		return t.stepDataEq(c)
	}
	return nil
}

func (t *Tokenizer) advance(c byte) {
	t.pos++
	if c == '\n' {
		t.line++
		t.col = 1
	} else {
		t.col++
	}
}

func isNBSPAt(buf []byte, i int) bool {
	return i+1 < len(buf) && buf[i] == 0xC2 && buf[i+1] == 0xA0
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' }

func (t *Tokenizer) stepRoot(c byte, emit func([]token.Token) error) error {
	switch {
	case c == ':':
		t.emitSimple(token.ArgSep, 1)
		t.advance(c)
	case c == ';':
		t.emitSimple(token.CmdSep, 1)
		t.advance(c)
	case c == '[':
		t.emitSimple(token.GrpOpen, 1)
		t.advance(c)
	case c == ']':
		t.emitSimple(token.GrpClose, 1)
		t.advance(c)
	case c == '\n' || c == '\r':
		t.emitSimple(token.LineBreak, 1)
		t.advance(c)
	case c == '%':
		t.beginToken()
		t.scratch = t.scratch[:0]
		t.advance(c)
		t.state = stCommentStart
	case c == '"':
		t.beginToken()
		t.quote = c
		t.scratch = t.scratch[:0]
		t.advance(c)
		t.state = stStringStart
	case c == '!':
		// tentatively an Arg unless followed by a double quote (data
		// literal); the caller guarantees a lookahead byte is buffered.
		if t.buf[t.pos+1] == '"' {
			t.beginToken()
			t.advance(c) // consume '!'
			t.quote = t.buf[t.pos]
			t.advance(t.quote) // consume opening quote
			t.scratch = t.scratch[:0]
			t.b64Run = [4]byte{}
			t.b64RunLen = 0
			t.state = stData
			return nil
		}
		// not a data literal: fall through to plain Arg accumulation.
		t.beginToken()
		t.state = stArg
		t.advance(c)
		return nil
	case isSpace(c):
		t.emitSimple(token.Space, 1)
		t.advance(c)
	case isNBSPAt(t.buf, t.pos):
		t.beginToken()
		t.advance(c)
		t.advance(t.buf[t.pos])
		t.emitRawSpan(token.Space)
	default:
		t.beginToken()
		t.state = stArg
		t.advance(c)
	}
	return nil
}

func (t *Tokenizer) beginToken() {
	t.tokStart = t.pos
	t.tokLine, t.tokCol = t.line, t.col
}

func (t *Tokenizer) emitSimple(typ token.Type, width int) {
	pos := token.Position{Line: t.line, Col: t.col}
	start := t.pos
	t.pending = append(t.pending, token.Token{Type: typ, Value: cloneBytes(t.buf[start : start+width]), Pos: pos})
}

func (t *Tokenizer) emitRawSpan(typ token.Type) {
	val := cloneBytes(t.buf[t.tokStart:t.pos])
	t.pending = append(t.pending, token.Token{Type: typ, Value: val, Pos: token.Position{Line: t.tokLine, Col: t.tokCol}})
	t.state = stRoot
}

func (t *Tokenizer) emitDecodedSpan(typ token.Type) {
	val := cloneBytes(t.scratch)
	t.pending = append(t.pending, token.Token{Type: typ, Value: val, Pos: token.Position{Line: t.tokLine, Col: t.tokCol}})
	t.state = stRoot
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func isSep(c byte) bool {
	switch c {
	case ':', ';', '[', ']', '%', '\n', '\r', ' ', '\t':
		return true
	}
	return false
}

func (t *Tokenizer) stepArg(c byte, emit func([]token.Token) error) error {
	if isSep(c) || isNBSPAt(t.buf, t.pos) {
		t.emitRawSpan(token.Arg)
		return t.stepRoot(c, emit)
	}
	t.advance(c)
	return nil
}

func (t *Tokenizer) stepComment(c byte, emit func([]token.Token) error) error {
	if c == '\n' || c == '\r' {
		t.emitRawSpan(token.Comment)
		return t.stepRoot(c, emit)
	}
	t.advance(c)
	return nil
}

func (t *Tokenizer) stepStringStart(c byte) error {
	// StringStart exists only to mirror the original state list; it
	// immediately becomes String, there being no special first-character
	// handling.
	t.state = stString
	return t.stepString(c, nil)
}

func (t *Tokenizer) stepString(c byte, _ func([]token.Token) error) error {
	switch {
	case c == t.quote:
		t.advance(c)
		t.emitDecodedSpan(token.String)
	case c == '\\':
		t.advance(c)
		t.state = stStringEsc
	case c == '\n':
		t.fail(diag.Lexical, "premature end of line inside string literal")
	default:
		t.scratch = append(t.scratch, c)
		t.advance(c)
	}
	return nil
}

var simpleEscapes = map[byte]byte{
	'a': '\a', 'b': '\b', 'f': '\f', 'n': '\n', 'r': '\r', 't': '\t', 'v': '\v',
}

func (t *Tokenizer) stepStringEsc(c byte) error {
	if c == 'x' {
		t.advance(c)
		t.hexDigits = 0
		t.hexVal = 0
		t.state = stStringHex
		return nil
	}
	if rep, ok := simpleEscapes[c]; ok {
		t.scratch = append(t.scratch, rep)
	} else {
		// any other escaped byte is taken literally, e.g. \" -> ", \\ -> \.
		t.scratch = append(t.scratch, c)
	}
	t.advance(c)
	t.state = stString
	return nil
}

func hexVal(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func (t *Tokenizer) stepStringHex(c byte) error {
	v, ok := hexVal(c)
	if !ok {
		t.fail(diag.Lexical, "invalid hex escape, expected exactly two hex digits")
		return nil
	}
	t.hexVal = t.hexVal<<4 | v
	t.hexDigits++
	t.advance(c)
	if t.hexDigits == 2 {
		t.scratch = append(t.scratch, t.hexVal)
		t.state = stString
	}
	return nil
}

func b64Val(c byte) (byte, bool) {
	switch {
	case c >= 'A' && c <= 'Z':
		return c - 'A', true
	case c >= 'a' && c <= 'z':
		return c - 'a' + 26, true
	case c >= '0' && c <= '9':
		return c - '0' + 52, true
	case c == '+' || c == '-':
		return 62, true
	case c == '/' || c == '_':
		return 63, true
	}
	return 0, false
}

func (t *Tokenizer) stepData(c byte, _ func([]token.Token) error) error {
	switch {
	case c == t.quote:
		t.advance(c)
		t.flushB64Tail()
		t.emitDecodedSpan(token.Data)
	case c == '=':
		t.advance(c)
		t.state = stDataEq
	case isSpace(c) || c == '\n' || c == '\r':
		// whitespace is tolerated inside data literals and simply skipped.
		t.advance(c)
	default:
		v, ok := b64Val(c)
		if !ok {
			t.fail(diag.Lexical, "invalid character %q in data literal", c)
			return nil
		}
		t.advance(c)
		t.pushB64(v)
	}
	return nil
}

// stepDataEq handles '=' padding: any amount of padding is tolerated until
// the closing quote, but a non-padding, non-whitespace character after a
// padding char is an error.
func (t *Tokenizer) stepDataEq(c byte) error {
	switch {
	case c == t.quote:
		t.advance(c)
		t.flushB64Tail()
		t.emitDecodedSpan(token.Data)
	case c == '=' || isSpace(c) || c == '\n' || c == '\r':
		t.advance(c)
	default:
		t.fail(diag.Lexical, "unexpected character %q after padding in data literal", c)
	}
	return nil
}

func (t *Tokenizer) pushB64(v byte) {
	t.b64Run[t.b64RunLen] = v
	t.b64RunLen++
	if t.b64RunLen == 4 {
		t.scratch = append(t.scratch,
			t.b64Run[0]<<2|t.b64Run[1]>>4,
			t.b64Run[1]<<4|t.b64Run[2]>>2,
			t.b64Run[2]<<6|t.b64Run[3],
		)
		t.b64Run = [4]byte{}
		t.b64RunLen = 0
	}
}

// flushB64Tail handles a trailing base64 group whose length is not a
// multiple of 4, per spec.md §8 boundary behavior: 1 leftover char decodes
// to 1 byte, 2 leftover chars decode to 1 byte, and 3 leftover chars decode
// to 2 bytes, mirroring BKTKTokenizerBufferEndBase64 in the original C
// tokenizer.
func (t *Tokenizer) flushB64Tail() {
	switch t.b64RunLen {
	case 0:
	case 1, 2:
		t.scratch = append(t.scratch, t.b64Run[0]<<2|t.b64Run[1]>>4)
	case 3:
		t.scratch = append(t.scratch,
			t.b64Run[0]<<2|t.b64Run[1]>>4,
			t.b64Run[1]<<4|t.b64Run[2]>>2,
		)
	}
	t.b64Run = [4]byte{}
	t.b64RunLen = 0
}

func (t *Tokenizer) flush(emit func([]token.Token) error) error {
	for len(t.pending) >= batchSize {
		batch := t.pending[:batchSize]
		if err := emit(batch); err != nil {
			return err
		}
		t.pending = t.pending[batchSize:]
	}
	if t.state == stEnd && len(t.pending) > 0 {
		batch := t.pending
		t.pending = nil
		return emit(batch)
	}
	if len(t.pending) > 0 && t.pos >= len(t.buf) {
		// no more input buffered right now: flush whatever is pending so
		// the caller sees progress even below batchSize.
		batch := t.pending
		t.pending = nil
		return emit(batch)
	}
	return nil
}

// compact drops bytes before the oldest live token from the internal
// buffer, per spec.md §4.1's buffer policy, so memory use stays bounded by
// the size of the token currently being accumulated rather than by the
// total input seen so far.
func (t *Tokenizer) compact() {
	live := t.pos
	switch t.state {
	case stArg, stCommentStart, stStringStart, stString, stStringEsc, stStringHex, stData, stDataEq:
		live = t.tokStart
	}
	if live <= 0 {
		return
	}
	n := copy(t.buf, t.buf[live:])
	t.buf = t.buf[:n]
	t.pos -= live
	t.tokStart -= live
}
