package compiler_test

import (
	"testing"

	"github.com/mna/bktk/lang/ast"
	"github.com/mna/bktk/lang/bytecode"
	"github.com/mna/bktk/lang/compiler"
	"github.com/mna/bktk/lang/parser"
	"github.com/mna/bktk/lang/token"
	"github.com/mna/bktk/lang/tokenizer"
	"github.com/stretchr/testify/require"
)

func parseSrc(t *testing.T, src string) *ast.Node {
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

// opsOf extracts just the opcode sequence from a buffer, skipping operand
// words is left to each test since not every mask's shape is the same;
// callers that need operands decode them directly.
func opsOf(t *testing.T, buf *bytecode.Buffer) []bytecode.Opcode {
	t.Helper()
	var ops []bytecode.Opcode
	for i := 0; i < buf.Len(); i++ {
		ops = append(ops, buf.MaskAt(i).Op())
	}
	return ops
}

func TestCompileFlatTrackCommands(t *testing.T) {
	root := parseSrc(t, "v:128;a:c4;s:4;r")
	prog, err := compiler.Compile(root)
	require.NoError(t, err)

	buf := &prog.Tracks[0].Buffer
	require.Equal(t, []bytecode.Opcode{
		bytecode.LineNo, bytecode.Volume, bytecode.Attack,
		bytecode.Step, bytecode.Release,
		bytecode.End,
	}, opsOf(t, buf))
}

func TestCompileAttackWithArpeggio(t *testing.T) {
	root := parseSrc(t, "a:c4:e4:g4")
	prog, err := compiler.Compile(root)
	require.NoError(t, err)

	buf := &prog.Tracks[0].Buffer
	ops := opsOf(t, buf)
	require.Contains(t, ops, bytecode.Attack)
	require.Contains(t, ops, bytecode.Arpeggio)
}

func TestCompileTrackDefinition(t *testing.T) {
	root := parseSrc(t, "[track:1;v:1;a:c4]")
	prog, err := compiler.Compile(root)
	require.NoError(t, err)

	require.Len(t, prog.Tracks, 2)
	tr := prog.Tracks[1]
	require.NotNil(t, tr)
	ops := opsOf(t, &tr.Buffer)
	require.Equal(t, bytecode.Waveform, ops[0])
	require.Equal(t, bytecode.RepeatStart, ops[1])
	require.Equal(t, bytecode.End, ops[len(ops)-1])
}

func TestCompileInstrumentDefinition(t *testing.T) {
	root := parseSrc(t, "[instr:vol;v:0:1:255:0:0]")
	prog, err := compiler.Compile(root)
	require.NoError(t, err)

	require.Len(t, prog.InstrumentDefs, 1)
	instr := prog.InstrumentDefs[0]
	require.Equal(t, "vol", instr.Name)
	require.NotNil(t, instr.Volume)
	require.Len(t, instr.Volume.Values, 5)
}

func TestCompileGroupAndJump(t *testing.T) {
	root := parseSrc(t, "[grp:0;a:c4;s:1;x];g:0g")
	prog, err := compiler.Compile(root)
	require.NoError(t, err)

	require.Len(t, prog.JumpSites, 1)
	site := prog.JumpSites[0]
	require.Equal(t, bytecode.GroupGlobal, site.Type)
	require.Equal(t, 0, site.TargetGroup)
	require.Equal(t, 0, site.TargetTrack)

	tr0 := prog.Tracks[0]
	require.NotNil(t, tr0.Groups)
	require.NotNil(t, tr0.Groups[0])
	ops := opsOf(t, tr0.Groups[0])
	require.Equal(t, bytecode.RepeatStart, ops[0])
	require.Equal(t, bytecode.Return, ops[len(ops)-1])
}

func TestCompileSampleDefinition(t *testing.T) {
	root := parseSrc(t, `[samp:s1;load:wav:"kick.wav";pt:100]`)
	prog, err := compiler.Compile(root)
	require.NoError(t, err)

	require.Len(t, prog.SampleDefs, 1)
	s := prog.SampleDefs[0]
	require.Equal(t, "s1", s.Name)
	require.Equal(t, "kick.wav", s.WAVPath)
	require.EqualValues(t, 100, s.PitchCents)
}

func TestCompileSampleSustainRangeValidation(t *testing.T) {
	root := parseSrc(t, "[samp:bad;dn:10:20;ds:25:15]")
	_, err := compiler.Compile(root)
	require.Error(t, err)
}

func TestCompileEffect(t *testing.T) {
	root := parseSrc(t, "e:vb:6:50:0")
	prog, err := compiler.Compile(root)
	require.NoError(t, err)

	buf := &prog.Tracks[0].Buffer
	ops := opsOf(t, buf)
	require.Contains(t, ops, bytecode.Effect)
}

func TestCompileUnknownCommandIsSemanticError(t *testing.T) {
	root := parseSrc(t, "zzz:1")
	_, err := compiler.Compile(root)
	require.Error(t, err)
}

func TestCompileRedefinedInstrumentIsError(t *testing.T) {
	root := parseSrc(t, "[instr:dup;v:1];[instr:dup;v:2]")
	_, err := compiler.Compile(root)
	require.Error(t, err)
}
