package context_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mna/bktk/internal/config"
	"github.com/mna/bktk/lang/ast"
	"github.com/mna/bktk/lang/compiler"
	lctx "github.com/mna/bktk/lang/context"
	"github.com/mna/bktk/lang/linker"
	"github.com/mna/bktk/lang/parser"
	"github.com/mna/bktk/lang/token"
	"github.com/mna/bktk/lang/tokenizer"
	"github.com/mna/bktk/lang/vm"
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

func compileAndLink(t *testing.T, src string) *compiler.Program {
	t.Helper()
	prog, err := compiler.Compile(parseSrc(t, src))
	require.NoError(t, err)
	require.NoError(t, linker.Link(prog))
	return prog
}

type fakeTrack struct {
	notes   []int32
	volumes []int32
}

func (f *fakeTrack) SetNote(cents int32)                                 { f.notes = append(f.notes, cents) }
func (f *fakeTrack) SetRelease()                                         {}
func (f *fakeTrack) SetMute()                                            {}
func (f *fakeTrack) SetVolume(v int32)                                   { f.volumes = append(f.volumes, v) }
func (f *fakeTrack) SetMasterVolume(int32)                               {}
func (f *fakeTrack) SetPanning(int32)                                    {}
func (f *fakeTrack) SetPitch(int32)                                      {}
func (f *fakeTrack) SetDutyCycle(int32)                                  {}
func (f *fakeTrack) SetPhaseWrap(int32)                                  {}
func (f *fakeTrack) SetArpeggio([]int32)                                 {}
func (f *fakeTrack) SetArpeggioDivider(int32)                            {}
func (f *fakeTrack) SetWaveform(compiler.WaveformID, *compiler.Waveform) {}
func (f *fakeTrack) SetInstrument(*compiler.Instrument)                 {}
func (f *fakeTrack) SetSample(*compiler.Sample)                         {}
func (f *fakeTrack) SetSampleRange(int32, int32)                        {}
func (f *fakeTrack) SetSampleSustainRange(int32, int32)                 {}
func (f *fakeTrack) SetSampleRepeat(compiler.SampleRepeatMode)          {}
func (f *fakeTrack) SetEffect(compiler.EffectID, int32, int32, int32)   {}

type fakeRenderContext struct{ clockPeriod int32 }

func (f *fakeRenderContext) SetClockPeriod(p int32) { f.clockPeriod = p }

func TestNewLoadsEmbeddedSampleData(t *testing.T) {
	prog := compileAndLink(t, `[samp:s1;data:8s:!"AQL/"];v:128;a:c4;s:4;r`)
	rctx := &fakeRenderContext{}
	c, err := lctx.New(context.Background(), prog, rctx, ".")
	require.NoError(t, err)

	ls := c.Sample(0)
	require.NotNil(t, ls)
	require.Len(t, ls.Frames, 3)
	require.NotEmpty(t, c.RunID)
}

func TestAttachRejectsUndefinedTrack(t *testing.T) {
	prog := compileAndLink(t, "v:128;a:c4;s:4;r")
	c, err := lctx.New(context.Background(), prog, &fakeRenderContext{}, ".")
	require.NoError(t, err)

	err = c.Attach(7, &fakeTrack{})
	require.Error(t, err)
}

func TestTickDrivesAttachedInterpreter(t *testing.T) {
	prog := compileAndLink(t, "v:128;a:c4;s:4;r")
	c, err := lctx.New(context.Background(), prog, &fakeRenderContext{}, ".")
	require.NoError(t, err)

	tr := &fakeTrack{}
	require.NoError(t, c.Attach(0, tr))

	c.Tick(1)

	require.Len(t, tr.volumes, 1)
	require.Len(t, tr.notes, 1)
}

func TestWithConfigOverridesStepTicksAndSamplePath(t *testing.T) {
	orig := vm.DefaultStepTicks
	t.Cleanup(func() { vm.DefaultStepTicks = orig })

	cfg := config.Default()
	cfg.DefaultStepTicks = 12
	cfg.SamplePath = "testdata"

	prog := compileAndLink(t, "v:128;a:c4;s:4;r")
	c, err := lctx.New(context.Background(), prog, &fakeRenderContext{}, "", lctx.WithConfig(cfg))
	require.NoError(t, err)
	require.NotNil(t, c)

	require.EqualValues(t, 12, vm.DefaultStepTicks)

	// with an empty samplePath argument, WAV files resolve under cfg.SamplePath.
	prog = compileAndLink(t, "[samp:s1;load:wav:missing.wav];v:128;a:c4;s:4;r")
	_, err = lctx.New(context.Background(), prog, &fakeRenderContext{}, "", lctx.WithConfig(cfg))
	require.ErrorContains(t, err, filepath.Join("testdata", "missing.wav"))
}

func TestResetClearsHasStopped(t *testing.T) {
	prog := compileAndLink(t, "z")
	c, err := lctx.New(context.Background(), prog, &fakeRenderContext{}, ".")
	require.NoError(t, err)

	tr := &fakeTrack{}
	require.NoError(t, c.Attach(0, tr))

	for i := 0; i < 3; i++ {
		c.Tick(1)
	}
	require.True(t, c.HasStopped())

	c.Reset()
	require.False(t, c.HasStopped())
}
