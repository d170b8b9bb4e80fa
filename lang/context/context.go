// Package context owns everything playback needs once compilation is done
// (spec.md §3's Context row: "Owns the resolved instrument/waveform/sample
// tables, wires each track's divider callback to the interpreter"). It is
// the library's top-level entry point: construct one from a linked
// compiler.Program, Attach a synth.Track per track a host wants to render,
// and call Tick once per audio callback.
package context

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mna/bktk/internal/config"
	"github.com/mna/bktk/internal/errreport"
	"github.com/mna/bktk/internal/logging"
	"github.com/mna/bktk/lang/compiler"
	"github.com/mna/bktk/lang/synth"
	"github.com/mna/bktk/lang/vm"
)

// trackState pairs one attached synth.Track with the interpreter and
// divider driving it. Tracks are kept in attachment order: spec.md §5
// says "ordering between tracks within a single beat tick follows the
// order they were attached to the Context."
type trackState struct {
	trackIdx int
	interp   *vm.Interpreter
	track    synth.Track
	div      *divider
}

// Context is the resolved, ready-to-play form of a compiler.Program: the
// instrument/waveform/sample tables (read-only after construction, spec.md
// §5) plus one interpreter per attached track.
type Context struct {
	prog    *compiler.Program
	rctx    synth.RenderContext
	samples []*LoadedSample

	tracks []*trackState

	RunID string

	logger   *slog.Logger
	reporter errreport.Reporter

	cfgSamplePath string

	TimingData vm.TraceMode
}

// Option configures a Context at construction time.
type Option func(*Context)

// WithLogger attaches l (or slog.Default() if nil) to every log line the
// Context emits, per SPEC_FULL.md's Logging section.
func WithLogger(l *slog.Logger) Option {
	return func(c *Context) { c.logger = logging.OrDefault(l) }
}

// WithErrorReporter attaches an optional crash-reporting sink for faults
// that should not occur at runtime (spec.md §7: compile-time diagnostics
// already caught everything else).
func WithErrorReporter(r errreport.Reporter) Option {
	return func(c *Context) { c.reporter = r }
}

// WithTimingData turns on the `l:` trace lines spec.md §6.4 describes on
// every attached interpreter.
func WithTimingData(mode vm.TraceMode) Option {
	return func(c *Context) { c.TimingData = mode }
}

// WithConfig applies cfg (typically internal/config.Load's resolved
// result) to the Context being constructed: it pushes cfg's MaxTracks,
// MaxGroups and DefaultStepTicks into the compiler and vm packages via
// Config.Apply (a no-op for MaxTracks/MaxGroups if prog was already
// compiled under different limits, since those only bound compile-time
// symbol resolution; DefaultStepTicks still governs every interpreter
// New attaches from here on), and, when New's own samplePath argument is
// empty, falls back to cfg.SamplePath for sample resolution.
func WithConfig(cfg config.Config) Option {
	return func(c *Context) {
		cfg.Apply()
		c.cfgSamplePath = cfg.SamplePath
	}
}

// New resolves prog into a playable Context: it loads every sample's PCM
// data (WAV files concurrently, relative to samplePath) and prepares to
// accept track attachments. rctx receives the ClockPeriod attribute the
// `tr` command sets (spec.md §6.3).
func New(ctx context.Context, prog *compiler.Program, rctx synth.RenderContext, samplePath string, opts ...Option) (*Context, error) {
	c := &Context{
		prog:  prog,
		rctx:  rctx,
		RunID: uuid.New().String(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.OrDefault(c.logger)
	c.logger = logging.WithRunID(c.logger, c.RunID)

	if samplePath == "" {
		samplePath = c.cfgSamplePath
	}

	samples, err := loadSamples(ctx, prog.SampleDefs, samplePath)
	if err != nil {
		if c.reporter != nil {
			c.reporter.ReportFault(err, map[string]string{"run_id": c.RunID, "stage": "sample_load"})
		}
		return nil, fmt.Errorf("loading samples: %w", err)
	}
	c.samples = samples
	c.logger.Info("context created", "run_id", c.RunID, "samples", len(samples), "tracks", len(prog.Tracks))
	return c, nil
}

// Sample returns the loaded PCM for the sample at idx, or nil if idx is
// out of range. A sample with no data has empty Frames.
func (c *Context) Sample(idx uint32) *LoadedSample {
	if int(idx) >= len(c.samples) {
		return nil
	}
	return c.samples[idx]
}

// Attach binds track (the host's synth engine unit) to the Context's
// trackIdx'th compiled track, constructing its interpreter. Attachment
// order determines intra-callback sequencing (spec.md §5).
func (c *Context) Attach(trackIdx int, track synth.Track) error {
	if trackIdx < 0 || trackIdx >= len(c.prog.Tracks) || c.prog.Tracks[trackIdx] == nil {
		return fmt.Errorf("track %d is not defined", trackIdx)
	}
	interp := vm.New(c.prog, trackIdx)
	interp.TraceMode = c.TimingData
	ts := &trackState{trackIdx: trackIdx, interp: interp, track: track, div: newDivider()}
	c.tracks = append(c.tracks, ts)
	c.logger.Info("track attached", "run_id", c.RunID, "track", trackIdx)
	return nil
}

// SetTraceWriter installs w as the destination for every attached
// interpreter's timing trace (spec.md §6.4). Call after Attach.
func (c *Context) SetTraceWriter(w io.Writer) {
	for _, ts := range c.tracks {
		ts.interp.TraceWriter = w
	}
}

// Reset returns every attached interpreter (and its divider) to its
// initial state (spec.md §5: "A Context reset returns every interpreter to
// its initial PC and clears flags").
func (c *Context) Reset() {
	for _, ts := range c.tracks {
		ts.interp.Reset()
		ts.div.reset()
	}
	c.logger.Info("context reset", "run_id", c.RunID)
}

// Tick advances the Context by masterTicks ticks of the synth engine's
// master clock, driving each attached track's divider, which in turn calls
// its interpreter's Advance only once its own requested period has
// elapsed (spec.md §5's scheduling model). Tracks advance strictly
// sequentially, in attachment order, within this one call.
func (c *Context) Tick(masterTicks int32) {
	for _, ts := range c.tracks {
		due, elapsed := ts.div.tick(masterTicks)
		if !due {
			continue
		}
		_, next := ts.interp.Advance(c.rctx, ts.track, elapsed)
		ts.div.setPeriod(next)
	}
}

// HasStopped reports whether every attached track's interpreter has
// reached its End instruction.
func (c *Context) HasStopped() bool {
	if len(c.tracks) == 0 {
		return false
	}
	for _, ts := range c.tracks {
		if !ts.interp.HasStopped() {
			return false
		}
	}
	return true
}
