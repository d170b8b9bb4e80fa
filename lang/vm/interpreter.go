// Package vm implements the per-track cooperative bytecode interpreter
// (spec.md §4.4): a single-threaded, non-blocking state machine that
// fetches and executes one compiled track's instructions and drives a
// companion synth.Track/synth.RenderContext pair as a side effect.
package vm

import (
	"fmt"
	"io"
	"math"

	"github.com/mna/bktk/lang/bytecode"
	"github.com/mna/bktk/lang/compiler"
	"github.com/mna/bktk/lang/synth"
)

// MaxCallStackDepth bounds nested Call/Return depth (spec.md §4.4's "stack
// [16] frames").
const MaxCallStackDepth = 16

// MaxEventQueue bounds the number of pending ticked events (spec.md §4.4's
// "event queue[8]").
const MaxEventQueue = 8

// DefaultStepTicks is the tick count one Step represents before any `st`/
// `stt` override (GLOSSARY: "Step... equals step_ticks ticks (default 24)").
// It is a var, not a const, so internal/config.Config.Apply can override
// it from a loaded runtime-defaults file.
var DefaultStepTicks int32 = 24

// eventKind discriminates the four things the interpreter can have pending
// at once: one Step deadline plus up to one deferred Attack/Release/Mute,
// each armed by its own *Ticks command.
type eventKind uint8

const (
	eventStep eventKind = iota
	eventAttack
	eventRelease
	eventMute
)

type pendingEvent struct {
	kind   eventKind
	active bool
	ticks  int32
}

// frame is a pushed Call site: the buffer and program counter to resume at
// on Return, plus the track whose resource tables were in scope (GroupLocal
// calls stay on the same track; GroupGlobal/GroupTrack calls switch it).
type frame struct {
	buf      *bytecode.Buffer
	pc       int
	trackIdx int
}

// Interpreter is one track's virtual machine. The zero value is not usable;
// construct with New.
type Interpreter struct {
	prog     *compiler.Program
	trackIdx int
	buf      *bytecode.Buffer
	pc       int

	callStack []frame

	repeatStart int

	stepTicks   int32
	clockPeriod int32

	events [MaxEventQueue]pendingEvent

	attackArmed     bool
	nextAttack      [2]int32
	nextAttackCount int
	pendingArpeggio []int32

	time     int64
	lineTime int64
	lineno   int

	hasStopped  bool
	hasRepeated bool

	// TraceWriter and TraceMode, when set, make the interpreter emit a
	// timing trace line on every source line change (spec.md §6.4).
	TraceWriter io.Writer
	TraceMode   TraceMode
}

// TraceMode selects the unit the interpreter's `l:` trace lines report.
type TraceMode uint8

const (
	TraceNone TraceMode = iota
	TraceTicks
	TraceSecs
)

// New constructs an Interpreter for track trackIdx of prog, ready to run
// from the start of that track's main buffer.
func New(prog *compiler.Program, trackIdx int) *Interpreter {
	tr := prog.Tracks[trackIdx]
	return &Interpreter{
		prog:      prog,
		trackIdx:  trackIdx,
		buf:       &tr.Buffer,
		stepTicks: DefaultStepTicks,
		callStack: make([]frame, 0, MaxCallStackDepth),
	}
}

// Reset returns the interpreter to its initial PC and clears every flag and
// pending event, without reallocating (spec.md §5: "A Context reset returns
// every interpreter to its initial PC and clears flags").
func (in *Interpreter) Reset() {
	tr := in.prog.Tracks[in.trackIdx]
	in.buf = &tr.Buffer
	in.pc = 0
	in.callStack = in.callStack[:0]
	in.repeatStart = 0
	in.stepTicks = DefaultStepTicks
	in.events = [MaxEventQueue]pendingEvent{}
	in.attackArmed = false
	in.nextAttackCount = 0
	in.pendingArpeggio = nil
	in.time = 0
	in.lineTime = 0
	in.lineno = 0
	in.hasStopped = false
	in.hasRepeated = false
}

// HasStopped reports whether the track has executed its End instruction.
func (in *Interpreter) HasStopped() bool { return in.hasStopped }

// HasRepeated reports whether the track has executed a Jump(-1) at least
// once since the last Reset.
func (in *Interpreter) HasRepeated() bool { return in.hasRepeated }

// Advance runs the protocol described in spec.md §4.4: subtract elapsed
// ticks from every pending event, fire the ones that reached zero, and
// either return the next Step deadline or fetch-execute until one is armed.
func (in *Interpreter) Advance(rctx synth.RenderContext, track synth.Track, elapsedTicks int32) (done bool, ticksUntilNext int32) {
	if in.hasStopped {
		return false, math.MaxInt32
	}

	in.time += int64(elapsedTicks)
	in.lineTime += int64(elapsedTicks)
	for i := range in.events {
		if in.events[i].active {
			in.events[i].ticks -= elapsedTicks
		}
	}

	in.fireDueEvents(track)

	if step := in.event(eventStep); step != nil && step.ticks > 0 {
		return false, step.ticks
	}

	return in.run(rctx, track)
}

func (in *Interpreter) event(k eventKind) *pendingEvent {
	for i := range in.events {
		if in.events[i].active && in.events[i].kind == k {
			return &in.events[i]
		}
	}
	return nil
}

// arm installs (or replaces) the single pending event of kind k, reusing
// k's own slot if already present or else taking the first inactive slot. Ticks
// are clamped to the current Step deadline, since "Step is the only event
// that caps all others" (spec.md §4.4).
func (in *Interpreter) arm(k eventKind, ticks int32) {
	if k != eventStep {
		if step := in.event(eventStep); step != nil && step.active && ticks > step.ticks {
			ticks = step.ticks
		}
	}
	if e := in.event(k); e != nil {
		e.ticks = ticks
		return
	}
	for i := range in.events {
		if !in.events[i].active {
			in.events[i] = pendingEvent{kind: k, active: true, ticks: ticks}
			return
		}
	}
	// queue exhausted: spec.md's boundary guarantees at most one of each
	// kind is ever armed at a time, so this is unreachable for compiled
	// programs; overwrite the first slot defensively rather than panic.
	in.events[0] = pendingEvent{kind: k, active: true, ticks: ticks}
}

func (in *Interpreter) disarm(k eventKind) {
	if e := in.event(k); e != nil {
		e.active = false
	}
}

// fireDueEvents applies every event whose ticks reached zero, in queue
// order, then disarms it (spec.md §4.4 step 2).
func (in *Interpreter) fireDueEvents(track synth.Track) {
	for i := range in.events {
		e := &in.events[i]
		if !e.active || e.ticks > 0 {
			continue
		}
		switch e.kind {
		case eventAttack:
			in.fireAttack(track)
		case eventRelease:
			track.SetRelease()
		case eventMute:
			track.SetMute()
		case eventStep:
			// a Step reaching zero just stops capping others; the fetch loop
			// re-arms the next Step once it executes one.
		}
		e.active = false
	}
}

func (in *Interpreter) fireAttack(track synth.Track) {
	if in.nextAttackCount == 0 {
		return
	}
	track.SetNote(in.nextAttack[0])
	if len(in.pendingArpeggio) > 0 {
		track.SetArpeggio(in.pendingArpeggio)
	}
	in.attackArmed = false
	in.nextAttackCount = 0
	in.pendingArpeggio = nil
}

// run fetches and executes instructions until a Step (or Ticks) event is
// armed or End is reached (spec.md §4.4 step 4-5).
func (in *Interpreter) run(rctx synth.RenderContext, track synth.Track) (done bool, ticksUntilNext int32) {
	for {
		m := in.buf.MaskAt(in.pc)
		in.pc++
		op := m.Op()

		switch op {
		case bytecode.End:
			in.pc--
			in.hasStopped = true
			in.arm(eventStep, math.MaxInt32)
			return false, math.MaxInt32

		case bytecode.Step:
			_, n := m.DecodeArg1()
			in.arm(eventStep, n*in.stepTicks)
			return false, n * in.stepTicks

		case bytecode.Ticks:
			_, n := m.DecodeArg1()
			in.arm(eventStep, n)
			return false, n

		default:
			in.execOne(op, m, rctx, track)
		}
	}
}

// execOne executes every opcode that is not a run-loop exit point (Step,
// Ticks, End are handled directly in run).
func (in *Interpreter) execOne(op bytecode.Opcode, m bytecode.Mask, rctx synth.RenderContext, track synth.Track) {
	switch op {
	case bytecode.NOP, bytecode.LineNo:
		if op == bytecode.LineNo {
			in.execLineNo(m)
		}

	case bytecode.Volume:
		_, v := m.DecodeArg1()
		track.SetVolume(v)
	case bytecode.MasterVolume:
		_, v := m.DecodeArg1()
		track.SetMasterVolume(v)
	case bytecode.Panning:
		_, v := m.DecodeArg1()
		track.SetPanning(v)
	case bytecode.Pitch:
		_, v := m.DecodeArg1()
		track.SetPitch(v)
	case bytecode.DutyCycle:
		_, v := m.DecodeArg1()
		track.SetDutyCycle(v)
	case bytecode.PhaseWrap:
		_, v := m.DecodeArg1()
		track.SetPhaseWrap(v)

	case bytecode.Attack:
		in.execAttack(m, track)
	case bytecode.Arpeggio:
		// only ever consumed inline by execAttack; reaching here means a
		// malformed buffer, which compile-time validation rules out.
	case bytecode.Release:
		// mirrors Attack's deferral: if `rt` already armed a pending release
		// event, a bare `r` is a no-op and the armed event fires later.
		if e := in.event(eventRelease); e != nil && e.active {
			break
		}
		track.SetRelease()
	case bytecode.Mute:
		if e := in.event(eventMute); e != nil && e.active {
			break
		}
		track.SetMute()

	case bytecode.AttackTicks:
		_, n, d := m.DecodeArg2()
		in.attackArmed = true
		in.nextAttackCount = 0
		in.arm(eventAttack, fracTicks(n, d, in.stepTicks))
	case bytecode.ReleaseTicks:
		_, n, d := m.DecodeArg2()
		in.arm(eventRelease, fracTicks(n, d, in.stepTicks))
	case bytecode.MuteTicks:
		_, n, d := m.DecodeArg2()
		in.arm(eventMute, fracTicks(n, d, in.stepTicks))

	case bytecode.Instrument:
		_, idx := m.DecodeArg1()
		track.SetInstrument(in.prog.InstrumentDefs[idx])
	case bytecode.Waveform:
		_, raw := m.DecodeArg1()
		if raw&compiler.CustomWaveformFlag != 0 {
			idx := raw &^ compiler.CustomWaveformFlag
			track.SetWaveform(0, in.prog.WaveformDefs[idx])
		} else {
			track.SetWaveform(compiler.WaveformID(raw), nil)
		}
	case bytecode.Sample:
		_, idx := m.DecodeArg1()
		track.SetSample(in.prog.SampleDefs[idx])
	case bytecode.SampleRange:
		from := in.buf.OperandAt(in.pc).Int32()
		to := in.buf.OperandAt(in.pc + 1).Int32()
		in.pc += 2
		track.SetSampleRange(from, to)
	case bytecode.SampleSustainRange:
		from := in.buf.OperandAt(in.pc).Int32()
		to := in.buf.OperandAt(in.pc + 1).Int32()
		in.pc += 2
		track.SetSampleSustainRange(from, to)
	case bytecode.SampleRepeat:
		_, mode := m.DecodeArg1()
		track.SetSampleRepeat(compiler.SampleRepeatMode(mode))

	case bytecode.Effect:
		_, id := m.DecodeArg1()
		p1 := in.buf.OperandAt(in.pc).Int32()
		amp := in.buf.OperandAt(in.pc + 1).Int32()
		p2 := in.buf.OperandAt(in.pc + 2).Int32()
		in.pc += 3
		track.SetEffect(compiler.EffectID(id), p1, amp, p2)

	case bytecode.StepTicks, bytecode.StepTicksTrack:
		_, n, d := m.DecodeArg2()
		in.stepTicks = fracTicks(n, d, 1)
	case bytecode.TickRate:
		_, n, d := m.DecodeArg2()
		if d == 0 {
			// no denominator given: leave the clock period untouched.
			break
		}
		in.clockPeriod = n / d
		rctx.SetClockPeriod(in.clockPeriod)

	case bytecode.Call:
		in.execCall(m)
	case bytecode.Return:
		in.execReturn()
	case bytecode.RepeatStart:
		in.repeatStart = in.pc
	case bytecode.Jump:
		// link time rejects any non-sentinel target (Open Question #1's
		// resolution), so any Jump reaching here is always the repeat mark.
		in.pc = in.repeatStart
		in.hasRepeated = true
	}
}

func (in *Interpreter) execLineNo(m bytecode.Mask) {
	_, n := m.DecodeArg1()
	prev := in.lineno
	if int(n) != prev+1 {
		in.lineTime = 0
	}
	in.lineno = int(n)
	in.writeTrace(prev)
}

func (in *Interpreter) writeTrace(prevLine int) {
	if in.TraceMode == TraceNone || in.TraceWriter == nil {
		return
	}
	var tval int64
	switch in.TraceMode {
	case TraceTicks:
		tval = in.time
	case TraceSecs:
		tval = in.lineTime * int64(in.clockPeriod)
	}
	if in.lineno == prevLine+1 {
		fmt.Fprintf(in.TraceWriter, "l:%d\n", tval)
	} else {
		fmt.Fprintf(in.TraceWriter, "l:%d:%d\n", tval, in.lineno)
	}
}

// execAttack sets (or accumulates) the base note from an Attack mask plus
// its optional trailing Arpeggio (spec.md §4.4: "subsequent a commands
// before the event fires accumulate up to two notes... the latter
// overwrites the second slot").
func (in *Interpreter) execAttack(m bytecode.Mask, track synth.Track) {
	_, base := m.DecodeArg1()

	var deltas []int32
	if in.pc < in.buf.Len() && in.buf.MaskAt(in.pc).Op() == bytecode.Arpeggio {
		arp := in.buf.MaskAt(in.pc)
		in.pc++
		_, count := arp.DecodeArg1()
		deltas = make([]int32, count)
		for i := range deltas {
			deltas[i] = in.buf.OperandAt(in.pc).Int32()
			in.pc++
		}
	}

	if !in.attackArmed {
		track.SetNote(base)
		if len(deltas) > 0 {
			track.SetArpeggio(deltas)
		}
		return
	}

	if in.nextAttackCount < 2 {
		in.nextAttack[in.nextAttackCount] = base
		in.nextAttackCount++
	} else {
		in.nextAttack[1] = base
	}
	if len(deltas) > 0 {
		in.pendingArpeggio = deltas
	}
}

func (in *Interpreter) execCall(m bytecode.Mask) {
	_, typ, idx1, idx2 := m.DecodeGrp()

	targetTrack := in.trackIdx
	switch typ {
	case bytecode.GroupGlobal:
		targetTrack = 0
	case bytecode.GroupTrack:
		targetTrack = int(idx2)
	}

	if len(in.callStack) >= MaxCallStackDepth {
		// compile-time group-index bounds make a correctly-compiled program
		// unable to overflow in practice; guard anyway rather than corrupt
		// the stack.
		return
	}
	in.callStack = append(in.callStack, frame{buf: in.buf, pc: in.pc, trackIdx: in.trackIdx})

	in.trackIdx = targetTrack
	in.buf = in.prog.Tracks[targetTrack].Groups[idx1]
	in.pc = 0
}

func (in *Interpreter) execReturn() {
	if len(in.callStack) == 0 {
		return
	}
	top := in.callStack[len(in.callStack)-1]
	in.callStack = in.callStack[:len(in.callStack)-1]
	in.buf = top.buf
	in.pc = top.pc
	in.trackIdx = top.trackIdx
}

// fracTicks converts a compiler n/d tick-fraction pair into an absolute
// tick count. d == 0 means no fraction was given at all, so n is already an
// absolute tick count and is returned unscaled; only a real denominator
// scales n by unit (DefaultStepTicks-derived for *Ticks commands, 1 for
// StepTicks).
func fracTicks(n, d, unit int32) int32 {
	if d == 0 {
		return n
	}
	return n * unit / d
}
