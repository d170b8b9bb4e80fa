package compiler

import (
	"github.com/mna/bktk/internal/scale"
	"github.com/mna/bktk/lang/token"
)

// Scaling constants for sequence values (spec.md §4.3: "Values are scaled
// to their domains").
//
// The original's pitch values are fixed-point FINT20 (20 fractional bits)
// scaled by FINT20_UNIT/100; this port represents pitch uniformly as plain
// integer cents everywhere (parseNote's note*100+cents, the `pt` command's
// "raw cents", and an effect's pitch-domain amplitude), so PitchUnit
// collapses to 1: a deliberate simplification of the original's fixed-point
// representation, not a scaling factor that needs to match FINT20_UNIT/100.
const (
	MaxVolume = 65535
	PitchUnit = 1
)

func scaleVolume(v int32) int32    { return scale.Linear(v, 255, int32(MaxVolume)) }
func scalePitch(v int32) int32     { return v * PitchUnit }
func scaleDutyCycle(v int32) int32 { return v }

// Sequence is a flat envelope: N values plus a repeat range (begin, length)
// marked in the source by the `<`/`>` bracket tokens (spec.md §4.3's
// sequence grammar). An empty repeat range defaults to the sequence's tail.
type Sequence struct {
	Values       []int32
	RepeatBegin  int
	RepeatLength int
}

// PhaseEnvelope is the alternate "nv" form: pairs of (steps, value) instead
// of a flat per-step sequence.
type PhaseEnvelope struct {
	Steps  []int32
	Values []int32
}

// ADSR configures an attack/decay/sustain/release envelope (spec.md §4.3's
// `adsr` sub-command).
type ADSR struct {
	Attack, Decay, Sustain, Release int32
}

// Instrument is the compile-time representation of an `instr` definition.
type Instrument struct {
	Index  uint32
	Name   string
	Offset token.Position

	Volume    *Sequence
	VolumeNV  *PhaseEnvelope
	Pitch     *Sequence
	PitchNV   *PhaseEnvelope
	Panning   *Sequence
	PanningNV *PhaseEnvelope
	DutyCycle *Sequence
	DutyNV    *PhaseEnvelope

	ADSR *ADSR
}

// Waveform is the compile-time representation of a `wave` definition: a
// small custom frame table (spec.md §3: "frame sequence, small, 2..64
// frames").
type Waveform struct {
	Index  uint32
	Name   string
	Offset token.Position
	Frames []int32
}

// SampleRepeatMode is the `dr` command's enum (spec.md §4.3's SampleRepeat
// row: "no/rep/pal").
type SampleRepeatMode uint8

const (
	SampleRepeatNone SampleRepeatMode = iota
	SampleRepeatRepeat
	SampleRepeatPalindrome
)

var sampleRepeatNames = map[string]SampleRepeatMode{
	"no":  SampleRepeatNone,
	"rep": SampleRepeatRepeat,
	"pal": SampleRepeatPalindrome,
}

// Sample is the compile-time representation of a `samp` definition. WAV
// loading is deferred to Context construction (spec.md §4.3: "WAV loading
// is deferred to Context creation"); this struct just records the request.
type Sample struct {
	Index  uint32
	Name   string
	Offset token.Position

	WAVPath    string // set by `load wav "path"`, empty if embedded data was used
	Data       []byte // set by `data bits[s|u][b|l] <base64>`, nil if WAV-loaded
	DataSigned bool
	DataBits   int
	DataBigEnd bool

	PitchCents int32
	Repeat     SampleRepeatMode

	HasRange       bool
	RangeFrom      int32
	RangeTo        int32
	HasSustain     bool
	SustainFrom    int32
	SustainTo      int32
}

// validateRanges checks the structural invariant that does not depend on
// the sample's eventual frame count (spec.md's supplemented "sustain/repeat
// range validation" feature, grounded on BKTKCompiler.c's range checks): a
// range or sustain range must not be inverted. The bound check against the
// sample's actual frame count happens later, in the context package, once
// the WAV (or embedded data) has been loaded and its length is known.
func (s *Sample) validateRanges() (msg string, bad bool) {
	if s.HasRange && s.RangeFrom > s.RangeTo {
		return "sample range start is after its end", true
	}
	if s.HasSustain && s.SustainFrom > s.SustainTo {
		return "sustain range start is after its end", true
	}
	if s.HasRange && s.HasSustain && s.SustainFrom > s.RangeTo {
		return "sustain range starts after the sample range ends", true
	}
	return "", false
}
