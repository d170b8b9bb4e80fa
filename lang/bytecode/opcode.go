// Package bytecode defines the 32-bit packed instruction format emitted by
// the compiler and consumed by the linker and interpreter (spec.md §3, §6.2).
package bytecode

import "fmt"

// Increment this to force recompilation of any persisted bytecode.
const Version = 0

// Opcode is the 6-bit instruction discriminator packed into every Mask.
type Opcode uint8

//nolint:revive
const (
	NOP Opcode = iota

	// track/global state
	Volume
	MasterVolume
	Panning
	Pitch
	DutyCycle
	PhaseWrap

	// note control
	Attack
	Arpeggio
	Release
	Mute
	AttackTicks
	ReleaseTicks
	MuteTicks

	// resource binding
	Instrument
	Waveform
	Sample

	// sample shaping
	SampleRange
	SampleSustainRange
	SampleRepeat

	// effects
	Effect

	// timing
	Step
	Ticks
	StepTicks
	StepTicksTrack
	TickRate
	LineNo

	// control flow
	GroupJump // unresolved, rewritten to Call by the linker
	Call
	Return
	Jump
	RepeatStart
	End

	opcodeMax = End
)

// maskShape is the bit layout a given Opcode is packed with.
type maskShape uint8

const (
	shapeArg1 maskShape = iota // {cmd:6, arg1:26 signed}
	shapeArg2                  // {cmd:6, arg1:13 signed, arg2:13 signed}
	shapeGrp                   // {cmd:6, type:2, idx1:12 signed, idx2:12 signed}
)

var opcodeNames = [...]string{
	NOP:                "nop",
	Volume:             "volume",
	MasterVolume:       "mastervolume",
	Panning:            "panning",
	Pitch:              "pitch",
	DutyCycle:          "dutycycle",
	PhaseWrap:          "phasewrap",
	Attack:             "attack",
	Arpeggio:           "arpeggio",
	Release:            "release",
	Mute:               "mute",
	AttackTicks:        "attackticks",
	ReleaseTicks:       "releaseticks",
	MuteTicks:          "muteticks",
	Instrument:         "instrument",
	Waveform:           "waveform",
	Sample:             "sample",
	SampleRange:        "samplerange",
	SampleSustainRange: "samplesustainrange",
	SampleRepeat:       "samplerepeat",
	Effect:             "effect",
	Step:               "step",
	Ticks:              "ticks",
	StepTicks:          "stepticks",
	StepTicksTrack:     "stepstickstrack",
	TickRate:           "tickrate",
	LineNo:             "lineno",
	GroupJump:          "groupjump",
	Call:               "call",
	Return:             "return",
	Jump:               "jump",
	RepeatStart:        "repeatstart",
	End:                "end",
}

var opcodeShapes = [...]maskShape{
	Volume:             shapeArg1,
	MasterVolume:       shapeArg1,
	Panning:            shapeArg1,
	Pitch:              shapeArg1,
	DutyCycle:          shapeArg1,
	PhaseWrap:          shapeArg1,
	Attack:             shapeArg1,
	Arpeggio:           shapeArg1,
	AttackTicks:        shapeArg2,
	ReleaseTicks:       shapeArg2,
	MuteTicks:          shapeArg2,
	Instrument:         shapeArg1,
	Waveform:           shapeArg1,
	Sample:             shapeArg1,
	SampleRange:        shapeArg1,
	SampleSustainRange: shapeArg1,
	SampleRepeat:       shapeArg1,
	Effect:             shapeArg1,
	Step:               shapeArg1,
	Ticks:              shapeArg1,
	StepTicks:          shapeArg2,
	StepTicksTrack:     shapeArg2,
	TickRate:           shapeArg2,
	LineNo:             shapeArg1,
	GroupJump:          shapeGrp,
	Call:               shapeGrp,
	Jump:               shapeArg1,
}

func (op Opcode) String() string {
	if op <= opcodeMax {
		if name := opcodeNames[op]; name != "" {
			return name
		}
	}
	return fmt.Sprintf("illegal opcode (%d)", op)
}

// Shape reports which of the three 32-bit layouts op is packed with.
func (op Opcode) Shape() maskShape {
	if op <= opcodeMax {
		return opcodeShapes[op]
	}
	return shapeArg1
}
