// Package synth declares the contract a real-time audio synthesis engine
// must implement to be driven by lang/vm (spec.md §6.3, "Synth engine
// contract consumed"): one Track per interpreter and one RenderContext
// shared by every track attached to a Context. This package defines no
// implementation — audio DSP is explicitly out of scope (spec.md §1's
// Non-goals) — only the narrow read side the interpreter writes through.
package synth

import "github.com/mna/bktk/lang/compiler"

// Track receives every attribute mutation a single interpreter produces as
// it executes a track's byte code. Every method corresponds to exactly one
// bytecode opcode or a closely related pair (spec.md §6.3).
type Track interface {
	// SetNote sets the currently sounding pitch, in signed cents.
	SetNote(cents int32)
	// SetRelease begins the release phase of the current note's envelope.
	SetRelease()
	// SetMute silences the track immediately.
	SetMute()

	SetVolume(v int32)
	SetMasterVolume(v int32)
	SetPanning(v int32)
	SetPitch(v int32)
	SetDutyCycle(v int32)
	SetPhaseWrap(v int32)

	// SetArpeggio installs the deltas (in cents, relative to the current
	// note) applied around the base note; an empty slice disables arpeggio.
	SetArpeggio(deltas []int32)
	// SetArpeggioDivider sets how many ticks elapse between arpeggio steps.
	SetArpeggioDivider(ticks int32)

	// SetWaveform selects a built-in waveform when custom is nil, or a
	// user-defined frame table otherwise.
	SetWaveform(id compiler.WaveformID, custom *compiler.Waveform)
	// SetInstrument binds an instrument envelope, or clears it when nil.
	SetInstrument(i *compiler.Instrument)

	// SetSample binds a sample definition, or clears it when nil.
	SetSample(s *compiler.Sample)
	SetSampleRange(from, to int32)
	SetSampleSustainRange(from, to int32)
	SetSampleRepeat(mode compiler.SampleRepeatMode)

	// SetEffect installs effect id with its three integer parameters (the
	// middle one is already pitch-scaled by the compiler).
	SetEffect(id compiler.EffectID, p1, amp, p2 int32)
}

// RenderContext receives attributes that apply to the whole rendering
// session rather than to one track (spec.md §6.3: "It sets these attributes
// on the enclosing render context: ClockPeriod").
type RenderContext interface {
	// SetClockPeriod sets the wall-clock length of one tick, driven by the
	// `tr` command.
	SetClockPeriod(period int32)
}
