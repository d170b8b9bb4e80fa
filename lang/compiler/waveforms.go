package compiler

// WaveformID enumerates the synth engine's built-in waveforms. A `w`
// command naming one of these compiles directly to the matching id; any
// other name is resolved against the waveform symbol table and flagged
// with CustomWaveformFlag so the interpreter knows to dereference it as a
// user-defined waveform index rather than a built-in enum value.
type WaveformID int32

const (
	WaveformSquare WaveformID = iota
	WaveformTriangle
	WaveformNoise
	WaveformSawtooth
	WaveformSine
)

// CustomWaveformFlag is ORed into a Waveform instruction's arg1 when the
// value is a custom waveform table index rather than one of the built-ins
// above (spec.md §4.3: "BK_INTR_CUSTOM_WAVEFORM_FLAG").
const CustomWaveformFlag int32 = 1 << 20

// builtinWaveforms is grounded on bliparser/BKCompiler2.c's waveformNames
// table; the short spec.md §4.3 names (sqr/tri/noi/saw/sin) are kept as the
// surface syntax since that's what the distilled source-language examples
// use, while the underlying enum values mirror the original's ordering.
var builtinWaveforms = map[string]WaveformID{
	"sqr": WaveformSquare,
	"tri": WaveformTriangle,
	"noi": WaveformNoise,
	"saw": WaveformSawtooth,
	"sin": WaveformSine,
}

func lookupBuiltinWaveform(name string) (WaveformID, bool) {
	id, ok := builtinWaveforms[name]
	return id, ok
}
