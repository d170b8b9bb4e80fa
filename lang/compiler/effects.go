package compiler

// EffectID is the 16-bit effect discriminator packed as the Effect
// instruction's arg1 (spec.md §9 Open Question: "the newer TK pipeline"
// uses a 16-bit effect id, not the older 8-bit encoding).
type EffectID int32

const (
	EffectPortamento EffectID = iota
	EffectPanningSlide
	EffectTremolo
	EffectVibrato
	EffectVolumeSlide
)

// effectNames is grounded directly on bliparser/BKCompiler2.c's effectNames
// lookup table (pr/ps/tr/vb/vs).
var effectNames = map[string]EffectID{
	"pr": EffectPortamento,
	"ps": EffectPanningSlide,
	"tr": EffectTremolo,
	"vb": EffectVibrato,
	"vs": EffectVolumeSlide,
}

func lookupEffect(name string) (EffectID, bool) {
	id, ok := effectNames[name]
	return id, ok
}
