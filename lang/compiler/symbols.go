package compiler

import (
	"fmt"
	"strconv"

	"github.com/dolthub/swiss"

	"github.com/mna/bktk/lang/diag"
	"github.com/mna/bktk/lang/token"
)

// MaxTracks and MaxGroups bound the sparse per-track/per-group index arrays
// (spec.md §8 boundary behaviors). They are vars, not consts, so
// internal/config.Config.Apply can override the compiled-in defaults from
// a loaded runtime-limits file before Compile runs.
var (
	MaxTracks = 256
	MaxGroups = 256
)

// symtab assigns stable indices to named instruments/waveforms/samples,
// auto-generating a name ("<count>") for anonymous definitions and
// rejecting redefinitions, per spec.md §4.3 ("Instruments, waveforms,
// samples: hash map name -> object + stable index. A missing explicit name
// auto-generates "<count>". Redefinition with the same auto-index or same
// explicit index is an error, reported with both the prior and current
// offsets.").
//
// Grounded on the teacher's lang/machine/map.go use of
// github.com/dolthub/swiss for its Value-keyed maps: swiss.Map is used here
// the same way, keyed by resource name instead of an interpreter Value.
type symtab struct {
	kind    string // "instrument", "waveform", or "sample", for error messages
	byName  *swiss.Map[string, uint32]
	offsets []token.Position // index -> defining offset, for redefinition errors
	count   uint32
}

func newSymtab(kind string) *symtab {
	return &symtab{kind: kind, byName: swiss.NewMap[string, uint32](8)}
}

// Define resolves name (possibly empty, meaning auto-generate one) to a
// stable index. It reports a Semantic diagnostic on redefinition.
func (s *symtab) Define(name string, pos token.Position, diags *diag.List) (index uint32, resolvedName string) {
	if name == "" {
		name = strconv.FormatUint(uint64(s.count), 10)
	}
	if prior, ok := s.byName.Get(name); ok {
		diags.Add(diag.Semantic, pos,
			"%s %q redefined (first defined at %s)", s.kind, name, s.offsets[prior])
		return prior, name
	}
	idx := s.count
	s.count++
	s.byName.Put(name, idx)
	s.offsets = append(s.offsets, pos)
	return idx, name
}

// Resolve looks up a previously defined name, reporting a Semantic
// diagnostic if it is undefined.
func (s *symtab) Resolve(name string, pos token.Position, diags *diag.List) (index uint32, ok bool) {
	idx, found := s.byName.Get(name)
	if !found {
		diags.Add(diag.Semantic, pos, "undefined %s %q", s.kind, name)
		return 0, false
	}
	return idx, true
}

// Len reports how many entries have been defined.
func (s *symtab) Len() int { return int(s.count) }

func (s *symtab) String() string { return fmt.Sprintf("%s symtab (%d entries)", s.kind, s.count) }
