package compiler

import (
	"strconv"
	"strings"

	"github.com/mna/bktk/internal/scale"
)

// MinNote and MaxNote clamp the resolved semitone index before scaling to
// cents, matching bliparser/BKCompiler2.c's BK_MIN_NOTE/BK_MAX_NOTE clamp.
const (
	MinNote = 0
	MaxNote = 119 // 9 octaves * 12 semitones + 11, a generous ambitus
)

// noteNames is grounded on bliparser/BKCompiler2.c's noteNames lookup
// table: note letter (plus optional '#') to semitone-within-octave index.
var noteNames = map[string]int{
	"a": 9, "a#": 10,
	"b": 11,
	"c": 0, "c#": 1,
	"d": 2, "d#": 3,
	"e": 4,
	"f": 5, "f#": 6,
	"g": 7, "g#": 8,
	"h": 11, // alias for b, kept from the original table
}

// parseNote parses a note token of the form `<letter>[#]<octave>[+-cents]`,
// e.g. "c4", "d#3", "a2+56", "a#2-26", returning the pitch in cents
// (note*100 + cents, per spec.md §4.3's Attack row), and false if name does
// not look like a note at all.
func parseNote(name string) (cents int32, ok bool) {
	i := 0
	for i < len(name) && (isAlpha(name[i]) || name[i] == '#') && i < 2 {
		i++
	}
	if i == 0 {
		return 0, false
	}
	letter := name[:i]
	semitone, known := noteNames[letter]
	if !known {
		return 0, false
	}
	rest := name[i:]

	// split rest into a leading unsigned octave digits run, then an optional
	// +/- signed cents offset.
	j := 0
	for j < len(rest) && rest[j] >= '0' && rest[j] <= '9' {
		j++
	}
	if j == 0 {
		return 0, false
	}
	octave, err := strconv.Atoi(rest[:j])
	if err != nil {
		return 0, false
	}

	pitchOffset := 0
	if j < len(rest) {
		sign := rest[j]
		if sign != '+' && sign != '-' {
			return 0, false
		}
		n, err := strconv.Atoi(rest[j+1:])
		if err != nil {
			return 0, false
		}
		if sign == '-' {
			n = -n
		}
		pitchOffset = n
	}

	note := semitone + octave*12
	note = scale.Clamp(note, MinNote, MaxNote)
	return int32(note*100 + pitchOffset), true
}

func isAlpha(c byte) bool { return c >= 'a' && c <= 'z' }

// parseArpeggioNotes parses the head note plus the `:`-separated chord
// notes that may follow an `a` command's argument list, returning the base
// note in cents and the remaining notes as signed deltas from it (spec.md
// §4.3's Attack row and §4.4's "Arpeggio and explicit chord... packed as
// signed deltas").
func parseArpeggioNotes(args []string) (base int32, deltas []int32, ok bool) {
	if len(args) == 0 {
		return 0, nil, false
	}
	base, ok = parseNote(args[0])
	if !ok {
		return 0, nil, false
	}
	for _, a := range args[1:] {
		n, ok := parseNote(a)
		if !ok {
			return 0, nil, false
		}
		deltas = append(deltas, n-base)
	}
	return base, deltas, true
}

// splitFraction parses an optional "n/d" numerator/denominator pair used by
// *Ticks and TickRate commands; a bare "n" yields denominator 0, meaning
// "ticks absolute" rather than a fraction of a step (spec.md §4.3).
func splitFraction(s string) (num, den int32, ok bool) {
	n, d, found := strings.Cut(s, "/")
	ni, err := strconv.Atoi(n)
	if err != nil {
		return 0, 0, false
	}
	if !found {
		return int32(ni), 0, true
	}
	di, err := strconv.Atoi(d)
	if err != nil {
		return 0, 0, false
	}
	return int32(ni), int32(di), true
}
