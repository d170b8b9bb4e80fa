package compiler

import (
	"github.com/mna/bktk/lang/bytecode"
	"github.com/mna/bktk/lang/token"
)

// Track is the compile-time representation of a `track` group (track 0 is
// the implicit global track and is always present). Its groups are a
// sparse array indexed 0..MaxGroups-1, as named in spec.md §3.
type Track struct {
	Index      int
	Offset     token.Position
	WaveformID int32 // built-in WaveformID or a custom index with CustomWaveformFlag set
	Buffer     bytecode.Buffer
	Groups     []*bytecode.Buffer // nil entries are unused slots
}

func newTrack(index int, pos token.Position) *Track {
	return &Track{Index: index, Offset: pos, Groups: make([]*bytecode.Buffer, 0, 4)}
}

// groupBuffer returns (creating if necessary) the buffer for group idx
// within the track, per the "next free slot" / "fill slots with empty
// buffers" allocation scheme in bliparser/BKCompiler2.c's
// BKCompiler2GetCmdGroupForIndex.
func (tr *Track) groupBuffer(idx int) *bytecode.Buffer {
	for len(tr.Groups) <= idx {
		tr.Groups = append(tr.Groups, nil)
	}
	if tr.Groups[idx] == nil {
		tr.Groups[idx] = &bytecode.Buffer{}
	}
	return tr.Groups[idx]
}

// nextFreeGroup returns the lowest group index with no buffer yet.
func (tr *Track) nextFreeGroup() int {
	for i, g := range tr.Groups {
		if g == nil {
			return i
		}
	}
	return len(tr.Groups)
}

// GroupJumpSite records a `g` command's unresolved target so the linker can
// rewrite the GroupJump mask in place once every track/group exists
// (spec.md §4.3's Linking paragraph: "for each GroupJump mask read the
// follow-on line/col, resolve the target... and overwrite the mask with a
// Call").
type GroupJumpSite struct {
	SiteTrack  int // the track whose buffer holds the GroupJump mask
	SiteGroup  int // -1 if the mask lives in the track's main buffer, else a group index
	SiteOffset int // word offset of the GroupJump mask within that buffer
	Type       bytecode.GroupType
	TargetTrack int
	TargetGroup int
	Pos         token.Position
}

// Buffer returns the buffer the jump site's GroupJump mask actually lives
// in, following SiteTrack/SiteGroup back into the Program.
func (s GroupJumpSite) Buffer(p *Program) *bytecode.Buffer {
	tr := p.Tracks[s.SiteTrack]
	if s.SiteGroup < 0 {
		return &tr.Buffer
	}
	return tr.Groups[s.SiteGroup]
}

// Program is the compiler's output: every resolved resource table plus the
// per-track byte buffers, ready for the linker.
type Program struct {
	Instruments *symtab
	Waveforms   *symtab
	Samples     *symtab

	InstrumentDefs []*Instrument
	WaveformDefs   []*Waveform
	SampleDefs     []*Sample

	Tracks    []*Track // sparse, index 0 is global; nil entries are unused
	JumpSites []GroupJumpSite
}

func newProgram() *Program {
	p := &Program{
		Instruments: newSymtab("instrument"),
		Waveforms:   newSymtab("waveform"),
		Samples:     newSymtab("sample"),
		Tracks:      make([]*Track, 1, MaxTracks),
	}
	p.Tracks[0] = newTrack(0, token.Position{})
	return p
}

// track returns (creating if necessary) the Track at idx.
func (p *Program) track(idx int) *Track {
	for len(p.Tracks) <= idx {
		p.Tracks = append(p.Tracks, nil)
	}
	if p.Tracks[idx] == nil {
		p.Tracks[idx] = newTrack(idx, token.Position{})
	}
	return p.Tracks[idx]
}

// nextFreeTrack returns the lowest track index (excluding 0, the global
// track) with no Track yet defined, per the `-1` "next free slot" rule
// (spec.md §4.3's Symbol tables paragraph).
func (p *Program) nextFreeTrack() int {
	for i := 1; i < len(p.Tracks); i++ {
		if p.Tracks[i] == nil {
			return i
		}
	}
	if len(p.Tracks) == 0 {
		return 1
	}
	return len(p.Tracks)
}

// bufferFor returns the byte buffer a Scope currently compiles into.
func (p *Program) bufferFor(s Scope) *bytecode.Buffer {
	tr := p.track(s.TrackID)
	if s.Kind == ScopeTrackGroup {
		return tr.groupBuffer(s.GroupID)
	}
	return &tr.Buffer
}
