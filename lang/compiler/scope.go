package compiler

// ScopeKind discriminates the three places a compiled command's bytes can
// land, replacing the original compiler's implicit "current track/current
// group" mutable globals (spec.md §9, Design Note "global mutable state")
// with an explicit value passed down the tree walk.
type ScopeKind uint8

const (
	ScopeGlobal ScopeKind = iota
	ScopeTrack
	ScopeTrackGroup
)

// Scope identifies the byte buffer a command currently being compiled should
// be appended to.
type Scope struct {
	Kind    ScopeKind
	TrackID int
	GroupID int // only meaningful when Kind == ScopeTrackGroup
}

// Global is the scope commands at the top of the source (outside any track)
// compile into; it is track 0, the implicit global track.
func Global() Scope { return Scope{Kind: ScopeGlobal, TrackID: 0} }

// Track returns the scope for commands directly inside a `track` group.
func Track(id int) Scope { return Scope{Kind: ScopeTrack, TrackID: id} }

// TrackGroup returns the scope for commands inside a `grp` group nested
// within track id.
func TrackGroup(trackID, groupID int) Scope {
	return Scope{Kind: ScopeTrackGroup, TrackID: trackID, GroupID: groupID}
}
