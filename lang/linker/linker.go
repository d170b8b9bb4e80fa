// Package linker resolves the compiler's unresolved GroupJump masks into
// Call masks once every track and group in the Program is known (spec.md
// §4.3's Linking paragraph: "after the tree is consumed, walk every byte
// buffer; for each GroupJump mask... resolve the target... and overwrite the
// mask with a Call").
package linker

import (
	"github.com/mna/bktk/lang/bytecode"
	"github.com/mna/bktk/lang/compiler"
	"github.com/mna/bktk/lang/diag"
	"github.com/mna/bktk/lang/token"
)

// Link rewrites every GroupJump site in prog in place, returning the
// accumulated diagnostics (as a *diag.List wrapped error) if any target
// could not be resolved.
func Link(prog *compiler.Program) error {
	var diags diag.List

	for _, site := range prog.JumpSites {
		resolveSite(prog, site, &diags)
	}
	for _, tr := range prog.Tracks {
		if tr == nil {
			continue
		}
		checkTerminator(&tr.Buffer, bytecode.End, tr.Offset, "track", &diags)
		rejectStrayJumps(&tr.Buffer, tr.Offset, &diags)
		for _, g := range tr.Groups {
			if g == nil {
				continue
			}
			checkTerminator(g, bytecode.Return, tr.Offset, "group", &diags)
			rejectStrayJumps(g, tr.Offset, &diags)
		}
	}

	return diags.Err()
}

// resolveSite validates a single GroupJumpSite's target and, if valid,
// overwrites its GroupJump mask with a Call mask carrying the same
// type/idx1/idx2 fields: the interpreter resolves a Call by indexing
// directly into the Program's track/group tables, so no byte-offset
// arithmetic is needed (spec.md §9's Design Note on cyclic byte-code
// references is satisfied by indices rather than raw pointers).
func resolveSite(prog *compiler.Program, site compiler.GroupJumpSite, diags *diag.List) {
	if site.TargetTrack < 0 || site.TargetTrack >= len(prog.Tracks) || prog.Tracks[site.TargetTrack] == nil {
		diags.Add(diag.Reference, site.Pos, "jump target track %d is not defined", site.TargetTrack)
		return
	}
	target := prog.Tracks[site.TargetTrack]
	if site.TargetGroup < 0 || site.TargetGroup >= len(target.Groups) || target.Groups[site.TargetGroup] == nil {
		diags.Add(diag.Reference, site.Pos, "jump target group %d on track %d is not defined", site.TargetGroup, site.TargetTrack)
		return
	}

	buf := site.Buffer(prog)
	mask := buf.MaskAt(site.SiteOffset)
	_, typ, idx1, idx2 := mask.DecodeGrp()
	buf.SetMaskAt(site.SiteOffset, bytecode.EncodeGrp(bytecode.Call, typ, idx1, idx2))
}

// checkTerminator reports a Semantic diagnostic if buf does not end with
// want, a structural invariant every compiled buffer must hold (every track
// ends in End, every group ends in Return) before the interpreter can trust
// it never falls off the end.
func checkTerminator(buf *bytecode.Buffer, want bytecode.Opcode, pos token.Position, kind string, diags *diag.List) {
	if buf.Len() == 0 || buf.MaskAt(buf.Len()-1).Op() != want {
		diags.Add(diag.Semantic, pos, "%s buffer does not end with %s", kind, want)
	}
}

// rejectStrayJumps enforces the resolved decision that any Jump mask found
// in a linked program must carry the sentinel -1 target (the `x` command is
// the only source of a Jump mask, and it always emits -1; this guards
// against a future instruction or a corrupted buffer introducing a
// non-sentinel Jump, which this linker does not know how to resolve to a
// byte offset).
func rejectStrayJumps(buf *bytecode.Buffer, pos token.Position, diags *diag.List) {
	for i := 0; i < buf.Len(); i++ {
		m := buf.MaskAt(i)
		if m.Op() != bytecode.Jump {
			continue
		}
		_, arg1 := m.DecodeArg1()
		if arg1 != -1 {
			diags.Add(diag.Reference, pos, "jump with non-sentinel target %d is not supported", arg1)
		}
	}
}
