// Package compiler walks a parsed command tree once, in source order
// (spec.md §4.3), dispatching definition groups (track/instr/wave/samp/grp)
// to their own compilers and emitting every other command into the byte
// buffer of its enclosing scope. A resource is defined before a command
// refers to it; group jump targets are resolved later, by the linker. The
// result is a Program ready for the linker.
package compiler

import (
	"strconv"
	"strings"

	"github.com/mna/bktk/internal/scale"
	"github.com/mna/bktk/lang/ast"
	"github.com/mna/bktk/lang/bytecode"
	"github.com/mna/bktk/lang/diag"
	"github.com/mna/bktk/lang/token"
)

type comp struct {
	prog  *Program
	diags diag.List
}

// Compile walks root (as produced by parser.Parser.Finish) and returns the
// resulting Program, or the accumulated diagnostics if anything failed.
func Compile(root *ast.Node) (*Program, error) {
	c := &comp{prog: newProgram()}
	c.compileScope(root, Global())
	c.prog.Tracks[0].Buffer.EmitMask(bytecode.EncodeArg1(bytecode.End, 0))
	if err := c.diags.Err(); err != nil {
		return nil, err
	}
	return c.prog, nil
}

func (c *comp) errorf(pos token.Position, format string, args ...any) {
	c.diags.Add(diag.Semantic, pos, format, args...)
}

// compileScope walks node's children, emitting a LineNo instruction
// whenever the source line changes (spec.md §4.3: "Every new source line
// emits a LineNo instruction").
func (c *comp) compileScope(node *ast.Node, scope Scope) {
	buf := c.prog.bufferFor(scope)
	lastLine := 0
	for _, child := range node.Children() {
		if child.Type == token.Comment {
			continue
		}
		if child.Offset.Line != lastLine {
			buf.EmitMask(bytecode.EncodeArg1(bytecode.LineNo, int32(child.Offset.Line)))
			lastLine = child.Offset.Line
		}
		if child.IsGroup {
			c.compileGroup(child, scope)
		} else {
			c.compileCommand(child, scope, buf)
		}
	}
}

func (c *comp) compileGroup(node *ast.Node, enclosing Scope) {
	switch node.Name {
	case "track":
		c.compileTrackDef(node)
	case "instr":
		c.compileInstrumentDef(node)
	case "wave":
		c.compileWaveformDef(node)
	case "samp":
		c.compileSampleDef(node)
	case "grp":
		c.compileGroupDef(node, enclosing)
	default:
		c.errorf(node.Offset, "unknown group type %q", node.Name)
	}
}

func (c *comp) compileTrackDef(node *ast.Node) {
	idx, ok := c.resolveSlotIndex(node.HeadArgs(), node.Offset, c.prog.nextFreeTrack, MaxTracks, "track")
	if !ok {
		return
	}
	tr := c.prog.track(idx)
	tr.Offset = node.Offset
	tr.WaveformID = int32(WaveformSquare)
	tr.Buffer.EmitMask(bytecode.EncodeArg1(bytecode.Waveform, tr.WaveformID))
	tr.Buffer.EmitMask(bytecode.EncodeArg1(bytecode.RepeatStart, 0))
	c.compileScope(node, Track(idx))
	tr.Buffer.EmitMask(bytecode.EncodeArg1(bytecode.End, 0))
}

func (c *comp) compileGroupDef(node *ast.Node, enclosing Scope) {
	trackID := enclosing.TrackID
	tr := c.prog.track(trackID)
	idx, ok := c.resolveSlotIndex(node.HeadArgs(), node.Offset, tr.nextFreeGroup, MaxGroups, "group")
	if !ok {
		return
	}
	buf := tr.groupBuffer(idx)
	buf.EmitMask(bytecode.EncodeArg1(bytecode.RepeatStart, 0))
	c.compileScope(node, TrackGroup(trackID, idx))
	buf.EmitMask(bytecode.EncodeArg1(bytecode.Return, 0))
}

// resolveSlotIndex parses a track/group's head index argument, honoring the
// "-1 or absent means next free slot" rule (spec.md §4.3).
func (c *comp) resolveSlotIndex(args []string, pos token.Position, nextFree func() int, max int, kind string) (int, bool) {
	idx := -1
	if len(args) > 0 && args[0] != "-1" {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			c.errorf(pos, "invalid %s index %q", kind, args[0])
			return 0, false
		}
		idx = n
	}
	if idx == -1 {
		idx = nextFree()
	}
	if idx < 0 || idx >= max {
		c.errorf(pos, "%s index %d out of range [0,%d)", kind, idx, max)
		return 0, false
	}
	return idx, true
}

func (c *comp) compileInstrumentDef(node *ast.Node) {
	name := ""
	if args := node.HeadArgs(); len(args) > 0 {
		name = args[0]
	}
	idx, resolvedName := c.prog.Instruments.Define(name, node.Offset, &c.diags)
	instr := &Instrument{Index: idx, Name: resolvedName, Offset: node.Offset}

	for _, child := range node.Children() {
		if child.Type == token.Comment {
			continue
		}
		args := child.HeadArgs()
		switch child.Name {
		case "v":
			instr.Volume = c.parseSequence(args, scaleVolume)
		case "vnv":
			instr.VolumeNV = c.parsePhaseEnvelope(args, scaleVolume)
		case "a":
			instr.Pitch = c.parseSequence(args, scalePitch)
		case "anv":
			instr.PitchNV = c.parsePhaseEnvelope(args, scalePitch)
		case "p":
			instr.Panning = c.parseSequence(args, scaleVolume)
		case "pnv":
			instr.PanningNV = c.parsePhaseEnvelope(args, scaleVolume)
		case "dc":
			instr.DutyCycle = c.parseSequence(args, scaleDutyCycle)
		case "dcnv":
			instr.DutyNV = c.parsePhaseEnvelope(args, scaleDutyCycle)
		case "adsr":
			instr.ADSR = c.parseADSR(args, child.Offset)
		default:
			c.errorf(child.Offset, "unknown instrument sub-command %q", child.Name)
		}
	}

	c.setInstrumentDef(idx, instr)
}

func (c *comp) setInstrumentDef(idx uint32, instr *Instrument) {
	for uint32(len(c.prog.InstrumentDefs)) <= idx {
		c.prog.InstrumentDefs = append(c.prog.InstrumentDefs, nil)
	}
	c.prog.InstrumentDefs[idx] = instr
}

func (c *comp) compileWaveformDef(node *ast.Node) {
	name := ""
	if args := node.HeadArgs(); len(args) > 0 {
		name = args[0]
	}
	idx, resolvedName := c.prog.Waveforms.Define(name, node.Offset, &c.diags)
	wf := &Waveform{Index: idx, Name: resolvedName, Offset: node.Offset}

	for _, child := range node.Children() {
		if child.Type == token.Comment {
			continue
		}
		if child.Name != "f" {
			c.errorf(child.Offset, "unknown waveform sub-command %q", child.Name)
			continue
		}
		args := child.HeadArgs()
		if len(args) < 2 || len(args) > 64 {
			c.errorf(child.Offset, "waveform frame count %d out of range [2,64]", len(args))
			continue
		}
		frames := make([]int32, len(args))
		for i, a := range args {
			v, err := strconv.Atoi(a)
			if err != nil {
				c.errorf(child.Offset, "invalid waveform frame value %q", a)
				continue
			}
			frames[i] = int32(v)
		}
		wf.Frames = frames
	}

	for uint32(len(c.prog.WaveformDefs)) <= idx {
		c.prog.WaveformDefs = append(c.prog.WaveformDefs, nil)
	}
	c.prog.WaveformDefs[idx] = wf
}

func (c *comp) compileSampleDef(node *ast.Node) {
	name := ""
	if args := node.HeadArgs(); len(args) > 0 {
		name = args[0]
	}
	idx, resolvedName := c.prog.Samples.Define(name, node.Offset, &c.diags)
	samp := &Sample{Index: idx, Name: resolvedName, Offset: node.Offset}

	for _, child := range node.Children() {
		if child.Type == token.Comment {
			continue
		}
		args := child.HeadArgs()
		switch child.Name {
		case "load":
			if len(args) >= 2 && args[0] == "wav" {
				samp.WAVPath = args[1]
			} else {
				c.errorf(child.Offset, "unsupported sample load form %v", args)
			}
		case "data":
			c.parseSampleData(samp, args, child.Offset)
		case "pt":
			if len(args) >= 1 {
				n, _ := strconv.Atoi(args[0])
				samp.PitchCents = int32(n)
			}
		case "dr":
			if len(args) >= 1 {
				mode, ok := sampleRepeatNames[args[0]]
				if !ok {
					c.errorf(child.Offset, "unknown sample repeat mode %q", args[0])
					continue
				}
				samp.Repeat = mode
			}
		case "dn":
			if from, to, ok := c.parseRangePair(args, child.Offset); ok {
				samp.HasRange, samp.RangeFrom, samp.RangeTo = true, from, to
			}
		case "ds":
			if from, to, ok := c.parseRangePair(args, child.Offset); ok {
				samp.HasSustain, samp.SustainFrom, samp.SustainTo = true, from, to
			}
		default:
			c.errorf(child.Offset, "unknown sample sub-command %q", child.Name)
		}
	}

	if msg, bad := samp.validateRanges(); bad {
		c.errorf(node.Offset, "%s", msg)
	}

	for uint32(len(c.prog.SampleDefs)) <= idx {
		c.prog.SampleDefs = append(c.prog.SampleDefs, nil)
	}
	c.prog.SampleDefs[idx] = samp
}

func (c *comp) parseSampleData(samp *Sample, args []string, pos token.Position) {
	if len(args) < 2 {
		c.errorf(pos, "data command requires a bit-format and a data literal")
		return
	}
	format := args[0]
	samp.DataSigned = strings.Contains(format, "s")
	samp.DataBigEnd = strings.Contains(format, "b")
	switch {
	case strings.HasPrefix(format, "8"):
		samp.DataBits = 8
	case strings.HasPrefix(format, "16"):
		samp.DataBits = 16
	default:
		c.errorf(pos, "unknown sample data bit-width %q", format)
	}
	samp.Data = []byte(args[1])
}

func (c *comp) parseRangePair(args []string, pos token.Position) (from, to int32, ok bool) {
	if len(args) < 2 {
		c.errorf(pos, "range command requires two arguments")
		return 0, 0, false
	}
	f, err1 := strconv.Atoi(args[0])
	t, err2 := strconv.Atoi(args[1])
	if err1 != nil || err2 != nil {
		c.errorf(pos, "invalid range %v", args)
		return 0, 0, false
	}
	return int32(f), int32(t), true
}

// parseSequence parses a flat `<`/`>`-bracketed value sequence (spec.md
// §4.3's sequence grammar).
func (c *comp) parseSequence(args []string, scale func(int32) int32) *Sequence {
	seq := &Sequence{}
	repeatBegin, repeatEnd := -1, -1
	for _, a := range args {
		switch a {
		case "<":
			repeatBegin = len(seq.Values)
		case ">":
			repeatEnd = len(seq.Values)
		default:
			v, err := strconv.Atoi(a)
			if err == nil {
				seq.Values = append(seq.Values, scale(int32(v)))
			}
		}
	}
	if repeatBegin == -1 {
		repeatBegin = len(seq.Values)
	}
	if repeatEnd == -1 {
		repeatEnd = len(seq.Values)
	}
	seq.RepeatBegin = repeatBegin
	seq.RepeatLength = repeatEnd - repeatBegin
	return seq
}

func (c *comp) parsePhaseEnvelope(args []string, scale func(int32) int32) *PhaseEnvelope {
	env := &PhaseEnvelope{}
	for i := 0; i+1 < len(args); i += 2 {
		s, err1 := strconv.Atoi(args[i])
		v, err2 := strconv.Atoi(args[i+1])
		if err1 != nil || err2 != nil {
			continue
		}
		env.Steps = append(env.Steps, int32(s))
		env.Values = append(env.Values, scale(int32(v)))
	}
	return env
}

func (c *comp) parseADSR(args []string, pos token.Position) *ADSR {
	if len(args) != 4 {
		c.errorf(pos, "adsr requires exactly 4 arguments, got %d", len(args))
		return nil
	}
	vals := make([]int32, 4)
	for i, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil {
			c.errorf(pos, "invalid adsr value %q", a)
			return nil
		}
		vals[i] = int32(v)
	}
	return &ADSR{Attack: vals[0], Decay: vals[1], Sustain: vals[2], Release: vals[3]}
}

func parseIntArg(args []string, i int) (int32, bool) {
	if i >= len(args) {
		return 0, false
	}
	v, err := strconv.Atoi(args[i])
	if err != nil {
		return 0, false
	}
	return int32(v), true
}

func (c *comp) compileCommand(node *ast.Node, scope Scope, buf *bytecode.Buffer) {
	args := node.HeadArgs()
	switch node.Name {
	case "v":
		if v, ok := parseIntArg(args, 0); ok {
			buf.EmitMask(bytecode.EncodeArg1(bytecode.Volume, scaleVolume(v)))
		}
	case "vm":
		if v, ok := parseIntArg(args, 0); ok {
			buf.EmitMask(bytecode.EncodeArg1(bytecode.MasterVolume, scaleVolume(v)))
		}
	case "p":
		if v, ok := parseIntArg(args, 0); ok {
			buf.EmitMask(bytecode.EncodeArg1(bytecode.Panning, scaleVolume(v)))
		}
	case "pt":
		if v, ok := parseIntArg(args, 0); ok {
			buf.EmitMask(bytecode.EncodeArg1(bytecode.Pitch, v))
		}
	case "pw":
		if v, ok := parseIntArg(args, 0); ok {
			buf.EmitMask(bytecode.EncodeArg1(bytecode.PhaseWrap, scale.Clamp(v, 0, 1<<20)))
		}
	case "dc":
		if v, ok := parseIntArg(args, 0); ok {
			buf.EmitMask(bytecode.EncodeArg1(bytecode.DutyCycle, scale.Clamp(v, 1, 16)))
		}
	case "a":
		c.compileAttack(node, args, buf)
	case "r":
		buf.EmitMask(bytecode.EncodeArg1(bytecode.Release, 0))
	case "m":
		buf.EmitMask(bytecode.EncodeArg1(bytecode.Mute, 0))
	case "at":
		c.compileTicksCmd(node, args, bytecode.AttackTicks, buf)
	case "rt":
		c.compileTicksCmd(node, args, bytecode.ReleaseTicks, buf)
	case "mt":
		c.compileTicksCmd(node, args, bytecode.MuteTicks, buf)
	case "s":
		if v, ok := parseIntArg(args, 0); ok {
			buf.EmitMask(bytecode.EncodeArg1(bytecode.Step, v))
		}
	case "t":
		if v, ok := parseIntArg(args, 0); ok {
			buf.EmitMask(bytecode.EncodeArg1(bytecode.Ticks, v))
		}
	case "st":
		c.compileTicksCmd(node, args, bytecode.StepTicks, buf)
	case "stt":
		c.compileTicksCmd(node, args, bytecode.StepTicksTrack, buf)
	case "tr":
		c.compileTicksCmd(node, args, bytecode.TickRate, buf)
	case "i":
		if len(args) > 0 {
			if idx, ok := c.prog.Instruments.Resolve(args[0], node.Offset, &c.diags); ok {
				buf.EmitMask(bytecode.EncodeArg1(bytecode.Instrument, int32(idx)))
			}
		}
	case "w":
		c.compileWaveformRef(node, args, buf)
	case "d":
		if len(args) > 0 {
			if idx, ok := c.prog.Samples.Resolve(args[0], node.Offset, &c.diags); ok {
				buf.EmitMask(bytecode.EncodeArg1(bytecode.Sample, int32(idx)))
			}
		}
	case "dn":
		c.compileRangeCmd(node, args, bytecode.SampleRange, buf)
	case "ds":
		c.compileRangeCmd(node, args, bytecode.SampleSustainRange, buf)
	case "dr":
		if len(args) > 0 {
			if mode, ok := sampleRepeatNames[args[0]]; ok {
				buf.EmitMask(bytecode.EncodeArg1(bytecode.SampleRepeat, int32(mode)))
			} else {
				c.errorf(node.Offset, "unknown sample repeat mode %q", args[0])
			}
		}
	case "e":
		c.compileEffect(node, args, buf)
	case "g":
		c.compileGroupJump(node, args, scope, buf)
	case "x":
		buf.EmitMask(bytecode.EncodeArg1(bytecode.Jump, -1))
	case "xb":
		buf.EmitMask(bytecode.EncodeArg1(bytecode.RepeatStart, 0))
	case "z":
		buf.EmitMask(bytecode.EncodeArg1(bytecode.End, 0))
	default:
		c.errorf(node.Offset, "unknown command %q", node.Name)
	}
}

func (c *comp) compileAttack(node *ast.Node, args []string, buf *bytecode.Buffer) {
	base, deltas, ok := parseArpeggioNotes(args)
	if !ok {
		c.errorf(node.Offset, "invalid note in attack command %v", args)
		return
	}
	buf.EmitMask(bytecode.EncodeArg1(bytecode.Attack, base))
	if len(deltas) > 0 {
		buf.EmitMask(bytecode.EncodeArg1(bytecode.Arpeggio, int32(len(deltas))))
		for _, d := range deltas {
			buf.EmitOperand(bytecode.EncodeOperand(d))
		}
	}
}

func (c *comp) compileTicksCmd(node *ast.Node, args []string, op bytecode.Opcode, buf *bytecode.Buffer) {
	if len(args) == 0 {
		c.errorf(node.Offset, "%s requires an argument", node.Name)
		return
	}
	num, den, ok := splitFraction(args[0])
	if !ok {
		c.errorf(node.Offset, "invalid n[/d] value %q", args[0])
		return
	}
	buf.EmitMask(bytecode.EncodeArg2(op, num, den))
}

func (c *comp) compileRangeCmd(node *ast.Node, args []string, op bytecode.Opcode, buf *bytecode.Buffer) {
	from, to, ok := c.parseRangePair(args, node.Offset)
	if !ok {
		return
	}
	buf.EmitMask(bytecode.EncodeArg1(op, 0))
	buf.EmitOperand(bytecode.EncodeOperand(from))
	buf.EmitOperand(bytecode.EncodeOperand(to))
}

func (c *comp) compileWaveformRef(node *ast.Node, args []string, buf *bytecode.Buffer) {
	if len(args) == 0 {
		c.errorf(node.Offset, "w requires a waveform name")
		return
	}
	if id, ok := lookupBuiltinWaveform(args[0]); ok {
		buf.EmitMask(bytecode.EncodeArg1(bytecode.Waveform, int32(id)))
		return
	}
	if idx, ok := c.prog.Waveforms.Resolve(args[0], node.Offset, &c.diags); ok {
		buf.EmitMask(bytecode.EncodeArg1(bytecode.Waveform, int32(idx)|CustomWaveformFlag))
	}
}

func (c *comp) compileEffect(node *ast.Node, args []string, buf *bytecode.Buffer) {
	if len(args) != 4 {
		c.errorf(node.Offset, "effect command requires name:n:amp:n, got %v", args)
		return
	}
	id, ok := lookupEffect(args[0])
	if !ok {
		c.errorf(node.Offset, "unknown effect %q", args[0])
		return
	}
	p1, ok1 := parseIntArg(args, 1)
	amp, ok2 := parseIntArg(args, 2)
	p2, ok3 := parseIntArg(args, 3)
	if !ok1 || !ok2 || !ok3 {
		c.errorf(node.Offset, "invalid effect parameters %v", args)
		return
	}
	buf.EmitMask(bytecode.EncodeArg1(bytecode.Effect, int32(id)))
	buf.EmitOperand(bytecode.EncodeOperand(p1))
	buf.EmitOperand(bytecode.EncodeOperand(scalePitch(amp)))
	buf.EmitOperand(bytecode.EncodeOperand(p2))
}

// parseGroupTarget parses a `g` command's combined index+suffix argument,
// e.g. "0" (local), "0g" (global), "0t5" (track 5) — spec.md §4.3's
// GroupJump row: "idx[g|t N]".
func parseGroupTarget(s string) (typ bytecode.GroupType, idx1, idx2 int32, ok bool) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, 0, 0, false
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil {
		return 0, 0, 0, false
	}
	idx1 = int32(n)
	suffix := s[i:]
	switch {
	case suffix == "":
		return bytecode.GroupLocal, idx1, 0, true
	case suffix == "g":
		return bytecode.GroupGlobal, idx1, 0, true
	case len(suffix) >= 2 && suffix[0] == 't':
		tn, err := strconv.Atoi(suffix[1:])
		if err != nil {
			return 0, 0, 0, false
		}
		return bytecode.GroupTrack, idx1, int32(tn), true
	default:
		return 0, 0, 0, false
	}
}

func (c *comp) compileGroupJump(node *ast.Node, args []string, scope Scope, buf *bytecode.Buffer) {
	if len(args) == 0 {
		c.errorf(node.Offset, "g requires a group target")
		return
	}
	typ, idx1, idx2, ok := parseGroupTarget(args[0])
	if !ok {
		c.errorf(node.Offset, "invalid group target %q", args[0])
		return
	}
	off := buf.EmitMask(bytecode.EncodeGrp(bytecode.GroupJump, typ, idx1, idx2))
	buf.EmitOperand(bytecode.EncodeOperand(int32(node.Offset.Line)))
	buf.EmitOperand(bytecode.EncodeOperand(int32(node.Offset.Col)))

	targetTrack := scope.TrackID
	switch typ {
	case bytecode.GroupGlobal:
		targetTrack = 0
	case bytecode.GroupTrack:
		targetTrack = int(idx2)
	}
	siteGroup := -1
	if scope.Kind == ScopeTrackGroup {
		siteGroup = scope.GroupID
	}
	c.prog.JumpSites = append(c.prog.JumpSites, GroupJumpSite{
		SiteTrack:   scope.TrackID,
		SiteGroup:   siteGroup,
		SiteOffset:  off,
		Type:        typ,
		TargetTrack: targetTrack,
		TargetGroup: int(idx1),
		Pos:         node.Offset,
	})
}
