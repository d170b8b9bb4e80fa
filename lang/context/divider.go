package context

// divider is one track's beat divider (GLOSSARY: "a Context facility that
// invokes a callback every N ticks; each track owns one, with N = the last
// advance return value"). It batches the master clock's per-callback tick
// count until the interpreter's own requested period has elapsed, then
// fires once with however many ticks actually accumulated.
type divider struct {
	period    int32 // ticks until the next fire is due; 1 until the first Advance sets it
	elapsed   int32 // ticks accumulated since the last fire
}

func newDivider() *divider {
	return &divider{period: 1}
}

// tick accumulates masterTicks and reports whether the divider's period has
// elapsed, returning the ticks to hand the interpreter's Advance in that
// case.
func (d *divider) tick(masterTicks int32) (due bool, elapsed int32) {
	d.elapsed += masterTicks
	if d.elapsed < d.period {
		return false, 0
	}
	elapsed = d.elapsed
	d.elapsed = 0
	return true, elapsed
}

// setPeriod records the tick count an Advance call just asked to be run
// again in; it becomes this divider's next period.
func (d *divider) setPeriod(ticksUntilNext int32) {
	if ticksUntilNext <= 0 {
		ticksUntilNext = 1
	}
	d.period = ticksUntilNext
}

// reset returns the divider to its initial state, matching a Context reset
// returning every interpreter to its initial PC (spec.md §5).
func (d *divider) reset() {
	d.period = 1
	d.elapsed = 0
}
