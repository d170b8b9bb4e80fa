package context

import "testing"

func TestDividerBatchesUntilPeriodElapses(t *testing.T) {
	d := newDivider()
	d.setPeriod(4)

	if due, _ := d.tick(1); due {
		t.Fatal("expected not due after 1 of 4 ticks")
	}
	if due, _ := d.tick(2); due {
		t.Fatal("expected not due after 3 of 4 ticks")
	}
	due, elapsed := d.tick(1)
	if !due || elapsed != 4 {
		t.Fatalf("expected due with elapsed=4, got due=%v elapsed=%d", due, elapsed)
	}
}

func TestDividerClampsNonPositivePeriod(t *testing.T) {
	d := newDivider()
	d.setPeriod(0)
	if d.period != 1 {
		t.Fatalf("expected setPeriod(0) to clamp to 1, got %d", d.period)
	}
}

func TestDividerResetClearsAccumulation(t *testing.T) {
	d := newDivider()
	d.setPeriod(10)
	d.tick(5)
	d.reset()
	if d.period != 1 || d.elapsed != 0 {
		t.Fatalf("expected reset to restore period=1 elapsed=0, got period=%d elapsed=%d", d.period, d.elapsed)
	}
}
