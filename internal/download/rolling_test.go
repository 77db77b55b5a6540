package download

import "testing"

func TestRollingWindowEmptyMean(t *testing.T) {
	w := NewRollingWindow()
	if got := w.Mean(); got != 0 {
		t.Errorf("expected 0 mean on empty window, got %d", got)
	}
}

func TestRollingWindowWarmup(t *testing.T) {
	w := NewRollingWindow()
	w.Update(100)
	w.Update(200)
	w.Update(300)

	// Only the three filled slots count; zeros in the rest of the ring must
	// not drag the average down.
	if got := w.Mean(); got != 200 {
		t.Errorf("expected mean 200, got %d", got)
	}
}

func TestRollingWindowWraparound(t *testing.T) {
	w := NewRollingWindow()
	for i := 0; i < rollingWindowSize; i++ {
		w.Update(10)
	}
	// Overwrite the full ring with a new value
	for i := 0; i < rollingWindowSize; i++ {
		w.Update(50)
	}
	if got := w.Mean(); got != 50 {
		t.Errorf("expected mean 50 after wraparound, got %d", got)
	}
}

func TestRollingWindowReset(t *testing.T) {
	w := NewRollingWindow()
	w.Update(500)
	w.Reset()

	if got := w.Mean(); got != 0 {
		t.Errorf("expected 0 mean after reset, got %d", got)
	}
	w.Update(42)
	if got := w.Mean(); got != 42 {
		t.Errorf("expected mean 42 after reset+update, got %d", got)
	}
}

func TestControlFlagTransitions(t *testing.T) {
	c := NewControl(FlagStop)
	if c.Get() != FlagStop {
		t.Fatal("expected initial stop")
	}
	c.Set(FlagGo)
	if c.Get() != FlagGo {
		t.Fatal("expected go after set")
	}
	c.Set(FlagWait)
	if c.Get() != FlagWait {
		t.Fatal("expected wait after set")
	}
}
