package orchestrator

import "testing"

func TestProgressMapperWithinPhase(t *testing.T) {
	m := &ProgressMapper{}
	got := m.Map(PhaseCrawling, 50)
	want := 15.0 + 0.5*(60-15)
	if got != want {
		t.Errorf("Map(crawling, 50) = %v, want %v", got, want)
	}
}

func TestProgressMapperMonotonic(t *testing.T) {
	m := &ProgressMapper{}
	m.Map(PhaseCrawling, 90)
	got := m.Map(PhaseChunking, 0)
	if got < 15+0.9*(60-15) {
		t.Errorf("expected monotonic clamp, got %v", got)
	}
}

func TestProgressMapperClampsOutOfRange(t *testing.T) {
	m := &ProgressMapper{}
	if got := m.Map(PhaseDiscovery, 150); got != 15 {
		t.Errorf("expected clamp to phase end 15, got %v", got)
	}
	m.Reset()
	if got := m.Map(PhaseDiscovery, -10); got != 5 {
		t.Errorf("expected clamp to phase start 5, got %v", got)
	}
}

func TestProgressMapperUnknownPhase(t *testing.T) {
	m := &ProgressMapper{}
	m.Map(PhaseCrawling, 100)
	got := m.Map(Phase("bogus"), 50)
	if got != 60 {
		t.Errorf("expected unknown phase to return last value 60, got %v", got)
	}
}

func TestProgressMapperReset(t *testing.T) {
	m := &ProgressMapper{}
	m.Map(PhaseCompleted, 100)
	m.Reset()
	if got := m.Map(PhaseInitializing, 0); got != 0 {
		t.Errorf("expected reset to clear monotonic floor, got %v", got)
	}
}
