package orchestrator

import (
	"errors"
	"testing"
)

func TestNewJobStartsCreated(t *testing.T) {
	j := newJob("abc")
	state := j.snapshot()
	if state.Status != StatusCreated {
		t.Errorf("expected StatusCreated, got %v", state.Status)
	}
	if state.Phase != PhaseInitializing {
		t.Errorf("expected PhaseInitializing, got %v", state.Phase)
	}
}

func TestJobUpdateProgressMarksRunning(t *testing.T) {
	j := newJob("abc")
	j.updateProgress(PhaseCrawling, 50, "halfway")
	state := j.snapshot()
	if state.Status != StatusRunning {
		t.Errorf("expected StatusRunning, got %v", state.Status)
	}
	if state.Message != "halfway" {
		t.Errorf("expected message to update, got %q", state.Message)
	}
}

func TestJobSetErrorMarksFailed(t *testing.T) {
	j := newJob("abc")
	j.setError(errors.New("boom"))
	state := j.snapshot()
	if state.Status != StatusFailed {
		t.Errorf("expected StatusFailed, got %v", state.Status)
	}
	if state.Error != "boom" {
		t.Errorf("expected error message, got %q", state.Error)
	}
}

func TestJobFinishSetsResult(t *testing.T) {
	j := newJob("abc")
	j.finish(Result{JobID: "abc", PagesCrawled: 3})
	state := j.snapshot()
	if state.Status != StatusCompleted || state.Overall != 100 {
		t.Errorf("expected completed at 100%%, got %+v", state)
	}
	result, ok := j.snapshotResult()
	if !ok || result.PagesCrawled != 3 {
		t.Errorf("expected result with 3 pages, got %+v", result)
	}
}

func TestJobCancelled(t *testing.T) {
	j := newJob("abc")
	if j.cancelled() {
		t.Error("expected fresh job to not be cancelled")
	}
	j.markCancelled()
	if !j.cancelled() {
		t.Error("expected job to be cancelled")
	}
}

func TestJobSetCountsIgnoresNegative(t *testing.T) {
	j := newJob("abc")
	j.setCounts(5, 4, 3, 2)
	j.setCounts(-1, -1, -1, -1)
	state := j.snapshot()
	if state.PagesDiscovered != 5 || state.ChunksProcessed != 2 {
		t.Errorf("expected negative values to leave counts unchanged, got %+v", state)
	}
}
