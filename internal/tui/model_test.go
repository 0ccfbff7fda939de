package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"isoflash/internal/app"
	"isoflash/internal/domain"
)

func newTestModel() Model {
	return NewModel(Config{
		Image:  domain.Image{Name: "win10.iso", Size: 1_000_000_000},
		Device: "/dev/disk4",
	})
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return model
}

func TestModelFollowsPhases(t *testing.T) {
	m := newTestModel()
	m = update(t, m, PhaseMsg{Phase: domain.PhaseUnmounting})
	m = update(t, m, PhaseMsg{Phase: domain.PhaseWriting})
	m = update(t, m, LineMsg{Line: "500000000 bytes (500 MB, 477 MiB) copied, 10 s, 50.0 MB/s"})
	m = update(t, m, ProgressMsg{Progress: app.Progress{
		Sample:    domain.Sample{Bytes: 500_000_000, HasBytes: true, RateMBs: 50, HasRate: true},
		Total:     1_000_000_000,
		Remaining: 10,
	}})

	if m.Phase != domain.PhaseWriting {
		t.Fatalf("expected writing phase, got %s", m.Phase)
	}
	if got := m.fraction(); got != 0.5 {
		t.Fatalf("expected fraction 0.5, got %v", got)
	}
	view := m.View()
	for _, want := range []string{"win10.iso", "/dev/disk4", "50.0 MB/s", "10s", "copied, 10 s"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected %q in view:\n%s", want, view)
		}
	}

	m = update(t, m, PhaseMsg{Phase: domain.PhaseFinalizing})
	if got := m.fraction(); got != 1 {
		t.Fatalf("expected full bar after writing, got %v", got)
	}
}

func TestModelShowsUnboundedEstimateBeforeProgress(t *testing.T) {
	m := update(t, newTestModel(), PhaseMsg{Phase: domain.PhaseWriting})
	if !strings.Contains(m.View(), "∞") {
		t.Fatalf("expected unbounded estimate in view:\n%s", m.View())
	}
}

func TestModelDoneWaitsForKeyBeforeQuitting(t *testing.T) {
	m := newTestModel()
	m = update(t, m, PhaseMsg{Phase: domain.PhaseComplete})
	next, cmd := m.Update(DoneMsg{Result: app.Result{Bytes: 1_000_000_000}})
	m = next.(Model)
	if !m.Done || m.Err != nil {
		t.Fatalf("expected clean completion, got done=%v err=%v", m.Done, m.Err)
	}
	if cmd != nil {
		t.Fatal("expected the view to stay up until a key is pressed")
	}
	view := m.View()
	if !strings.Contains(view, "created successfully") || !strings.Contains(view, "Press Enter or q to exit") {
		t.Fatalf("expected success message and exit hint in view:\n%s", view)
	}

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected quit command on enter")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.QuitMsg")
	}
}

func TestModelRecordsFailedStage(t *testing.T) {
	m := newTestModel()
	m = update(t, m, PhaseMsg{Phase: domain.PhaseUnmounting})
	m = update(t, m, PhaseMsg{Phase: domain.PhaseWriting})
	m = update(t, m, PhaseMsg{Phase: domain.PhaseFinalizing})
	failure := errors.New("eject: exit status 1")
	m = update(t, m, PhaseMsg{Phase: domain.PhaseFailed, Err: failure})
	m = update(t, m, DoneMsg{Err: failure})

	if m.failedAt != domain.PhaseFinalizing {
		t.Fatalf("expected failure recorded at finalizing, got %s", m.failedAt)
	}
	if !errors.Is(m.Err, failure) {
		t.Fatalf("expected failure error, got %v", m.Err)
	}
	if !strings.Contains(m.View(), "eject: exit status 1") {
		t.Fatalf("expected error in view:\n%s", m.View())
	}
}

func TestModelCancelWaitsForFlash(t *testing.T) {
	cancelled := 0
	m := NewModel(Config{Device: "/dev/sdb", Cancel: func() { cancelled++ }})
	m = update(t, m, PhaseMsg{Phase: domain.PhaseWriting})

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = next.(Model)
	if cmd != nil {
		t.Fatal("expected no quit while the flash is still running")
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	if cancelled != 1 || !m.Cancelling {
		t.Fatalf("expected a single cancel, got %d", cancelled)
	}
}

func TestObserverForwardsMessages(t *testing.T) {
	var got []tea.Msg
	obs := Observer{Send: func(msg tea.Msg) { got = append(got, msg) }}

	obs.Phase(domain.PhaseWriting, nil)
	obs.Step("Writing image")
	obs.Line("raw")
	obs.Progress(app.Progress{Total: 10})

	if len(got) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(got))
	}
	if _, ok := got[3].(ProgressMsg); !ok {
		t.Fatalf("expected ProgressMsg last, got %T", got[3])
	}
	Observer{}.Line("dropped")
}
