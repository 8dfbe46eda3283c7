package consilium

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestReviewModel_YKeyApproves(t *testing.T) {
	m := newReviewModel("summary text")
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")})
	rm := updated.(reviewModel)
	if !rm.decision.Approved || rm.waiting {
		t.Errorf("expected approval and waiting=false, got %+v", rm.decision)
	}
	if cmd == nil {
		t.Error("expected a Quit command after decision")
	}
}

func TestReviewModel_NKeyRejects(t *testing.T) {
	m := newReviewModel("summary text")
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	rm := updated.(reviewModel)
	if rm.decision.Approved {
		t.Error("expected rejection")
	}
	if rm.decision.Reason != "reviewer_rejected" {
		t.Errorf("unexpected reason: %s", rm.decision.Reason)
	}
}

func TestReviewModel_EscCancels(t *testing.T) {
	m := newReviewModel("summary text")
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	rm := updated.(reviewModel)
	if rm.decision.Approved || rm.decision.Reason != "reviewer_cancelled" {
		t.Errorf("expected cancellation decision, got %+v", rm.decision)
	}
}

func TestReviewModel_IgnoresKeysOnceDecided(t *testing.T) {
	m := newReviewModel("summary text")
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")})
	rm := updated.(reviewModel)

	updated2, cmd2 := rm.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	rm2 := updated2.(reviewModel)
	if !rm2.decision.Approved {
		t.Error("expected the original approval decision to stick once waiting=false")
	}
	if cmd2 != nil {
		t.Error("expected no further command once a decision has already been made")
	}
}

func TestReviewModel_UnknownKeyKeepsWaiting(t *testing.T) {
	m := newReviewModel("summary text")
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	rm := updated.(reviewModel)
	if !rm.waiting {
		t.Error("expected still waiting after an unrecognized key")
	}
	if cmd != nil {
		t.Error("expected no command for an unrecognized key")
	}
}

func TestReviewModel_ViewRendersSummaryAndPrompt(t *testing.T) {
	m := newReviewModel("my summary")
	view := m.View()
	if view == "" {
		t.Fatal("expected non-empty view")
	}
	if !strings.Contains(view, "my summary") {
		t.Errorf("expected view to contain the summary, got %q", view)
	}
	if !strings.Contains(view, "Approve this build?") {
		t.Errorf("expected view to contain the approval prompt, got %q", view)
	}
}

func TestNewReviewModel_StartsWaiting(t *testing.T) {
	m := newReviewModel("x")
	if !m.waiting || m.done {
		t.Errorf("expected a fresh model to be waiting and not done, got %+v", m)
	}
}
