package consilium

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/auto-iflow/autoiflow/internal/phases"
)

// reviewModel is a single-screen bubbletea program: it shows the task
// summary and waits for y/n/q, tracked the same way the teacher's
// chatModel tracks a pending clarification.
type reviewModel struct {
	styles  Styles
	summary string
	spin    spinner.Model
	waiting bool
	done    bool
	decision phases.ReviewDecision
}

func newReviewModel(summary string) reviewModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return reviewModel{styles: NewStyles(), summary: summary, spin: s, waiting: true}
}

func (m reviewModel) Init() tea.Cmd {
	return m.spin.Tick
}

func (m reviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if !m.waiting {
			return m, nil
		}
		switch msg.String() {
		case "y", "Y":
			m.decision = phases.ReviewDecision{Approved: true, Reason: "reviewer_approved"}
			m.waiting, m.done = false, true
			return m, tea.Quit
		case "n", "N":
			m.decision = phases.ReviewDecision{Approved: false, Reason: "reviewer_rejected"}
			m.waiting, m.done = false, true
			return m, tea.Quit
		case "q", "ctrl+c", "esc":
			m.decision = phases.ReviewDecision{Approved: false, Reason: "reviewer_cancelled"}
			m.waiting, m.done = false, true
			return m, tea.Quit
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	default:
		return m, nil
	}
}

func (m reviewModel) View() string {
	banner := m.styles.Banner.Render(" Review checkpoint ")
	body := m.styles.Body.Render(m.summary)
	question := m.styles.Question.Render("Approve this build? [y/n/q]")
	hint := m.styles.Muted.Render(fmt.Sprintf("%s waiting for input", m.spin.View()))
	return fmt.Sprintf("%s\n\n%s\n\n%s\n%s\n", banner, body, question, hint)
}

// Prompt runs the review checkpoint as a full bubbletea program and
// returns the reviewer's decision. Satisfies phases.ReviewPrompt.
func Prompt(summary string) phases.ReviewPrompt {
	return func(ctx context.Context) (phases.ReviewDecision, error) {
		model := newReviewModel(summary)
		program := tea.NewProgram(model)

		done := make(chan struct{})
		var final reviewModel
		var runErr error
		go func() {
			defer close(done)
			res, err := program.Run()
			runErr = err
			if m, ok := res.(reviewModel); ok {
				final = m
			}
		}()

		select {
		case <-ctx.Done():
			program.Quit()
			<-done
			return phases.ReviewDecision{}, ctx.Err()
		case <-done:
			if runErr != nil {
				return phases.ReviewDecision{}, runErr
			}
			return final.decision, nil
		}
	}
}
