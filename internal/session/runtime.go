package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/auto-iflow/autoiflow/internal/logging"
)

// Outcome is the session loop's terminal result.
type Outcome struct {
	Status     string // "complete" | "continue" | "error"
	Transcript string
	Reason     string
	ToolCount  int
}

// Handlers receives callbacks for each event the loop processes, in
// stream order. All fields are optional; a nil handler is simply skipped.
type Handlers struct {
	OnText     func(text string)
	OnToolStart func(name string, input map[string]interface{})
	OnToolEnd   func(name string, class ToolEndClass, isError bool, result string, headOnly bool)
}

func (h Handlers) text(s string) {
	if h.OnText != nil {
		h.OnText(s)
	}
}
func (h Handlers) toolStart(name string, input map[string]interface{}) {
	if h.OnToolStart != nil {
		h.OnToolStart(name, input)
	}
}
func (h Handlers) toolEnd(name string, class ToolEndClass, isError bool, result string, headOnly bool) {
	if h.OnToolEnd != nil {
		h.OnToolEnd(name, class, isError, result, headOnly)
	}
}

// DefaultIdleTimeout is the teacher-style default idle bound between
// consecutive backend messages.
const DefaultIdleTimeout = 300 * time.Second

// IdleTimeoutFromSeconds interprets an IFLOW_STREAM_IDLE_TIMEOUT_SEC-style
// value: 0 means no bound, a negative or unparseable value (represented
// here simply by a negative int) means "use default".
func IdleTimeoutFromSeconds(seconds int, hasValue bool) time.Duration {
	if !hasValue {
		return DefaultIdleTimeout
	}
	if seconds == 0 {
		return 0
	}
	if seconds < 0 {
		return DefaultIdleTimeout
	}
	return time.Duration(seconds) * time.Second
}

// Run streams one subtask's worth of agent interaction: it sends prompt,
// consumes ad-translated events from client's stream until Finish arrives
// or the stream ends, enforcing idleTimeout between any two consecutive
// raw messages (idleTimeout<=0 disables the bound). isBuildComplete is
// consulted only once the stream concludes normally, to decide between
// "complete" and "continue".
func Run(
	ctx context.Context,
	client Client,
	ad Adapter,
	prompt string,
	idleTimeout time.Duration,
	isBuildComplete func() bool,
	h Handlers,
) (Outcome, error) {
	if err := client.Send(ctx, prompt); err != nil {
		return Outcome{Status: "error", Reason: err.Error()}, err
	}

	msgs, errs := client.Stream(ctx)

	var transcript strings.Builder
	toolCount := 0

	var timer *time.Timer
	var timeoutCh <-chan time.Time
	if idleTimeout > 0 {
		timer = time.NewTimer(idleTimeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

loop:
	for {
		select {
		case <-ctx.Done():
			return Outcome{Status: "error", Reason: ctx.Err().Error(), Transcript: transcript.String(), ToolCount: toolCount}, ctx.Err()

		case <-timeoutCh:
			reason := fmt.Sprintf("No agent output for %ds; aborting session", int(idleTimeout.Seconds()))
			logging.Get(logging.CategorySession).Warn("%s", reason)
			return Outcome{Status: "error", Reason: reason, Transcript: transcript.String(), ToolCount: toolCount}, nil

		case err, ok := <-errs:
			if ok && err != nil {
				return Outcome{Status: "error", Reason: err.Error(), Transcript: transcript.String(), ToolCount: toolCount}, err
			}

		case msg, ok := <-msgs:
			if !ok {
				break loop
			}
			if timer != nil {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(idleTimeout)
			}

			for _, ev := range ad.Translate(msg) {
				switch ev.Kind {
				case KindTextChunk:
					transcript.WriteString(ev.Text)
					h.text(ev.Text)
				case KindToolStart:
					toolCount++
					logging.Get(logging.CategorySession).Info("tool start: %s %s", ev.ToolName, previewInput(ev.ToolInput))
					h.toolStart(ev.ToolName, ev.ToolInput)
				case KindToolEnd:
					logging.Get(logging.CategorySession).Info("tool end: %s class=%s", ev.ToolName, ev.Class)
					h.toolEnd(ev.ToolName, ev.Class, ev.IsError, ev.Result, ev.HeadOnly)
				case KindFinish:
					break loop
				}
			}
		}
	}

	status := "continue"
	if isBuildComplete == nil || isBuildComplete() {
		status = "complete"
	}
	return Outcome{Status: status, Transcript: transcript.String(), ToolCount: toolCount}, nil
}

// previewInput renders a short one-line preview of a tool call's input for
// the start-of-tool log line.
func previewInput(input map[string]interface{}) string {
	if len(input) == 0 {
		return "{}"
	}
	var parts []string
	for k, v := range input {
		s := fmt.Sprintf("%v", v)
		if len(s) > 60 {
			s = s[:60] + "..."
		}
		parts = append(parts, fmt.Sprintf("%s=%s", k, s))
	}
	preview := strings.Join(parts, " ")
	if len(preview) > 200 {
		preview = preview[:200] + "..."
	}
	return preview
}
