// Package subprocessbackend adapts a long-running external CLI agent
// process into the external.ModelBackend/session.Client contracts. It
// speaks newline-delimited JSON over the subprocess's stdin/stdout, in
// the teacher's os/exec.CommandContext style (internal/regression/battery.go)
// generalized from one-shot commands to a persistent process.
package subprocessbackend

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sync"

	"github.com/auto-iflow/autoiflow/internal/external"
	"github.com/auto-iflow/autoiflow/internal/logging"
	"github.com/auto-iflow/autoiflow/internal/session"
)

// Backend launches one external agent CLI (argv[0] plus Args) per Client
// call, each a fresh process bound to one subtask's interaction.
type Backend struct {
	Command string
	Args    []string
	WorkDir string
}

// New constructs a Backend invoking command with args, run in workDir.
func New(command string, args []string, workDir string) *Backend {
	return &Backend{Command: command, Args: args, WorkDir: workDir}
}

// Start implements external.ModelBackend. The subprocess backend has no
// process-wide warmup; each Client call spawns its own process.
func (b *Backend) Start(ctx context.Context) error { return nil }

// Stop implements external.ModelBackend; no process-wide state to tear down.
func (b *Backend) Stop(ctx context.Context) error { return nil }

// Client implements external.ModelBackend by spawning one subprocess for
// this interaction.
func (b *Backend) Client(ctx context.Context, cfg external.ClientConfig) (session.Client, error) {
	args := append([]string(nil), b.Args...)
	if cfg.ModelID != "" {
		args = append(args, "--model", cfg.ModelID)
	}
	cmd := exec.CommandContext(ctx, b.Command, args...)
	workDir := cfg.WorkDir
	if workDir == "" {
		workDir = b.WorkDir
	}
	cmd.Dir = workDir

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("subprocessbackend: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("subprocessbackend: stdout pipe: %w", err)
	}
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("subprocessbackend: starting %s: %w", b.Command, err)
	}

	return &procClient{
		cmd:    cmd,
		stdin:  stdin,
		reader: bufio.NewReader(stdout),
		system: cfg.SystemPrompt,
	}, nil
}

// wireMessage is the newline-delimited JSON envelope exchanged with the
// subprocess on both directions.
type wireMessage struct {
	Variant    string                 `json:"variant"`
	Text       string                 `json:"text,omitempty"`
	ToolName   string                 `json:"tool_name,omitempty"`
	ToolInput  map[string]interface{} `json:"tool_input,omitempty"`
	ToolOutput string                 `json:"tool_output,omitempty"`
	IsError    bool                   `json:"is_error,omitempty"`
	Prompt     string                 `json:"prompt,omitempty"`
	System     string                 `json:"system,omitempty"`
}

// procClient implements session.Client over one subprocess's stdio.
type procClient struct {
	cmd    *exec.Cmd
	stdin  interface{ Write([]byte) (int, error) }
	reader *bufio.Reader
	system string

	mu       sync.Mutex
	sentInit bool
}

// Send implements session.Client by writing one JSON line to the
// subprocess's stdin.
func (p *procClient) Send(ctx context.Context, prompt string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	msg := wireMessage{Variant: "prompt", Prompt: prompt}
	if !p.sentInit {
		msg.System = p.system
		p.sentInit = true
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("subprocessbackend: encoding prompt: %w", err)
	}
	data = append(data, '\n')
	if _, err := p.stdin.Write(data); err != nil {
		return fmt.Errorf("subprocessbackend: writing prompt: %w", err)
	}
	return nil
}

// Stream implements session.Client by reading newline-delimited JSON
// messages from the subprocess's stdout until it emits a "finish" variant
// or closes the pipe.
func (p *procClient) Stream(ctx context.Context) (<-chan session.RawMessage, <-chan error) {
	msgs := make(chan session.RawMessage, 8)
	errs := make(chan error, 1)
	log := logging.Get(logging.CategorySession)

	go func() {
		defer close(msgs)
		defer close(errs)

		for {
			select {
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			default:
			}

			line, err := p.reader.ReadBytes('\n')
			if len(line) > 0 {
				var wm wireMessage
				if jerr := json.Unmarshal(line, &wm); jerr != nil {
					log.Warn("subprocessbackend: malformed line, skipping: %v", jerr)
					continue
				}
				msgs <- session.RawMessage{
					Variant:    wm.Variant,
					ToolName:   wm.ToolName,
					ToolInput:  wm.ToolInput,
					ToolOutput: wm.ToolOutput,
					IsError:    wm.IsError,
					Blocks: func() []session.ContentBlock {
						if wm.Variant == "text" && wm.Text != "" {
							return []session.ContentBlock{{BlockType: "text", Text: wm.Text}}
						}
						return nil
					}(),
				}
				if wm.Variant == "finish" {
					return
				}
			}
			if err != nil {
				if err.Error() != "EOF" {
					errs <- fmt.Errorf("subprocessbackend: reading stdout: %w", err)
				} else {
					msgs <- session.RawMessage{Variant: "finish"}
				}
				return
			}
		}
	}()

	return msgs, errs
}
