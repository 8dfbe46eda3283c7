// Package external declares the contracts the core treats as opaque
// collaborators: credential discovery, the knowledge-graph memory
// backend, issue-tracker/VCS integrations, and the LLM inference backend
// itself. The core depends only on these interfaces; concrete adapters
// live in subpackages (sqlitememory, genaibackend, subprocessbackend).
package external

import (
	"context"
	"time"

	"github.com/auto-iflow/autoiflow/internal/session"
)

// AuthProvider discovers and populates process credentials. HasAuth must
// be side-effect-free.
type AuthProvider interface {
	EnsureEnv(ctx context.Context) error
	HasAuth() bool
}

// SessionSnapshot is the subset of session state persisted to the
// knowledge-graph memory backend after a session completes.
type SessionSnapshot struct {
	SpecID    string
	SubtaskID string
	Summary   string
	Insights  []string
	At        time.Time
}

// MemoryStore is the knowledge-graph memory backend contract.
type MemoryStore interface {
	Save(ctx context.Context, snapshot SessionSnapshot) (ok bool, backend string, err error)
	QueryHints(ctx context.Context, task string) ([]string, error)
}

// Tracker is the issue-tracker/VCS-hosting integration contract.
type Tracker interface {
	TaskCompleted(ctx context.Context, specID string, counts map[string]int) error
	TaskFailed(ctx context.Context, specID string, attempt int, reason string) error
}

// ClientConfig carries everything a ModelBackend needs to open one
// interaction.
type ClientConfig struct {
	ModelID        string
	ThinkingBudget *int
	SystemPrompt   string
	WorkDir        string
}

// ModelBackend manages the LLM subprocess/transport lifecycle. Client
// opens one bounded interaction (one session.Client) against a running
// backend.
type ModelBackend interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Client(ctx context.Context, cfg ClientConfig) (session.Client, error)
}
