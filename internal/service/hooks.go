package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/approval-gate/approvalgate/internal/domain/workflow"
)

// Provisioner executes the domain side effects of a decision: the
// actual provisioning on approve, cleanup or notification on reject.
// Implementations are registered per request name.
type Provisioner interface {
	Approved(ctx context.Context, st *workflow.State) error
	Rejected(ctx context.Context, st *workflow.State) error
}

// HookError reports a provisioner failure. It is recorded on the
// workflow state and rendered as a trailing error line; it never aborts
// the message updates.
type HookError struct {
	Hook string
	Err  error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("hook %q: %v", e.Hook, e.Err)
}

func (e *HookError) Unwrap() error { return e.Err }

// HookRegistry maps request names to provisioners. Lookup falls back to
// the registry's default provisioner for unregistered names.
type HookRegistry struct {
	mu       sync.RWMutex
	hooks    map[string]Provisioner
	fallback Provisioner
}

// NewHookRegistry creates a registry with the given fallback
// provisioner. A nil fallback defaults to a logging no-op.
func NewHookRegistry(fallback Provisioner) *HookRegistry {
	if fallback == nil {
		fallback = &LogProvisioner{Logger: slog.Default()}
	}
	return &HookRegistry{
		hooks:    make(map[string]Provisioner),
		fallback: fallback,
	}
}

// Register binds a provisioner to a request name, replacing any
// previous binding.
func (r *HookRegistry) Register(name string, p Provisioner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks[name] = p
}

// Lookup returns the provisioner for name, or the fallback.
func (r *HookRegistry) Lookup(name string) Provisioner {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.hooks[name]; ok {
		return p
	}
	return r.fallback
}

// LogProvisioner records decisions in the log and does nothing else.
// It is the fallback for request names without a registered hook.
type LogProvisioner struct {
	Logger *slog.Logger
}

// Approved logs the approval.
func (p *LogProvisioner) Approved(_ context.Context, st *workflow.State) error {
	p.Logger.Info("request approved", "name", st.Request.Name, "user", st.User)
	return nil
}

// Rejected logs the rejection.
func (p *LogProvisioner) Rejected(_ context.Context, st *workflow.State) error {
	p.Logger.Info("request rejected", "name", st.Request.Name, "user", st.User)
	return nil
}
