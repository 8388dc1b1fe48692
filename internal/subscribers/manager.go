package subscribers

import (
	"context"
	"sync"
	"time"

	"log/slog"

	"pictor/internal/hooks"
	"pictor/internal/logging"
	"pictor/internal/registry"
	"pictor/internal/state"
)

// Env gives subscribers access to registration and broadcast.
type Env struct {
	Store  *registry.Store
	State  *state.Broadcaster
	Logger *slog.Logger
}

// Subscriber is one background event source. Run blocks until ctx is
// cancelled or the source fails; a non-nil error asks the Manager for a
// restart.
type Subscriber interface {
	Name() string
	Run(ctx context.Context, env Env) error
}

// Manager supervises subscribers, restarting each failed one after a
// fixed delay. Connection loss to an external bus must never require
// operator intervention.
type Manager struct {
	env     Env
	retry   time.Duration
	logger  *slog.Logger
	subs    []Subscriber
	wg      sync.WaitGroup
	started bool
}

// NewManager returns a supervisor for the given subscribers.
func NewManager(env Env, retry time.Duration, subs ...Subscriber) *Manager {
	if retry <= 0 {
		retry = 5 * time.Second
	}
	logger := logging.NewComponentLogger(env.Logger, "subscribers")
	env.Logger = logger
	return &Manager{env: env, retry: retry, logger: logger, subs: subs}
}

// BindLifecycle registers the lifecycle callbacks of every subscriber
// that implements hooks.StartupHook or hooks.ShutdownHook.
func (m *Manager) BindLifecycle(l *hooks.Lifecycle) {
	for _, sub := range m.subs {
		if hook, ok := sub.(hooks.StartupHook); ok {
			l.OnStartup(hook.OnStartup)
		}
		if hook, ok := sub.(hooks.ShutdownHook); ok {
			l.OnShutdown(hook.OnShutdown)
		}
	}
}

// Start launches every subscriber in its own goroutine. It is a no-op
// when called twice.
func (m *Manager) Start(ctx context.Context) {
	if m.started {
		return
	}
	m.started = true
	for _, sub := range m.subs {
		m.wg.Add(1)
		go func(sub Subscriber) {
			defer m.wg.Done()
			m.supervise(ctx, sub)
		}(sub)
	}
}

// Wait blocks until all subscriber goroutines have exited.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) supervise(ctx context.Context, sub Subscriber) {
	logger := m.env.Logger.With(logging.String(logging.FieldSubscriber, sub.Name()))
	env := m.env
	env.Logger = logger

	for {
		err := sub.Run(ctx, env)
		if ctx.Err() != nil {
			logger.Info("subscriber stopped")
			return
		}
		if err != nil {
			logger.Warn("subscriber failed; restarting",
				logging.Duration("retry_in", m.retry), logging.Error(err))
		} else {
			logger.Warn("subscriber exited; restarting",
				logging.Duration("retry_in", m.retry))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(m.retry):
		}
	}
}
