package hooks

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"pictor/internal/logging"
)

// Request describes the image an extraction chain runs against.
type Request struct {
	ImagePath      string
	Source         string
	GenerationType string
}

// Extractor derives metadata fields from a registered image. Implementations
// return only the keys they could populate; empty values are ignored.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, req Request) (map[string]string, error)
}

// Registry holds named extractors and runs them in alphabetical name order.
type Registry struct {
	mu         sync.RWMutex
	extractors map[string]Extractor
	logger     *slog.Logger
}

// NewRegistry returns an empty extractor registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		extractors: make(map[string]Extractor),
		logger:     logging.NewComponentLogger(logger, "hooks"),
	}
}

// NewDefaultRegistry returns a registry with the built-in extractors installed.
func NewDefaultRegistry(logger *slog.Logger) *Registry {
	reg := NewRegistry(logger)
	reg.Register(NewConduitExtractor())
	reg.Register(NewDefaultExtractor())
	return reg
}

// Register installs an extractor, replacing any existing one with the same name.
func (r *Registry) Register(ext Extractor) {
	if ext == nil || ext.Name() == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extractors[ext.Name()] = ext
}

// Names returns the registered extractor names in run order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.extractors))
	for name := range r.extractors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes every extractor against the request and merges the results.
// Extractors run in alphabetical name order and later extractors overwrite
// values earlier ones set, so a source-specific extractor can refine what a
// general one produced. A leading underscore in the name forces an
// extractor to the front of the chain. Extractor failures are logged and
// skipped so one broken extractor never blocks registration.
func (r *Registry) Run(ctx context.Context, req Request) map[string]string {
	merged := make(map[string]string)
	for _, name := range r.Names() {
		r.mu.RLock()
		ext := r.extractors[name]
		r.mu.RUnlock()
		if ext == nil {
			continue
		}
		fields, err := ext.Extract(ctx, req)
		if err != nil {
			r.logger.Warn("extractor failed; continuing chain",
				logging.String(logging.FieldExtractor, name),
				logging.String(logging.FieldImagePath, req.ImagePath),
				logging.Error(err),
			)
			continue
		}
		for key, value := range fields {
			if value == "" {
				continue
			}
			merged[key] = value
		}
	}
	return merged
}

// StartupHook is optionally implemented by extractors and subscribers
// that need one-time work when the daemon starts.
type StartupHook interface {
	OnStartup(ctx context.Context) error
}

// ShutdownHook is optionally implemented by extractors and subscribers
// that need one-time work when the daemon stops.
type ShutdownHook interface {
	OnShutdown(ctx context.Context) error
}

// BindLifecycle registers the lifecycle callbacks of every extractor that
// implements StartupHook or ShutdownHook, in run order.
func (r *Registry) BindLifecycle(l *Lifecycle) {
	for _, name := range r.Names() {
		r.mu.RLock()
		ext := r.extractors[name]
		r.mu.RUnlock()
		if hook, ok := ext.(StartupHook); ok {
			l.OnStartup(hook.OnStartup)
		}
		if hook, ok := ext.(ShutdownHook); ok {
			l.OnShutdown(hook.OnShutdown)
		}
	}
}

// LifecycleFunc is invoked at daemon startup or shutdown.
type LifecycleFunc func(ctx context.Context) error

// Lifecycle collects startup and shutdown callbacks from components.
type Lifecycle struct {
	mu       sync.Mutex
	startup  []LifecycleFunc
	shutdown []LifecycleFunc
	logger   *slog.Logger
}

// NewLifecycle returns an empty lifecycle hook set.
func NewLifecycle(logger *slog.Logger) *Lifecycle {
	return &Lifecycle{logger: logging.NewComponentLogger(logger, "lifecycle")}
}

// OnStartup registers a callback run when the daemon starts.
func (l *Lifecycle) OnStartup(fn LifecycleFunc) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.startup = append(l.startup, fn)
}

// OnShutdown registers a callback run when the daemon stops.
func (l *Lifecycle) OnShutdown(fn LifecycleFunc) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.shutdown = append(l.shutdown, fn)
}

// Startup runs the registered startup callbacks in registration order.
// Failures are logged; remaining callbacks still run.
func (l *Lifecycle) Startup(ctx context.Context) {
	l.run(ctx, l.snapshot(&l.startup), "startup")
}

// Shutdown runs the registered shutdown callbacks in reverse registration order.
func (l *Lifecycle) Shutdown(ctx context.Context) {
	callbacks := l.snapshot(&l.shutdown)
	for i, j := 0, len(callbacks)-1; i < j; i, j = i+1, j-1 {
		callbacks[i], callbacks[j] = callbacks[j], callbacks[i]
	}
	l.run(ctx, callbacks, "shutdown")
}

func (l *Lifecycle) snapshot(src *[]LifecycleFunc) []LifecycleFunc {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LifecycleFunc, len(*src))
	copy(out, *src)
	return out
}

func (l *Lifecycle) run(ctx context.Context, callbacks []LifecycleFunc, phase string) {
	for _, fn := range callbacks {
		if err := fn(ctx); err != nil {
			l.logger.Warn("lifecycle hook failed",
				logging.String("phase", phase),
				logging.Error(err),
			)
		}
	}
}
