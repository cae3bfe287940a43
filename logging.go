package worker

import (
	"sync"

	"github.com/joeycumines/logiface"
	stumpy "github.com/joeycumines/stumpy"
)

// Logger is this module's concrete logging handle: a logiface.Logger bound
// to the stumpy event implementation, the plain JSON-lines writer shipped
// alongside logiface itself. Swapping to a different logiface binding (slog,
// zerolog, logrus) is a one-line change confined to this file, which is the
// entire point of building on logiface's generic Logger[E Event] rather than
// hand-rolling a Logger/LogEntry pair the way the teacher's eventloop
// logging.go did (SPEC_FULL.md §4.7 deliberately rejects imitating that).
type Logger = logiface.Logger[*stumpy.Event]

// LogRegistry is the Go translation of logging_core::Registry<WorkerIdentifier>
// (original_source/worker.rs): a name-keyed table of loggers, with a Flush
// that is expected to be called once per Worker.Step (spec.md §4.1 step 4).
// stumpy's writer is unbuffered per call, so Flush here is a no-op beyond
// existing for interface parity with the original's buffered-writer registry;
// it exists so a future buffered binding can be swapped in without touching
// callers.
type LogRegistry struct {
	mu      sync.Mutex
	loggers map[string]*Logger
}

// NewLogRegistry returns an empty registry. Workers that never call Register
// still get a usable, always-returns-false LogRegister() (see Worker.Logging).
func NewLogRegistry() *LogRegistry {
	return &LogRegistry{loggers: make(map[string]*Logger)}
}

// Register installs a logger under name, replacing any previous logger
// registered under the same name. The "timely" name is the conventional
// default consulted by Worker.Logging; callers are free to register
// additional named loggers (per-dataflow, per-operator) and look them up
// directly via Get.
func (r *LogRegistry) Register(name string, logger *Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loggers[name] = logger
}

// Get returns the logger registered under name, or ok==false if none has
// been registered.
func (r *LogRegistry) Get(name string) (logger *Logger, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	logger, ok = r.loggers[name]
	return
}

// Flush is invoked once per Worker.Step (spec.md §4.1 step 4, "flush
// logging"), after dataflows have been scheduled and before the allocator is
// released. stumpy writes synchronously on every Log call, so there is
// nothing to flush yet; this exists so the step loop has a stable call site
// if a buffered binding is ever substituted.
func (r *LogRegistry) Flush() {}

// NewStumpyLogger is a convenience constructor wiring a stumpy-backed
// Logger, suitable for passing to LogRegistry.Register. options are passed
// to stumpy unchanged; when they set no writer, stumpy's own default writer
// is used.
func NewStumpyLogger(options ...stumpy.Option) *Logger {
	return logiface.New[*stumpy.Event](stumpy.WithStumpy(options...))
}
