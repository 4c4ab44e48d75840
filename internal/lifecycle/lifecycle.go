// Package lifecycle runs cleanup handlers when the builder is interrupted.
//
// External tools inherit the terminal, so a Ctrl-C reaches them and the
// builder at the same time. Handlers registered here get a chance to undo
// half-finished work (a rewritten vcpkg.json, a pending telemetry flush)
// before the process exits with the conventional 128+signal status.
package lifecycle

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Handler receives the OS signal that triggered shutdown.
type Handler func(os.Signal)

// HandlerID identifies a registered handler.
type HandlerID int64

// Registry keeps handlers in registration order and runs them newest first.
type Registry struct {
	mu       sync.Mutex
	nextID   HandlerID
	handlers map[HandlerID]Handler
	order    []HandlerID
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[HandlerID]Handler)}
}

func (registry *Registry) Add(handler Handler) HandlerID {
	if handler == nil {
		return 0
	}

	registry.mu.Lock()
	defer registry.mu.Unlock()

	registry.nextID++
	id := registry.nextID
	registry.handlers[id] = handler
	registry.order = append(registry.order, id)
	return id
}

func (registry *Registry) Remove(id HandlerID) {
	if id == 0 {
		return
	}

	registry.mu.Lock()
	defer registry.mu.Unlock()

	delete(registry.handlers, id)
	for i, existing := range registry.order {
		if existing == id {
			registry.order = append(registry.order[:i], registry.order[i+1:]...)
			break
		}
	}
}

func (registry *Registry) Len() int {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	return len(registry.order)
}

// Run invokes every handler in reverse registration order. A panicking
// handler does not stop the remaining ones.
func (registry *Registry) Run(sig os.Signal) {
	registry.mu.Lock()
	pending := make([]Handler, 0, len(registry.order))
	for i := len(registry.order) - 1; i >= 0; i-- {
		pending = append(pending, registry.handlers[registry.order[i]])
	}
	registry.mu.Unlock()

	for _, handler := range pending {
		callHandler(handler, sig)
	}
}

func callHandler(handler Handler, sig os.Signal) {
	defer func() {
		_ = recover()
	}()
	handler(sig)
}

var (
	defaultSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

	defaultRegistry = NewRegistry()
	startOnce       sync.Once
	signalChan      chan os.Signal

	channelFactory = newSignalChan
	notifyFunc     = signal.Notify
	stopFunc       = signal.Stop
	exitFunc       = os.Exit
)

// Register adds a handler to the process-wide registry and starts listening
// for shutdown signals on first use.
func Register(handler Handler) HandlerID {
	if handler == nil {
		return 0
	}

	startOnce.Do(startListener)
	return defaultRegistry.Add(handler)
}

// Unregister removes a previously registered handler.
func Unregister(id HandlerID) {
	defaultRegistry.Remove(id)
}

func startListener() {
	signalChan = channelFactory()
	notifyFunc(signalChan, defaultSignals...)

	go func() {
		sig := <-signalChan
		defaultRegistry.Run(sig)
		exitFunc(exitCode(sig))
	}()
}

func exitCode(sig os.Signal) int {
	switch sig {
	case os.Interrupt:
		return 130
	case syscall.SIGTERM:
		return 143
	default:
		return 1
	}
}

// reset clears global state (tests only).
func reset() {
	if signalChan != nil {
		stopFunc(signalChan)
	}
	signalChan = nil
	startOnce = sync.Once{}
	defaultRegistry = NewRegistry()

	channelFactory = newSignalChan
	notifyFunc = signal.Notify
	stopFunc = signal.Stop
	exitFunc = os.Exit
}

func newSignalChan() chan os.Signal {
	return make(chan os.Signal, 1)
}
