// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about tree structure, scenario execution, and the
// inspection server.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Hooks are registered by main, not by libraries, so the tree package never
// imports an observability backend.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetTreeHooks(&myTreeHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Tree().OnAttach(node.FullPath())
//	observability.Tree().OnPropagate(from.FullPath(), trigger, len(targets))
//
// Tree hooks take no context: tree operations are synchronous and carry none.
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Tree Hooks
// =============================================================================

// TreeHooks receives structural and propagation events from the node tree.
// Hooks run synchronously inside tree operations and must not mutate the tree.
type TreeHooks interface {
	// OnAttach records a node entering the listening state.
	OnAttach(fullPath string)

	// OnDetach records a node being removed from the tree.
	OnDetach(fullPath string)

	// OnRename records a full-path change.
	OnRename(oldPath, newPath string)

	// OnPropagate records one dependency dispatch: the node whose graph
	// matched, the name it was fired with, and how many entries matched.
	OnPropagate(fromPath, name string, matched int)
}

// =============================================================================
// Scenario Hooks
// =============================================================================

// ScenarioHooks receives events from scenario runs.
type ScenarioHooks interface {
	OnStepStart(ctx context.Context, index int, op string)
	OnStepComplete(ctx context.Context, index int, op string, duration time.Duration, err error)
}

// =============================================================================
// Server Hooks
// =============================================================================

// ServerHooks receives events from the inspection HTTP server.
type ServerHooks interface {
	// OnRequest records an incoming request.
	OnRequest(ctx context.Context, method, path string)

	// OnResponse records the response status and latency.
	OnResponse(ctx context.Context, method, path string, statusCode int, duration time.Duration)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopTreeHooks is a no-op implementation of TreeHooks.
type NoopTreeHooks struct{}

func (NoopTreeHooks) OnAttach(string)                 {}
func (NoopTreeHooks) OnDetach(string)                 {}
func (NoopTreeHooks) OnRename(string, string)         {}
func (NoopTreeHooks) OnPropagate(string, string, int) {}

// NoopScenarioHooks is a no-op implementation of ScenarioHooks.
type NoopScenarioHooks struct{}

func (NoopScenarioHooks) OnStepStart(context.Context, int, string) {}
func (NoopScenarioHooks) OnStepComplete(context.Context, int, string, time.Duration, error) {
}

// NoopServerHooks is a no-op implementation of ServerHooks.
type NoopServerHooks struct{}

func (NoopServerHooks) OnRequest(context.Context, string, string)                      {}
func (NoopServerHooks) OnResponse(context.Context, string, string, int, time.Duration) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	treeHooks     TreeHooks     = NoopTreeHooks{}
	scenarioHooks ScenarioHooks = NoopScenarioHooks{}
	serverHooks   ServerHooks   = NoopServerHooks{}
	hooksMu       sync.RWMutex
)

// SetTreeHooks registers custom tree hooks.
// This should be called once at application startup before any tree is built.
func SetTreeHooks(h TreeHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		treeHooks = h
	}
}

// SetScenarioHooks registers custom scenario hooks.
func SetScenarioHooks(h ScenarioHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		scenarioHooks = h
	}
}

// SetServerHooks registers custom server hooks.
func SetServerHooks(h ServerHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		serverHooks = h
	}
}

// Tree returns the registered tree hooks.
func Tree() TreeHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return treeHooks
}

// Scenario returns the registered scenario hooks.
func Scenario() ScenarioHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return scenarioHooks
}

// Server returns the registered server hooks.
func Server() ServerHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return serverHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	treeHooks = NoopTreeHooks{}
	scenarioHooks = NoopScenarioHooks{}
	serverHooks = NoopServerHooks{}
}
