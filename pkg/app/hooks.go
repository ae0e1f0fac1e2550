// ABOUTME: Hook types and context passed through service method pipelines
// ABOUTME: Before hooks may rewrite the call, after hooks observe the result

package app

import (
	"context"
	"strings"

	"github.com/nainya/docversions/pkg/document"
)

// Method names a service method
type Method string

const (
	All    Method = "all" // Registers a hook for every method
	Find   Method = "find"
	Get    Method = "get"
	Create Method = "create"
	Update Method = "update"
	Patch  Method = "patch"
	Remove Method = "remove"
)

// Phase is the point in a method pipeline a hook runs at
type Phase string

const (
	Before Phase = "before"
	After  Phase = "after"
)

// Params carries request-scoped values into a service call
type Params struct {
	Provider string         // Transport that issued the call, empty for internal calls
	Values   map[string]any // Request values such as the authenticated user
}

// External reports whether the call came in through a transport
func (p *Params) External() bool {
	return p != nil && p.Provider != ""
}

// Value returns a request value or nil
func (p *Params) Value(key string) any {
	if p == nil {
		return nil
	}
	return p.Values[key]
}

// HookContext describes one service method call
type HookContext struct {
	App     *App
	Service *Service
	Method  Method
	Phase   Phase
	ID      any                 // get, update, patch, remove
	Data    []document.Document // create, update, patch
	Query   *document.Query     // find
	Params  *Params
	Result  []document.Document // set before after hooks run
}

// Hook is a function run around a service method
type Hook func(ctx context.Context, hc *HookContext) error

// CheckContext fails with a UsageError unless hc runs in phase for one of methods
func CheckContext(hc *HookContext, phase Phase, methods []Method, name string) error {
	if hc.Phase != phase {
		return &UsageError{Hook: name, Message: "can only be used as a '" + string(phase) + "' hook"}
	}
	if len(methods) == 0 {
		return nil
	}
	for _, m := range methods {
		if hc.Method == m {
			return nil
		}
	}

	names := make([]string, len(methods))
	for i, m := range methods {
		names[i] = string(m)
	}
	return &UsageError{
		Hook:    name,
		Message: "can only be used on the '" + strings.Join(names, ", ") + "' service method(s)",
	}
}
