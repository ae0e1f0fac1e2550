// ABOUTME: Host application registry of named services
// ABOUTME: Services are mounted by name and found again by name or by handle

package app

import (
	"strings"
	"sync"

	"github.com/nainya/docversions/pkg/document"
)

// App is a registry of named services
type App struct {
	mu       sync.RWMutex
	services map[string]*Service
	order    []string
}

// New creates an empty application
func New() *App {
	return &App{services: make(map[string]*Service)}
}

func cleanName(name string) string {
	return strings.Trim(name, "/")
}

// Use mounts store under name and returns its service. Mounting a name twice
// replaces the earlier service.
func (a *App) Use(name string, store document.Store) *Service {
	name = cleanName(name)
	svc := newService(a, name, store)

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.services[name]; !exists {
		a.order = append(a.order, name)
	}
	a.services[name] = svc
	return svc
}

// Service returns the service mounted under name, or nil
func (a *App) Service(name string) *Service {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.services[cleanName(name)]
}

// Services returns every mounted service in mount order
func (a *App) Services() []*Service {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]*Service, 0, len(a.order))
	for _, name := range a.order {
		out = append(out, a.services[name])
	}
	return out
}

// NameOf returns the name svc is mounted under, or "" when it is not mounted
func (a *App) NameOf(svc *Service) string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	for _, name := range a.order {
		if a.services[name] == svc {
			return name
		}
	}
	return ""
}
