// Package inflight deduplicates concurrent fetches of the same resource.
//
// A Registry keeps at most one running call per (family, key). Callers that
// arrive while a call is running join it and receive the same result. The
// entry is dropped as soon as the call settles, whether it returned a value,
// an error, or panicked, so a failed fetch never blocks later ones. A panic
// in a fetch is returned to every waiting caller as an error.
package inflight

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Resource families used by the sync layer.
const (
	FamilyCategories = "categories"
	FamilyTags       = "tags"
	FamilySections   = "sections"
	FamilyProducts   = "products"
	FamilyAddresses  = "addresses"
	FamilyProduct    = "product"
	FamilySection    = "section"
	FamilyDiscount   = "discount"
)

// Registry is safe for concurrent use. The zero value is not usable; call New.
type Registry struct {
	mu       sync.Mutex
	families map[string]*family
}

type family struct {
	group   singleflight.Group
	mu      sync.Mutex
	running map[string]struct{}
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{families: make(map[string]*family)}
}

func (r *Registry) family(name string) *family {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.families[name]
	if !ok {
		f = &family{running: make(map[string]struct{})}
		r.families[name] = f
	}
	return f
}

// Do runs fn for (fam, key) unless a call is already running, in which case
// it waits for that call. shared reports whether the result was delivered to
// more than one caller.
//
// Cancelling ctx abandons the wait with ctx.Err(); the running call is not
// cancelled and still settles for the other callers. fn therefore receives
// no context of its own and should carry its own deadline.
func (r *Registry) Do(ctx context.Context, fam, key string, fn func() (any, error)) (v any, shared bool, err error) {
	f := r.family(fam)

	// led is set only when this caller's fn is the one that runs.
	var led atomic.Bool
	ch := f.group.DoChan(key, func() (val any, err error) {
		led.Store(true)
		observe(fam, "started")
		f.mu.Lock()
		f.running[key] = struct{}{}
		f.mu.Unlock()
		defer func() {
			if p := recover(); p != nil {
				val, err = nil, fmt.Errorf("inflight: %s/%s panicked: %v", fam, key, p)
			}
			f.mu.Lock()
			delete(f.running, key)
			f.mu.Unlock()
		}()
		return fn()
	})

	select {
	case res := <-ch:
		if !led.Load() {
			observe(fam, "joined")
		}
		return res.Val, res.Shared, res.Err
	case <-ctx.Done():
		observe(fam, "abandoned")
		return nil, false, ctx.Err()
	}
}

// InFlight reports whether a call for (fam, key) is currently running.
func (r *Registry) InFlight(fam, key string) bool {
	f := r.family(fam)
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.running[key]
	return ok
}

// Forget detaches a running call so the next Do for the key starts fresh.
// Callers already waiting still receive the detached call's result.
func (r *Registry) Forget(fam, key string) {
	r.family(fam).group.Forget(key)
}
