// Package fanout keeps id-keyed subscriber callbacks grouped by subject.
package fanout

import (
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v4"
)

type subscriber[T any] struct {
	key string
	cb  T
}

// Registry holds callbacks of type T, each registered under a key.
//
// Registration and removal are lock-free; Snapshot copies the callbacks out so
// callers invoke them without holding any lock of their own.
type Registry[T any] struct {
	subs   *xsync.Map[uint64, *subscriber[T]]
	nextID atomic.Uint64
}

// New creates an empty registry.
func New[T any]() *Registry[T] {
	return &Registry[T]{subs: xsync.NewMap[uint64, *subscriber[T]]()}
}

// Add registers cb under key. The returned function removes it and is safe to call more than once.
//
// Example:
//
//	unsubscribe := reg.Add("pharmacy-1", onChange)
//	defer unsubscribe()
func (r *Registry[T]) Add(key string, cb T) func() {
	id := r.nextID.Add(1)
	r.subs.Store(id, &subscriber[T]{key: key, cb: cb})

	var once sync.Once

	return func() {
		once.Do(func() { r.subs.Delete(id) })
	}
}

// Snapshot returns the callbacks registered under any of keys.
func (r *Registry[T]) Snapshot(keys ...string) []T {
	var out []T
	r.subs.Range(func(_ uint64, sub *subscriber[T]) bool {
		for _, k := range keys {
			if sub.key == k {
				out = append(out, sub.cb)
				break
			}
		}

		return true
	})

	return out
}

// Count returns the number of callbacks registered under key.
func (r *Registry[T]) Count(key string) int {
	n := 0
	r.subs.Range(func(_ uint64, sub *subscriber[T]) bool {
		if sub.key == key {
			n++
		}

		return true
	})

	return n
}

// Len returns the number of registered callbacks.
func (r *Registry[T]) Len() int {
	return r.subs.Size()
}
