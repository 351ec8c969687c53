// Package middleware wraps a ports.ContextStore to transform contexts at rest.
package middleware

import "github.com/aretw0/pmguide/pkg/ports"

// Middleware allows wrapping a ContextStore to add behavior.
type Middleware func(ports.ContextStore) ports.ContextStore

// Chain applies mws so that the first one sees the context first on Save.
func Chain(store ports.ContextStore, mws ...Middleware) ports.ContextStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
