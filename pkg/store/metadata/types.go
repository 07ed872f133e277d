package metadata

import (
	"path"
	"time"
)

// LockScope is the sharing mode of an advisory lock.
type LockScope string

const (
	// LockScopeExclusive grants the token holder sole write access.
	LockScopeExclusive LockScope = "exclusive"

	// LockScopeShared allows multiple holders.
	LockScopeShared LockScope = "shared"
)

// Valid reports whether the scope is one of the two known values.
func (s LockScope) Valid() bool {
	return s == LockScopeExclusive || s == LockScopeShared
}

// Lock is an advisory lock row keyed by (login, uri).
//
// At most one active row exists per (login, uri): a new lock request for the
// same URI replaces any prior row (last-writer-wins, no queuing). Depth-1
// semantics are implemented at lookup time, not storage time: checking a lock
// on URI X also checks dirname(X), so a lock on a collection guards its
// direct children.
type Lock struct {
	// Login is the owning tenant.
	Login string `json:"login"`

	// URI is the locked resource, relative to the user's root.
	URI string `json:"uri"`

	// Token is the opaque client-supplied lock identifier.
	Token string `json:"token"`

	// Scope is exclusive or shared.
	Scope LockScope `json:"scope"`

	// ExpiresAt is when the lease ends. Rows past this instant are treated
	// as absent by lookups and removed by the sweeper.
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the lock lease has ended at the given instant.
func (l *Lock) Expired(now time.Time) bool {
	return now.After(l.ExpiresAt)
}

// Property is a namespaced metadata value attached to (login, uri),
// independent of the filesystem entry it describes.
//
// Value holds the raw serialized content (e.g. an XML fragment); Prefixes
// carries the namespace-prefix mapping needed to reproduce it. The storage
// layer treats both as opaque: parsing lives in the protocol engine.
type Property struct {
	Login     string `json:"login"`
	URI       string `json:"uri"`
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
	Value     string `json:"value"`

	// Prefixes maps namespace URIs to the prefixes used when the value was
	// serialized, so the protocol engine can re-emit it verbatim.
	Prefixes map[string]string `json:"prefixes,omitempty"`
}

// PropertyRef names a property without a value, for removals.
type PropertyRef struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

// PropertyUpdate is one atomic batch of property mutations.
//
// All sets and removes commit together or not at all.
type PropertyUpdate struct {
	Set    []Property
	Remove []PropertyRef
}

// ParentURI returns the URI of the collection containing uri, or "" when
// uri is the root ("/" or empty). Used for depth-1 lock inheritance.
func ParentURI(uri string) string {
	cleaned := path.Clean("/" + uri)
	if cleaned == "/" {
		return ""
	}
	return path.Dir(cleaned)
}
