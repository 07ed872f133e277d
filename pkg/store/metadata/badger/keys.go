package badger

import "path"

// Database Key Namespace Design
// ==============================
//
// BadgerDB is a key-value store, so we use prefixed keys to organize the two
// row types into logical namespaces. This design:
//   - Prevents key collisions between locks and properties
//   - Enables efficient range scans (all properties of a subtree)
//   - Makes the database structure self-documenting
//
// Key Namespace Prefixes:
//
// Data Type   Prefix  Key Format                                   Value Type
// ===========================================================================
// Lock Rows   "lk:"   lk:<login>:<uri>                             Lock (JSON)
// Properties  "pr:"   pr:<login>:<uri>\x00<namespace>\x00<name>    Property (JSON)
//
// Key Design Rationale:
//
// 1. Lock Rows (lk:)
//    - One entry per (login, uri); SetLock overwrites in place, which gives
//      the last-writer-wins replacement semantics for free
//    - Point lookup by exact key: O(1); the parent lookup for depth-1
//      inheritance is a second point lookup, never a scan
//    - The sweeper iterates the whole "lk:" namespace, which stays small
//      because rows expire within one lease
//
// 2. Properties (pr:)
//    - One entry per (login, uri, namespace, name)
//    - \x00 separates the uri from the namespace and name: it cannot appear
//      in any of the three, so keys parse unambiguously and a resource's
//      rows scan with prefix "pr:<login>:<uri>\x00"
//    - Subtree scans (delete/move lifecycle) use prefix "pr:<login>:<uri>/"
//      plus the exact-resource prefix above
//
// URIs are normalized (leading slash, path.Clean) before key construction so
// "/a/b", "a/b" and "/a//b" address the same rows.

const (
	// prefixLock is the key prefix for lock rows
	prefixLock = "lk:"

	// prefixProperty is the key prefix for property rows
	prefixProperty = "pr:"

	// sep separates URI, namespace and name inside property keys.
	// It cannot occur in any of the three components.
	sep = "\x00"
)

// normURI canonicalizes a user-relative URI for key construction.
func normURI(uri string) string {
	return path.Clean("/" + uri)
}

// keyLock generates the key for a lock row.
//
// Format: "lk:<login>:<uri>"
func keyLock(login, uri string) []byte {
	return []byte(prefixLock + login + ":" + normURI(uri))
}

// keyLockPrefix generates the prefix for scanning every lock row.
func keyLockPrefix() []byte {
	return []byte(prefixLock)
}

// keyProperty generates the key for a property row.
//
// Format: "pr:<login>:<uri>\x00<namespace>\x00<name>"
func keyProperty(login, uri, namespace, name string) []byte {
	return []byte(prefixProperty + login + ":" + normURI(uri) + sep + namespace + sep + name)
}

// keyPropertyResourcePrefix generates the prefix matching all properties of
// exactly one resource.
//
// Format: "pr:<login>:<uri>\x00"
func keyPropertyResourcePrefix(login, uri string) []byte {
	return []byte(prefixProperty + login + ":" + normURI(uri) + sep)
}

// keyPropertySubtreePrefix generates the prefix matching all properties of
// the resources strictly below uri.
//
// Format: "pr:<login>:<uri>/"
func keyPropertySubtreePrefix(login, uri string) []byte {
	base := normURI(uri)
	if base == "/" {
		return []byte(prefixProperty + login + ":/")
	}
	return []byte(prefixProperty + login + ":" + base + "/")
}
