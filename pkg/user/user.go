// Package user describes storage tenants.
//
// User management (authentication, account lifecycle) belongs to an external
// component; the storage backend only needs the three fields below to resolve
// paths and enforce quotas. The facade takes the user as an explicit
// parameter on every call so the backend carries no request-scoped global
// state and stays safe under concurrent requests.
package user

import "fmt"

// User identifies a storage tenant.
type User struct {
	// Login is the unique account name.
	Login string `mapstructure:"login"`

	// Path is the absolute directory that bounds all URI resolution for
	// this user. Resources must never resolve outside it.
	Path string `mapstructure:"path"`

	// Quota is the maximum number of bytes the user may store.
	// 0 means unlimited.
	Quota int64 `mapstructure:"quota"`
}

// Unlimited reports whether the user has no configured storage limit.
func (u *User) Unlimited() bool {
	return u.Quota <= 0
}

// Provider resolves logins to users.
//
// The protocol engine authenticates the request and calls Lookup to obtain
// the tenant passed into every storage operation.
type Provider interface {
	// Lookup returns the user for a login, or an error if unknown.
	Lookup(login string) (*User, error)

	// All returns every known user (used by maintenance tasks).
	All() []*User
}

// StaticProvider is a Provider backed by a fixed user list, typically
// loaded from the configuration file.
type StaticProvider struct {
	users map[string]*User
}

// NewStaticProvider builds a provider from a fixed user list.
func NewStaticProvider(users []User) *StaticProvider {
	m := make(map[string]*User, len(users))
	for i := range users {
		u := users[i]
		m[u.Login] = &u
	}
	return &StaticProvider{users: m}
}

// Lookup implements Provider.
func (p *StaticProvider) Lookup(login string) (*User, error) {
	u, ok := p.users[login]
	if !ok {
		return nil, fmt.Errorf("unknown user: %q", login)
	}
	return u, nil
}

// All implements Provider.
func (p *StaticProvider) All() []*User {
	out := make([]*User, 0, len(p.users))
	for _, u := range p.users {
		out = append(out, u)
	}
	return out
}
