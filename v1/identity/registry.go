package identity

import "fmt"

// Registry is an immutable, validated list of identities.
type Registry struct {
	ids []Identity
}

// NewRegistry builds a registry from ids and validates it.
func NewRegistry(ids ...Identity) (*Registry, error) {
	r := &Registry{ids: append([]Identity(nil), ids...)}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// MustRegistry is like NewRegistry but panics when validation fails.
func MustRegistry(ids ...Identity) *Registry {
	r, err := NewRegistry(ids...)
	if err != nil {
		panic(err)
	}
	return r
}

// Validate checks every identity and the uniqueness of their keys.
func (r *Registry) Validate() error {
	seen := make(map[string]struct{}, len(r.ids))
	for _, id := range r.ids {
		if err := id.check(); err != nil {
			return err
		}
		if _, ok := seen[id.key]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateIdentity, id.key)
		}
		seen[id.key] = struct{}{}
	}
	if len(seen) != len(r.ids) {
		return ErrDuplicateIdentity
	}
	return nil
}

// Lookup returns the identity registered under key. Unknown and empty keys
// report false.
func (r *Registry) Lookup(key string) (Identity, bool) {
	if r == nil || key == "" {
		return Identity{}, false
	}
	for _, id := range r.ids {
		if id.key == key {
			return id, true
		}
	}
	return Identity{}, false
}

// Contains reports whether id is registered with the same key, marker and
// lease.
func (r *Registry) Contains(id Identity) bool {
	got, ok := r.Lookup(id.key)
	return ok && got == id
}

// All returns a copy of the registered identities in declaration order.
func (r *Registry) All() []Identity {
	if r == nil {
		return nil
	}
	return append([]Identity(nil), r.ids...)
}

// Len returns the number of identities.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.ids)
}
