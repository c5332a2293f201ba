package verify

import (
	"sort"
	"strings"
)

// Registry records entities established as on-topic by accepted claims.
// It lives for one Verify call and only grows.
type Registry struct {
	verified map[string]bool
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{verified: make(map[string]bool)}
}

// Register marks entities as verified and returns how many were new
func (r *Registry) Register(entities []string) int {
	added := 0
	for _, e := range entities {
		key := normalizeEntity(e)
		if key == "" || r.verified[key] {
			continue
		}
		r.verified[key] = true
		added++
	}
	return added
}

// Verified reports whether entity was registered
func (r *Registry) Verified(entity string) bool {
	return r.verified[normalizeEntity(entity)]
}

// Bridge returns the first of entities already registered
func (r *Registry) Bridge(entities []string) (string, bool) {
	for _, e := range entities {
		if r.Verified(e) {
			return strings.TrimSpace(e), true
		}
	}
	return "", false
}

// Len returns the number of registered entities
func (r *Registry) Len() int {
	return len(r.verified)
}

// Entities lists registered entities in sorted order
func (r *Registry) Entities() []string {
	out := make([]string, 0, len(r.verified))
	for e := range r.verified {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// Entity names compare case-insensitively ("RSA" bridges "rsa")
func normalizeEntity(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}
