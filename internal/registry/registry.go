// Package registry maps document categories to analysis models and the fields expected for them.
// A Registry is immutable after construction and safe for concurrent reads.
package registry

import (
	"fmt"
	"sort"
	"strings"
)

// Model identifiers that are not tied to a single category.
const (
	LayoutModelID  = "prebuilt-layout"
	GenericModelID = "prebuilt-document"
)

// Category keys with special meaning.
const (
	CategoryGeneral = "general"
	CategoryUnknown = "unknown"
)

// Profile is the static configuration of one document category.
type Profile struct {
	Key            string   `json:"categoryKey"`
	ModelID        string   `json:"analysisModelId"`
	DisplayName    string   `json:"displayName"`
	ExpectedFields []string `json:"expectedFields"`
}

// Registry is a read-only lookup of category profiles.
type Registry struct {
	byKey   map[string]Profile
	byModel map[string]Profile
	keys    []string
}

// New builds a registry from profiles. Keys are matched case-insensitively.
// Returns an error for empty or duplicate keys.
func New(profiles []Profile) (*Registry, error) {
	r := &Registry{
		byKey:   make(map[string]Profile, len(profiles)),
		byModel: make(map[string]Profile, len(profiles)),
	}
	for _, p := range profiles {
		key := normalizeKey(p.Key)
		if key == "" {
			return nil, fmt.Errorf("profile with empty category key")
		}
		if p.ModelID == "" {
			return nil, fmt.Errorf("profile %q has no model id", p.Key)
		}
		if _, dup := r.byKey[key]; dup {
			return nil, fmt.Errorf("duplicate category key %q", p.Key)
		}
		p.Key = key
		p.ExpectedFields = append([]string(nil), p.ExpectedFields...)
		r.byKey[key] = p
		if _, seen := r.byModel[p.ModelID]; !seen {
			r.byModel[p.ModelID] = p
		}
		r.keys = append(r.keys, key)
	}
	sort.Strings(r.keys)
	return r, nil
}

// MustNew is New that panics on error, for static tables.
func MustNew(profiles []Profile) *Registry {
	r, err := New(profiles)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the profile for categoryKey.
func (r *Registry) Lookup(categoryKey string) (Profile, bool) {
	p, ok := r.byKey[normalizeKey(categoryKey)]
	if !ok {
		return Profile{}, false
	}
	p.ExpectedFields = append([]string(nil), p.ExpectedFields...)
	return p, true
}

// ModelFor resolves a category hint to an analysis model id.
// Absent or unknown hints resolve to the generic model rather than failing.
func (r *Registry) ModelFor(hint string) string {
	if p, ok := r.byKey[normalizeKey(hint)]; ok {
		return p.ModelID
	}
	return GenericModelID
}

// ByModel returns the first profile registered for modelID.
func (r *Registry) ByModel(modelID string) (Profile, bool) {
	p, ok := r.byModel[modelID]
	return p, ok
}

// DisplayName returns the display name for modelID, or "" when unknown.
func (r *Registry) DisplayName(modelID string) string {
	if p, ok := r.byModel[modelID]; ok {
		return p.DisplayName
	}
	return ""
}

// Profiles returns all profiles ordered by key.
func (r *Registry) Profiles() []Profile {
	out := make([]Profile, 0, len(r.keys))
	for _, k := range r.keys {
		p, _ := r.Lookup(k)
		out = append(out, p)
	}
	return out
}

func normalizeKey(k string) string {
	return strings.ToLower(strings.TrimSpace(k))
}
