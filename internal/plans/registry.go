package plans

import (
	"embed"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed config/*.yaml
var configFiles embed.FS

// DefaultPlan is assigned to owners without an explicit plan.
const DefaultPlan = "free"

// Registry holds the storage quota plans loaded at startup. It is built
// once, injected into the services that need it, and never mutated at
// runtime.
type Registry struct {
	plans map[string]Plan
	mu    sync.RWMutex
}

// NewRegistry creates a plan registry from the embedded YAML file
func NewRegistry() (*Registry, error) {
	data, err := configFiles.ReadFile("config/plans.yaml")
	if err != nil {
		return nil, fmt.Errorf("read plans.yaml: %w", err)
	}

	var file planFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unmarshal plans.yaml: %w", err)
	}

	if _, ok := file.Plans[DefaultPlan]; !ok {
		return nil, fmt.Errorf("plans.yaml must define the %q plan", DefaultPlan)
	}

	r := &Registry{plans: make(map[string]Plan, len(file.Plans))}
	for id, p := range file.Plans {
		p.ID = id
		r.plans[id] = p
	}
	return r, nil
}

// Get returns a plan by ID
func (r *Registry) Get(id string) (Plan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.plans[id]
	if !ok {
		return Plan{}, fmt.Errorf("unknown plan: %s", id)
	}
	return p, nil
}

// QuotaFor returns the quota for a plan ID, falling back to the default
// plan when the ID is empty or unknown (legacy rows)
func (r *Registry) QuotaFor(id string) int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.plans[id]; ok {
		return p.QuotaBytes
	}
	return r.plans[DefaultPlan].QuotaBytes
}

// List returns all plans ordered by quota ascending
func (r *Registry) List() []Plan {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Plan, 0, len(r.plans))
	for _, p := range r.plans {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuotaBytes < out[j].QuotaBytes })
	return out
}
