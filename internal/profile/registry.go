package profile

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrUnknownSource is returned when no profile is registered under a name.
var ErrUnknownSource = eris.New("unknown source profile")

// Registry maps source names to their profiles.
type Registry struct {
	profiles map[string]*Profile
	order    []string // insertion order for deterministic iteration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		profiles: make(map[string]*Profile),
	}
}

// DefaultRegistry returns a registry holding every built-in profile.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, p := range Builtins() {
		// Built-ins are covered by tests; a failure here is a programming error.
		if err := r.Register(p); err != nil {
			panic(err)
		}
	}
	return r
}

// Register validates p and adds it. Registering the same source twice is an
// error so a profiles file cannot silently shadow a built-in.
func (r *Registry) Register(p *Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if _, ok := r.profiles[p.Source]; ok {
		return eris.Errorf("profile: source %q already registered", p.Source)
	}
	r.profiles[p.Source] = p
	r.order = append(r.order, p.Source)
	return nil
}

// Get returns a profile by source name.
func (r *Registry) Get(name string) (*Profile, error) {
	p, ok := r.profiles[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, eris.Wrapf(ErrUnknownSource, "profile: %q", name)
	}
	return p, nil
}

// All returns all profiles in registration order.
func (r *Registry) All() []*Profile {
	out := make([]*Profile, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.profiles[name])
	}
	return out
}

// Names returns all registered source names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Match picks the profile whose source name prefixes the file's base name,
// e.g. "tpims_mn_static.json" -> tpims. The longest matching name wins.
func (r *Registry) Match(path string) (*Profile, bool) {
	base := strings.ToLower(filepath.Base(path))
	var best *Profile
	for _, name := range r.order {
		if !strings.HasPrefix(base, name) {
			continue
		}
		if best == nil || len(name) > len(best.Source) {
			best = r.profiles[name]
		}
	}
	return best, best != nil
}
