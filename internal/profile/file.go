package profile

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/truckpark-cli/internal/model"
	"github.com/sells-group/truckpark-cli/internal/raw"
)

// File is the on-disk profiles document, used for state-specific 511 feeds
// and other sources without a built-in profile.
type File struct {
	Profiles []Spec `yaml:"profiles"`
}

// Spec is the YAML form of a Profile. Key paths are dotted strings.
type Spec struct {
	Source       string            `yaml:"source"`
	Description  string            `yaml:"description"`
	ID           []string          `yaml:"id"`
	IDNamespace  []string          `yaml:"id_namespace"`
	FileIDs      []string          `yaml:"file_id"`
	Name         []string          `yaml:"name"`
	Latitude     []string          `yaml:"latitude"`
	Longitude    []string          `yaml:"longitude"`
	FacilityType []string          `yaml:"facility_type"`
	Highway      []string          `yaml:"highway"`
	Operator     []string          `yaml:"operator"`
	State        []string          `yaml:"state"`
	City         []string          `yaml:"city"`
	TruckSpaces  []string          `yaml:"truck_spaces"`
	CameraURLs   []string          `yaml:"camera_urls"`
	Restrooms    BoolSpec          `yaml:"restrooms"`
	Fuel         BoolSpec          `yaml:"fuel"`
	Showers      BoolSpec          `yaml:"showers"`
	Wifi         BoolSpec          `yaml:"wifi"`
	Open24       BoolSpec          `yaml:"open_24"`
	Types        map[string]string `yaml:"types"`
}

// BoolSpec is the YAML form of a BoolField.
type BoolSpec struct {
	Paths  []string        `yaml:"paths"`
	Tokens map[string]bool `yaml:"tokens"`
	Lists  []ListSpec      `yaml:"lists"`
}

// ListSpec is the YAML form of a ListMatch.
type ListSpec struct {
	Path  string `yaml:"path"`
	Token string `yaml:"token"`
}

func (b BoolSpec) build() BoolField {
	bf := BoolField{Paths: raw.Paths(b.Paths...)}
	if len(b.Tokens) > 0 {
		bf.Tokens = make(map[string]bool, len(b.Tokens))
		for k, v := range b.Tokens {
			bf.Tokens[strings.ToLower(strings.TrimSpace(k))] = v
		}
	}
	for _, l := range b.Lists {
		bf.Lists = append(bf.Lists, ListMatch{Path: raw.ParsePath(l.Path), Token: l.Token})
	}
	return bf
}

// Build converts the YAML definition into a validated Profile.
func (s Spec) Build() (*Profile, error) {
	p := &Profile{
		Source:       strings.TrimSpace(s.Source),
		Description:  s.Description,
		ID:           raw.Paths(s.ID...),
		IDNamespace:  raw.Paths(s.IDNamespace...),
		FileIDs:      raw.Paths(s.FileIDs...),
		Name:         raw.Paths(s.Name...),
		Latitude:     raw.Paths(s.Latitude...),
		Longitude:    raw.Paths(s.Longitude...),
		FacilityType: raw.Paths(s.FacilityType...),
		Highway:      raw.Paths(s.Highway...),
		Operator:     raw.Paths(s.Operator...),
		State:        raw.Paths(s.State...),
		City:         raw.Paths(s.City...),
		TruckSpaces:  raw.Paths(s.TruckSpaces...),
		CameraURLs:   raw.Paths(s.CameraURLs...),
		Restrooms:    s.Restrooms.build(),
		Fuel:         s.Fuel.build(),
		Showers:      s.Showers.build(),
		Wifi:         s.Wifi.build(),
		Open24:       s.Open24.build(),
	}
	if len(s.Types) > 0 {
		p.Types = make(map[string]model.FacilityType, len(s.Types))
		for k, v := range s.Types {
			ft, err := model.ParseFacilityType(v)
			if err != nil {
				return nil, eris.Wrapf(ErrInvalid, "%s: type %q: %v", p.Source, k, err)
			}
			p.Types[strings.ToLower(strings.TrimSpace(k))] = ft
		}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Parse decodes a profiles document.
func Parse(data []byte) ([]*Profile, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "profile: parse yaml")
	}
	out := make([]*Profile, 0, len(f.Profiles))
	for i, s := range f.Profiles {
		p, err := s.Build()
		if err != nil {
			return nil, eris.Wrapf(err, "profile: entry %d", i)
		}
		out = append(out, p)
	}
	return out, nil
}

// LoadFile reads a profiles document from disk and registers every entry.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "profile: read %s", path)
	}
	profiles, err := Parse(data)
	if err != nil {
		return eris.Wrapf(err, "profile: load %s", path)
	}
	for _, p := range profiles {
		if err := r.Register(p); err != nil {
			return eris.Wrapf(err, "profile: load %s", path)
		}
	}
	return nil
}
