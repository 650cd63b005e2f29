package policy

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed policy.yaml
var embeddedProfiles []byte

// Profile is one versioned policy document: the fixed natural-language
// instruction set delivered to the model byte-for-byte. Job-type heuristics,
// packing factors and the required output format all live here, never in code,
// so adding a job type is a policy edit rather than a release.
type Profile struct {
	Name            string `yaml:"name"`
	Version         string `yaml:"version"`
	MaxOutputTokens int    `yaml:"max_output_tokens"`
	Instructions    string `yaml:"instructions"`
}

type Set struct {
	Default  string    `yaml:"default"`
	Profiles []Profile `yaml:"profiles"`
}

// Load returns the embedded profile set, or the set parsed from path when a
// path is given. An external file replaces the embedded set entirely.
func Load(path string) (*Set, error) {
	raw := embeddedProfiles
	if strings.TrimSpace(path) != "" {
		fileRaw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read policy file: %w", err)
		}
		raw = fileRaw
	}

	var set Set
	if err := yaml.Unmarshal(raw, &set); err != nil {
		return nil, fmt.Errorf("parse policy profiles: %w", err)
	}
	if len(set.Profiles) == 0 {
		return nil, fmt.Errorf("policy set has no profiles")
	}
	if set.Default == "" {
		set.Default = set.Profiles[0].Name
	}
	if _, err := set.Profile(set.Default); err != nil {
		return nil, err
	}
	for _, p := range set.Profiles {
		if strings.TrimSpace(p.Instructions) == "" {
			return nil, fmt.Errorf("policy profile %q has empty instructions", p.Name)
		}
	}
	return &set, nil
}

// Profile returns the named profile, or the default when name is empty.
func (s *Set) Profile(name string) (Profile, error) {
	if strings.TrimSpace(name) == "" {
		name = s.Default
	}
	for _, p := range s.Profiles {
		if p.Name == name {
			return p, nil
		}
	}
	return Profile{}, fmt.Errorf("unknown policy profile %q", name)
}
