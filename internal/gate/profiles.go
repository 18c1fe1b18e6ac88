package gate

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/tessella/tessella-backend/internal/platform/envutil"
)

//go:embed profiles.yaml
var profilesYAML []byte

// Profile is one named set of acceptance thresholds. ValidationMargin is
// added to the promote threshold for candidates flagged requires_validation,
// so uncertain identities need stronger evidence to pass.
type Profile struct {
	Name                  string
	PromoteThreshold      float64 `yaml:"promote_threshold"`
	ValidationMargin      float64 `yaml:"validation_margin"`
	MinRelationConfidence float64 `yaml:"min_relation_confidence"`
}

type profileFile struct {
	Profiles map[string]Profile `yaml:"profiles"`
}

// LoadProfile resolves the named gating profile from the embedded bank,
// defaulting to the GATE_PROFILE env selection and then to "default".
func LoadProfile(name string) (Profile, error) {
	var file profileFile
	if err := yaml.Unmarshal(profilesYAML, &file); err != nil {
		return Profile{}, fmt.Errorf("gate: parse profiles: %w", err)
	}
	if name == "" {
		name = envutil.String("GATE_PROFILE", "default")
	}
	p, ok := file.Profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("gate: unknown profile %q", name)
	}
	p.Name = name
	return p, nil
}
