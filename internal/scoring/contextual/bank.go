package contextual

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	types "github.com/tessella/tessella-backend/internal/domain"
)

//go:embed reference_phrases.yaml
var referencePhrasesYAML []byte

type phraseBank struct {
	Roles map[string][]string `yaml:"roles"`
}

func loadPhraseBank() (*phraseBank, error) {
	var bank phraseBank
	if err := yaml.Unmarshal(referencePhrasesYAML, &bank); err != nil {
		return nil, fmt.Errorf("contextual: parse reference phrases: %w", err)
	}
	for _, role := range []string{types.RolePrimary, types.RoleCompetitor, types.RoleSecondary} {
		if len(bank.Roles[role]) == 0 {
			return nil, fmt.Errorf("contextual: reference phrases missing role %s", role)
		}
	}
	return &bank, nil
}
