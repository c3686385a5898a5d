package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// HumanBlock is a human agent's bind credentials and access level.
type HumanBlock struct {
	AgentID  string `yaml:"agent_id,omitempty"`
	Password string `yaml:"password"`
	Level    string `yaml:"level"`
}

// HumanConfig is a human-bound agent's static definition: a RoleConfig
// plus the bind credentials BindHumanAgent checks against.
type HumanConfig struct {
	RoleConfig `yaml:",inline"`
	Human      HumanBlock `yaml:"human_config"`
}

// LoadHumans scans <dir>/humans/*.yaml for human agent definitions.
func LoadHumans(dir string) ([]HumanConfig, error) {
	humansDir := filepath.Join(dir, "humans")
	entries, err := os.ReadDir(humansDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: scan humans %q: %w", humansDir, err)
	}

	var humans []HumanConfig
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".yaml" {
			continue
		}
		path := filepath.Join(humansDir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read human %q: %w", path, err)
		}
		var hc HumanConfig
		if err := yaml.Unmarshal(data, &hc); err != nil {
			return nil, fmt.Errorf("config: parse human %q: %w", path, err)
		}
		hc.Path = path
		humans = append(humans, hc)
	}
	return humans, nil
}

// PersistAgentID writes the generated agent id back into the human's
// YAML file in place, preserving every other key. yaml.v3 round-trips
// through a plain map rather than a comment-preserving Node tree, so
// any comments in the source file are lost on rewrite — acceptable here
// since these files are machine-generated/edited, not hand-annotated.
func PersistAgentID(path, agentID string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read human %q: %w", path, err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("config: parse human %q: %w", path, err)
	}

	human, _ := doc["human_config"].(map[string]any)
	if human == nil {
		human = map[string]any{}
	}
	human["agent_id"] = agentID
	doc["human_config"] = human

	out, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("config: marshal human %q: %w", path, err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("config: write human %q: %w", path, err)
	}
	return nil
}
