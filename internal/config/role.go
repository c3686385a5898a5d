package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ManagerRole is the reserved role name every config directory must
// define at least one agent for (if several do, the last one read is
// used); the manager is instantiated before any other role so its first
// stage_planning step can open the task.
const ManagerRole = "manager"

// LLMBlock is a role's llm_config YAML block.
type LLMBlock struct {
	APIType     string  `yaml:"api_type"` // "openai" | "ollama"
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url,omitempty"`
	APIKey      string  `yaml:"api_key,omitempty"`
	Temperature float64 `yaml:"temperature,omitempty"`
	MaxTokens   int     `yaml:"max_tokens,omitempty"`
}

// RoleConfig is one agent's static definition: identity, profile, and
// permission lists.
type RoleConfig struct {
	Path    string   `yaml:"-"`
	Name    string   `yaml:"name"`
	Role    string   `yaml:"role"`
	Profile string   `yaml:"profile"`
	Skills  []string `yaml:"skills"`
	Tools   []string `yaml:"tools"`
	LLM     LLMBlock `yaml:"llm_config"`
}

// LoadRoles scans <dir>/agents/*.yaml for role definitions. The manager
// role is required and always returned first.
func LoadRoles(dir string) ([]RoleConfig, error) {
	agentsDir := filepath.Join(dir, "agents")
	entries, err := os.ReadDir(agentsDir)
	if err != nil {
		return nil, fmt.Errorf("config: scan roles %q: %w", agentsDir, err)
	}

	var roles []RoleConfig
	var manager *RoleConfig
	var errs []error

	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".yaml" {
			continue
		}
		path := filepath.Join(agentsDir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("config: read role %q: %w", path, err))
			continue
		}
		var rc RoleConfig
		if err := yaml.Unmarshal(data, &rc); err != nil {
			errs = append(errs, fmt.Errorf("config: parse role %q: %w", path, err))
			continue
		}
		rc.Path = path
		if rc.Role == ManagerRole {
			cp := rc
			manager = &cp
			continue
		}
		roles = append(roles, rc)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("config: %d role file(s) failed to load: %v", len(errs), errs)
	}
	if manager == nil {
		return nil, fmt.Errorf("config: no role with role: %s found under %q", ManagerRole, agentsDir)
	}

	return append([]RoleConfig{*manager}, roles...), nil
}
