package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// UsePrompt is a skill's prompt template and the return-format schema
// appended to it when a step invokes this skill.
type UsePrompt struct {
	SkillPrompt  string `yaml:"skill_prompt"`
	ReturnFormat string `yaml:"return_format"`
}

// SkillConfig is one skill's static definition: a named prompt
// template, not a subprocess entrypoint.
type SkillConfig struct {
	Path      string    `yaml:"-"`
	Name      string    `yaml:"name"`
	UseGuide  string    `yaml:"use_guide"`
	UsePrompt UsePrompt `yaml:"use_prompt"`
}

// LoadSkills scans <dir>/skills/*.yaml for skill definitions.
// Subdirectories without a matching file are silently skipped; a
// missing skills/ directory returns an empty slice, not an error.
func LoadSkills(dir string) ([]SkillConfig, error) {
	skillsDir := filepath.Join(dir, "skills")
	entries, err := os.ReadDir(skillsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: scan skills %q: %w", skillsDir, err)
	}

	var skills []SkillConfig
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".yaml" {
			continue
		}
		path := filepath.Join(skillsDir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read skill %q: %w", path, err)
		}
		var sc SkillConfig
		if err := yaml.Unmarshal(data, &sc); err != nil {
			return nil, fmt.Errorf("config: parse skill %q: %w", path, err)
		}
		if sc.Name == "" {
			return nil, fmt.Errorf("config: skill %q: name is required", path)
		}
		sc.Path = path
		skills = append(skills, sc)
	}
	return skills, nil
}
