package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadDefaultLLM reads the fallback llm_config used when a message
// names an agent id with no matching role config, so that dynamically
// created agents still have a working model client.
func LoadDefaultLLM(path string) (LLMBlock, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return LLMBlock{}, fmt.Errorf("config: read default llm %q: %w", path, err)
	}
	var wrapper struct {
		LLM LLMBlock `yaml:"llm_config"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return LLMBlock{}, fmt.Errorf("config: parse default llm %q: %w", path, err)
	}
	return wrapper.LLM, nil
}
