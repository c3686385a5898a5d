package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// UseGuide is the human-facing description a tool server carries
// alongside its connection details, surfaced to agents deciding which
// server to call.
type UseGuide struct {
	ToolName    string `yaml:"tool_name"`
	Description string `yaml:"description"`
}

// ToolServerConfig describes a single MCP tool server connection.
// Name is populated from the mcpServers map key, not a YAML field.
type ToolServerConfig struct {
	Name      string   `yaml:"-"`
	Transport string   `yaml:"transport"`
	Command   string   `yaml:"command,omitempty"`
	Args      []string `yaml:"args,omitempty"`
	URL       string   `yaml:"url,omitempty"`
	Env       []string `yaml:"env,omitempty"`
	UseGuide  UseGuide `yaml:"use_guide"`
}

type toolServerFile struct {
	MCPServers map[string]ToolServerConfig `yaml:"mcpServers"`
}

// LoadToolServers reads and parses a tool-server config file, populating
// each entry's Name from its map key.
func LoadToolServers(path string) (map[string]ToolServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read tool servers %q: %w", path, err)
	}

	var file toolServerFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("config: parse tool servers %q: %w", path, err)
	}

	if file.MCPServers == nil {
		return map[string]ToolServerConfig{}, nil
	}
	for name, cfg := range file.MCPServers {
		cfg.Name = name
		file.MCPServers[name] = cfg
	}
	return file.MCPServers, nil
}
