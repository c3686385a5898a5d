package mas

import (
	"fmt"

	"github.com/motern88/allen/internal/config"
	"github.com/motern88/allen/internal/llm/ollama"
	"github.com/motern88/allen/internal/llm/openai"
	"github.com/motern88/allen/internal/state"
)

// buildLLMClient resolves an llm_config block to a concrete
// state.LLMClient, dispatching on api_type. This is the one place that
// decides which provider package an agent's model calls go through.
func buildLLMClient(block config.LLMBlock) (state.LLMClient, state.LLMConfig, error) {
	cfg := state.LLMConfig{
		Provider:    block.APIType,
		Model:       block.Model,
		BaseURL:     block.BaseURL,
		APIKey:      block.APIKey,
		Temperature: block.Temperature,
		MaxTokens:   block.MaxTokens,
	}

	switch block.APIType {
	case "", "openai":
		occ := openai.FromAgentConfig(block.BaseURL, block.APIKey, block.Model, block.Temperature, block.MaxTokens)
		if block.Model == "" && block.APIKey == "" {
			envCfg, err := openai.NewConfigFromEnv()
			if err != nil {
				return nil, cfg, fmt.Errorf("mas: build openai client from environment: %w", err)
			}
			occ = envCfg
			cfg.Model, cfg.BaseURL = envCfg.Model, envCfg.BaseURL
		}
		client, err := openai.NewClient(occ)
		if err != nil {
			return nil, cfg, fmt.Errorf("mas: build openai client: %w", err)
		}
		return openai.NewAdapter(client), cfg, nil

	case "ollama":
		oc := ollama.Config{BaseURL: block.BaseURL, Model: block.Model}
		if block.Temperature > 0 {
			t := block.Temperature
			oc.Temperature = &t
		}
		if block.MaxTokens > 0 {
			n := block.MaxTokens
			oc.NumPredict = &n
		}
		client := ollama.NewClient(oc)
		return ollama.NewAdapter(client), cfg, nil

	default:
		return nil, cfg, fmt.Errorf("mas: unknown llm api_type %q", block.APIType)
	}
}
