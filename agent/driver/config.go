package driver

import (
	"fmt"
	"strings"
	"time"

	"bookline/agent/contract"
)

type Config struct {
	OpenAIAPIKey string        `envconfig:"OPENAI_API_KEY" split_words:"true"`
	OpenAIModel  string        `envconfig:"OPENAI_MODEL" split_words:"true" default:"gpt-4o-mini"`
	GeminiAPIKey string        `envconfig:"GEMINI_API_KEY" split_words:"true"`
	GeminiModel  string        `envconfig:"GEMINI_MODEL" split_words:"true" default:"gemini-1.5-flash"`
	Temperature  float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.7"`
	Timeout      time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.OpenAIAPIKey) == "" && strings.TrimSpace(c.GeminiAPIKey) == "" {
		return fmt.Errorf("%w: at least one model provider key is required", contract.ErrValidation)
	}
	return nil
}

func (c Config) hasProvider(p contract.ModelProvider) bool {
	switch p {
	case contract.ProviderOpenAI:
		return strings.TrimSpace(c.OpenAIAPIKey) != ""
	case contract.ProviderGemini:
		return strings.TrimSpace(c.GeminiAPIKey) != ""
	}
	return false
}
