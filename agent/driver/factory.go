package driver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"bookline/agent/contract"
)

// Factory hands out a driver for whichever provider a business profile
// selects. Clients are built once and shared.
type Factory struct {
	cfg    Config
	openai *openAIDriver
	gemini *geminiDriver
}

func NewFactory(ctx context.Context, cfg Config) (*Factory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	f := &Factory{cfg: cfg}
	if cfg.hasProvider(contract.ProviderOpenAI) {
		f.openai = newOpenAIDriver(cfg)
	}
	if cfg.hasProvider(contract.ProviderGemini) {
		client, err := genai.NewClient(ctx, option.WithAPIKey(strings.TrimSpace(cfg.GeminiAPIKey)))
		if err != nil {
			return nil, fmt.Errorf("create gemini client: %w", err)
		}
		f.gemini = newGeminiDriver(client, cfg)
	}
	return f, nil
}

func (f *Factory) DriverFor(provider contract.ModelProvider) (contract.ModelDriver, error) {
	switch provider {
	case contract.ProviderOpenAI:
		if f.openai == nil {
			return nil, fmt.Errorf("%w: openai key missing", contract.ErrNotConfigured)
		}
		return f.openai, nil
	case contract.ProviderGemini:
		if f.gemini == nil {
			return nil, fmt.Errorf("%w: gemini key missing", contract.ErrNotConfigured)
		}
		return f.gemini, nil
	default:
		return nil, fmt.Errorf("%w: unknown model provider %q", contract.ErrNotConfigured, provider)
	}
}

// Timeout is the per-call budget the orchestrator applies around each
// model invocation.
func (f *Factory) Timeout() time.Duration {
	return f.cfg.Timeout
}
