package driver

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/google/generative-ai-go/genai"

	"bookline/agent/contract"
)

type geminiDriver struct {
	client      *genai.Client
	model       string
	temperature float32
}

func newGeminiDriver(client *genai.Client, cfg Config) *geminiDriver {
	return &geminiDriver{
		client:      client,
		model:       cfg.GeminiModel,
		temperature: cfg.Temperature,
	}
}

func (d *geminiDriver) Provider() contract.ModelProvider {
	return contract.ProviderGemini
}

func (d *geminiDriver) Open(system string, history []contract.Turn, tools []*schema.ToolInfo) (contract.ModelSession, error) {
	model := d.client.GenerativeModel(d.model)
	model.SetTemperature(d.temperature)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}

	decls, err := geminiDeclarations(tools)
	if err != nil {
		return nil, err
	}
	if len(decls) > 0 {
		model.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	chat := model.StartChat()
	for _, turn := range history {
		role := "user"
		if turn.Role == contract.RoleAssistant {
			role = "model"
		}
		chat.History = append(chat.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(turn.Content)},
		})
	}

	return &geminiSession{chat: chat}, nil
}

type geminiSession struct {
	chat *genai.ChatSession
}

func (s *geminiSession) Send(ctx context.Context, text string) (contract.Reply, error) {
	resp, err := s.chat.SendMessage(ctx, genai.Text(text))
	if err != nil {
		return contract.Reply{}, fmt.Errorf("%w: gemini: %v", contract.ErrModelInvoke, err)
	}
	return parseGeminiResponse(resp)
}

func (s *geminiSession) Resume(ctx context.Context, results []contract.ToolResult) (contract.Reply, error) {
	parts := make([]genai.Part, 0, len(results))
	for _, res := range results {
		parts = append(parts, genai.FunctionResponse{
			Name:     res.Name,
			Response: map[string]any{"result": res.Content},
		})
	}

	resp, err := s.chat.SendMessage(ctx, parts...)
	if err != nil {
		return contract.Reply{}, fmt.Errorf("%w: gemini: %v", contract.ErrModelInvoke, err)
	}
	return parseGeminiResponse(resp)
}

// parseGeminiResponse folds the candidate parts into either text or tool
// calls. Gemini does not issue call IDs, so results are matched back by
// function name and a synthetic ID is kept for logging.
func parseGeminiResponse(resp *genai.GenerateContentResponse) (contract.Reply, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return contract.Reply{}, fmt.Errorf("%w: gemini returned no candidates", contract.ErrModelInvoke)
	}

	var (
		text  strings.Builder
		calls []contract.ToolCall
	)
	for i, part := range resp.Candidates[0].Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			text.WriteString(string(p))
		case genai.FunctionCall:
			calls = append(calls, contract.ToolCall{
				ID:   fmt.Sprintf("%s-%d", p.Name, i),
				Name: p.Name,
				Args: p.Args,
			})
		}
	}

	if len(calls) > 0 {
		return contract.Reply{ToolCalls: calls}, nil
	}
	return contract.Reply{Text: text.String()}, nil
}
