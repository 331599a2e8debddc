package driver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	openaisdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"bookline/agent/contract"
)

type openAIDriver struct {
	client      openaisdk.Client
	model       string
	temperature float32
}

func newOpenAIDriver(cfg Config) *openAIDriver {
	client := openaisdk.NewClient(option.WithAPIKey(strings.TrimSpace(cfg.OpenAIAPIKey)))
	return &openAIDriver{
		client:      client,
		model:       cfg.OpenAIModel,
		temperature: cfg.Temperature,
	}
}

func (d *openAIDriver) Provider() contract.ModelProvider {
	return contract.ProviderOpenAI
}

func (d *openAIDriver) Open(system string, history []contract.Turn, tools []*schema.ToolInfo) (contract.ModelSession, error) {
	messages := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(history)+2)
	messages = append(messages, openaisdk.SystemMessage(system))
	for _, turn := range history {
		switch turn.Role {
		case contract.RoleCustomer:
			messages = append(messages, openaisdk.UserMessage(turn.Content))
		case contract.RoleAssistant:
			messages = append(messages, openaisdk.AssistantMessage(turn.Content))
		}
	}

	toolParams := make([]openaisdk.ChatCompletionToolUnionParam, 0, len(tools))
	for _, ti := range tools {
		params, err := jsonParameters(ti)
		if err != nil {
			return nil, err
		}
		toolParams = append(toolParams, openaisdk.ChatCompletionToolUnionParam{
			OfFunction: &openaisdk.ChatCompletionFunctionToolParam{
				Function: openaisdk.FunctionDefinitionParam{
					Name:        ti.Name,
					Description: openaisdk.String(ti.Desc),
					Parameters:  openaisdk.FunctionParameters(params),
				},
			},
		})
	}

	return &openAISession{
		client: d.client,
		params: openaisdk.ChatCompletionNewParams{
			Model:       openaisdk.ChatModel(d.model),
			Messages:    messages,
			Tools:       toolParams,
			Temperature: openaisdk.Float(float64(d.temperature)),
		},
	}, nil
}

// openAISession keeps the running message list so assistant tool-call
// turns and their results stay paired across Resume calls.
type openAISession struct {
	client openaisdk.Client
	params openaisdk.ChatCompletionNewParams
}

func (s *openAISession) Send(ctx context.Context, text string) (contract.Reply, error) {
	s.params.Messages = append(s.params.Messages, openaisdk.UserMessage(text))
	return s.complete(ctx)
}

func (s *openAISession) Resume(ctx context.Context, results []contract.ToolResult) (contract.Reply, error) {
	for _, res := range results {
		s.params.Messages = append(s.params.Messages, openaisdk.ToolMessage(res.Content, res.CallID))
	}
	return s.complete(ctx)
}

func (s *openAISession) complete(ctx context.Context) (contract.Reply, error) {
	completion, err := s.client.Chat.Completions.New(ctx, s.params)
	if err != nil {
		return contract.Reply{}, fmt.Errorf("%w: openai: %v", contract.ErrModelInvoke, err)
	}
	if len(completion.Choices) == 0 {
		return contract.Reply{}, fmt.Errorf("%w: openai returned no choices", contract.ErrModelInvoke)
	}

	message := completion.Choices[0].Message
	if len(message.ToolCalls) > 0 {
		s.params.Messages = append(s.params.Messages, message.ToParam())

		calls := make([]contract.ToolCall, 0, len(message.ToolCalls))
		for _, tc := range message.ToolCalls {
			args := map[string]any{}
			if raw := tc.Function.Arguments; raw != "" {
				if err := json.Unmarshal([]byte(raw), &args); err != nil {
					return contract.Reply{}, fmt.Errorf("%w: decode %s arguments: %v", contract.ErrModelInvoke, tc.Function.Name, err)
				}
			}
			calls = append(calls, contract.ToolCall{
				ID:   tc.ID,
				Name: tc.Function.Name,
				Args: args,
			})
		}
		return contract.Reply{ToolCalls: calls}, nil
	}

	s.params.Messages = append(s.params.Messages, openaisdk.AssistantMessage(message.Content))
	return contract.Reply{Text: message.Content}, nil
}
