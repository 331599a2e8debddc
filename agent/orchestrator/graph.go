package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
)

func (s *Service) compileHandleMessageGraph(ctx context.Context) (compose.Runnable[GraphInput, GraphOutput], error) {
	graph := compose.NewGraph[GraphInput, GraphOutput]()

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in GraphInput) (*GraphState, error) {
			return validateRequest(in, s.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	if err := graph.AddLambdaNode("load_business",
		compose.InvokableLambda(func(ctx context.Context, in *GraphState) (*GraphState, error) {
			return s.loadBusiness(ctx, in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node load_business: %w", err)
	}

	if err := graph.AddLambdaNode("begin_transcript",
		compose.InvokableLambda(func(ctx context.Context, in *GraphState) (*GraphState, error) {
			return s.beginTranscript(ctx, in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node begin_transcript: %w", err)
	}

	if err := graph.AddLambdaNode("run_agent",
		compose.InvokableLambda(func(ctx context.Context, in *GraphState) (*GraphState, error) {
			return s.runAgent(ctx, in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node run_agent: %w", err)
	}

	if err := graph.AddLambdaNode("save_transcript",
		compose.InvokableLambda(func(ctx context.Context, in *GraphState) (*GraphState, error) {
			return s.saveTranscript(ctx, in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node save_transcript: %w", err)
	}

	if err := graph.AddLambdaNode("deliver_reply",
		compose.InvokableLambda(func(ctx context.Context, in *GraphState) (*GraphState, error) {
			return s.deliverReply(ctx, in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node deliver_reply: %w", err)
	}

	if err := graph.AddLambdaNode("finalize_reply",
		compose.InvokableLambda(func(ctx context.Context, in *GraphState) (GraphOutput, error) {
			return finalizeReply(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_reply: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_request"},
		{"validate_request", "load_business"},
		{"load_business", "begin_transcript"},
		{"begin_transcript", "run_agent"},
		{"run_agent", "save_transcript"},
		{"save_transcript", "deliver_reply"},
		{"deliver_reply", "finalize_reply"},
		{"finalize_reply", compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("orchestrator.handle_message"))
	if err != nil {
		return nil, fmt.Errorf("compile orchestrator graph: %w", err)
	}
	return runner, nil
}
