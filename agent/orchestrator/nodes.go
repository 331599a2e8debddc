package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"bookline/agent/contract"
	"bookline/agent/conversation"
	"bookline/agent/tool"
)

// fallbackReply is sent when the model produced nothing usable or the
// tool loop ran past its budget.
const fallbackReply = "I'm sorry, I couldn't process that. Could you try again?"

// maxToolIterations caps how many times a single turn may go back to
// the model after tool execution.
const maxToolIterations = 6

type GraphInput struct {
	BusinessID    string
	CustomerPhone string
	Text          string
}

type GraphOutput struct {
	Reply string
}

type GraphState struct {
	BusinessID    string
	CustomerPhone string
	Text          string
	Now           time.Time

	Profile  *contract.BusinessProfile
	Channel  *contract.ChannelConfig
	Location *time.Location
	Driver   contract.ModelDriver

	History []contract.Turn
	Reply   string
}

func validateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	businessID := strings.TrimSpace(in.BusinessID)
	if businessID == "" {
		return nil, fmt.Errorf("%w: business id is empty", contract.ErrValidation)
	}
	customerPhone := strings.TrimSpace(in.CustomerPhone)
	if customerPhone == "" {
		return nil, fmt.Errorf("%w: customer phone is empty", contract.ErrValidation)
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: message is empty", contract.ErrValidation)
	}

	return &GraphState{
		BusinessID:    businessID,
		CustomerPhone: customerPhone,
		Text:          text,
		Now:           nowFn().UTC(),
	}, nil
}

func (s *Service) loadBusiness(ctx context.Context, st *GraphState) (*GraphState, error) {
	profile, err := s.repo.GetProfile(ctx, st.BusinessID)
	if err != nil {
		return nil, fmt.Errorf("load business profile: %w", err)
	}

	channel, err := s.repo.GetChannel(ctx, st.BusinessID)
	if err != nil {
		return nil, fmt.Errorf("load channel config: %w", err)
	}
	if !channel.Active {
		return nil, fmt.Errorf("%w: messaging channel is disabled", contract.ErrNotConfigured)
	}

	loc, err := time.LoadLocation(profile.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: bad timezone %q", contract.ErrNotConfigured, profile.Timezone)
	}

	drv, err := s.drivers.DriverFor(profile.AIProvider)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("business_id", st.BusinessID).
		Str("provider", string(drv.Provider())).
		Msg("model driver selected")

	st.Profile = profile
	st.Channel = channel
	st.Location = loc
	st.Driver = drv
	return st, nil
}

func (s *Service) beginTranscript(ctx context.Context, st *GraphState) (*GraphState, error) {
	history, err := s.conversations.Load(ctx, st.BusinessID, st.CustomerPhone)
	if err != nil {
		if !errors.Is(err, contract.ErrConversationNotFound) {
			return nil, fmt.Errorf("load conversation: %w", err)
		}
		// First contact for this pair. Make sure the business has a
		// catalog before the model can ask for it.
		if s.seeder != nil {
			if seedErr := s.seeder.SeedDefaultServices(ctx, st.BusinessID, st.Profile.Profession); seedErr != nil {
				log.Warn().Err(seedErr).
					Str("business_id", st.BusinessID).
					Msg("default catalog seed failed")
			}
		}
	}

	history = conversation.Append(history, contract.RoleCustomer, st.Text, st.Now)
	st.History = conversation.Trim(history)
	return st, nil
}

// runAgent drives the model until it stops asking for tools. The new
// customer turn is already at the tail of the history, so the model
// session is opened on everything before it.
func (s *Service) runAgent(ctx context.Context, st *GraphState) (*GraphState, error) {
	system := buildSystemPrompt(st.Profile, st.Now, st.Location)
	prior := st.History[:len(st.History)-1]

	session, err := st.Driver.Open(system, prior, tool.Infos())
	if err != nil {
		return nil, fmt.Errorf("open model session: %w", err)
	}

	executor := tool.NewExecutor(s.repo, s.calendar, st.Profile, st.Location)

	reply, err := s.invokeModel(ctx, func(callCtx context.Context) (contract.Reply, error) {
		return session.Send(callCtx, st.Text)
	})
	if err != nil {
		return nil, err
	}

	for i := 0; reply.IsToolCalls(); i++ {
		if i >= maxToolIterations {
			log.Warn().
				Err(fmt.Errorf("%w: %d iterations", contract.ErrToolLoopExceeded, i)).
				Str("business_id", st.BusinessID).
				Str("customer_phone", st.CustomerPhone).
				Msg("tool loop exceeded budget, falling back")
			st.Reply = fallbackReply
			return st, nil
		}

		results := make([]contract.ToolResult, 0, len(reply.ToolCalls))
		for _, call := range reply.ToolCalls {
			results = append(results, executor.Execute(ctx, call))
		}

		reply, err = s.invokeModel(ctx, func(callCtx context.Context) (contract.Reply, error) {
			return session.Resume(callCtx, results)
		})
		if err != nil {
			return nil, err
		}
	}

	st.Reply = reply.Text
	if strings.TrimSpace(st.Reply) == "" {
		st.Reply = fallbackReply
	}
	return st, nil
}

func (s *Service) invokeModel(ctx context.Context, fn func(context.Context) (contract.Reply, error)) (contract.Reply, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.modelTimeout)
	defer cancel()
	return fn(callCtx)
}

func (s *Service) saveTranscript(ctx context.Context, st *GraphState) (*GraphState, error) {
	st.History = conversation.Trim(conversation.Append(st.History, contract.RoleAssistant, st.Reply, s.now()))
	if err := s.conversations.Save(ctx, st.BusinessID, st.CustomerPhone, st.History, s.now()); err != nil {
		return nil, fmt.Errorf("save conversation: %w", err)
	}
	return st, nil
}

// deliverReply sends the reply out on the business channel. Delivery
// failures do not fail the turn, the transcript is already saved.
func (s *Service) deliverReply(ctx context.Context, st *GraphState) (*GraphState, error) {
	if err := s.messenger.Send(ctx, st.Channel, st.CustomerPhone, st.Reply); err != nil {
		log.Warn().Err(err).
			Str("business_id", st.BusinessID).
			Str("customer_phone", st.CustomerPhone).
			Msg("reply delivery failed")
	}
	return st, nil
}

func finalizeReply(st *GraphState) (GraphOutput, error) {
	return GraphOutput{Reply: st.Reply}, nil
}
