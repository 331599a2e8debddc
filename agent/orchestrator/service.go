package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/compose"

	"bookline/agent/contract"
	"bookline/agent/conversation"
)

// DriverFactory resolves the model driver a business profile selects.
type DriverFactory interface {
	DriverFor(provider contract.ModelProvider) (contract.ModelDriver, error)
}

// CatalogSeeder installs a starter service catalog for a business that
// has none yet.
type CatalogSeeder interface {
	SeedDefaultServices(ctx context.Context, businessID, profession string) error
}

type Config struct {
	// ModelTimeout bounds each individual model invocation.
	ModelTimeout time.Duration

	// Seeder, when set, runs the first time a customer contacts a
	// business so the default catalog exists before any tool call.
	Seeder CatalogSeeder
}

// Service runs one conversational turn end to end: load the business,
// extend the transcript, drive the model and its tools, persist, and
// deliver the reply.
type Service struct {
	repo          contract.Repository
	conversations contract.ConversationStore
	calendar      contract.CalendarGateway
	drivers       DriverFactory
	messenger     contract.Messenger
	seeder        CatalogSeeder

	graphRunner compose.Runnable[GraphInput, GraphOutput]
	locks       *conversation.KeyedMutex

	modelTimeout time.Duration
	now          func() time.Time
}

func New(
	repo contract.Repository,
	conversations contract.ConversationStore,
	calendar contract.CalendarGateway,
	drivers DriverFactory,
	messenger contract.Messenger,
	cfg Config,
) (*Service, error) {
	if repo == nil {
		return nil, errors.New("repository is required")
	}
	if conversations == nil {
		return nil, errors.New("conversation store is required")
	}
	if calendar == nil {
		return nil, errors.New("calendar gateway is required")
	}
	if drivers == nil {
		return nil, errors.New("driver factory is required")
	}
	if messenger == nil {
		return nil, errors.New("messenger is required")
	}

	timeout := cfg.ModelTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	s := &Service{
		repo:          repo,
		conversations: conversations,
		calendar:      calendar,
		drivers:       drivers,
		messenger:     messenger,
		seeder:        cfg.Seeder,
		locks:         conversation.NewKeyedMutex(),
		modelTimeout:  timeout,
		now:           time.Now,
	}

	graphRunner, err := s.compileHandleMessageGraph(context.Background())
	if err != nil {
		return nil, err
	}
	s.graphRunner = graphRunner

	return s, nil
}

// HandleMessage processes one inbound customer message and returns the
// assistant reply. Turns for the same business and customer pair are
// serialized so transcript updates never interleave.
func (s *Service) HandleMessage(ctx context.Context, businessID, customerPhone, text string) (string, error) {
	unlock := s.locks.Lock(businessID + ":" + customerPhone)
	defer unlock()

	out, err := s.graphRunner.Invoke(ctx, GraphInput{
		BusinessID:    businessID,
		CustomerPhone: customerPhone,
		Text:          text,
	})
	if err != nil {
		return "", err
	}
	return out.Reply, nil
}
