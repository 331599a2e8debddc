package server

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// MessageHandler runs one conversational turn.
type MessageHandler interface {
	HandleMessage(ctx context.Context, businessID, customerPhone, text string) (string, error)
}

type inboundMessage struct {
	businessID    string
	customerPhone string
	text          string
}

// Dispatcher runs turns off the webhook goroutine so providers get
// their ack immediately. Messages for the same (business, customer)
// pair are queued and handled one at a time in arrival order; distinct
// pairs run concurrently up to the concurrency gate.
type Dispatcher struct {
	handler MessageHandler
	timeout time.Duration
	sem     chan struct{}
	wg      sync.WaitGroup

	mu     sync.Mutex
	queues map[string][]inboundMessage
}

func NewDispatcher(handler MessageHandler, timeout time.Duration, maxConcurrent int) *Dispatcher {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 32
	}
	return &Dispatcher{
		handler: handler,
		timeout: timeout,
		sem:     make(chan struct{}, maxConcurrent),
		queues:  make(map[string][]inboundMessage),
	}
}

// Dispatch enqueues one inbound message and returns immediately. The
// first message for an idle pair starts that pair's worker; later
// messages join its queue.
func (d *Dispatcher) Dispatch(businessID, customerPhone, text string) {
	key := businessID + ":" + customerPhone
	msg := inboundMessage{businessID: businessID, customerPhone: customerPhone, text: text}

	d.mu.Lock()
	queue, active := d.queues[key]
	d.queues[key] = append(queue, msg)
	d.mu.Unlock()

	if active {
		return
	}

	d.wg.Add(1)
	go d.drain(key)
}

// drain owns one pair's queue. The key stays in the map while the
// worker runs, so Dispatch can tell an active pair from an idle one.
func (d *Dispatcher) drain(key string) {
	defer d.wg.Done()

	for {
		d.mu.Lock()
		queue := d.queues[key]
		if len(queue) == 0 {
			delete(d.queues, key)
			d.mu.Unlock()
			return
		}
		msg := queue[0]
		d.queues[key] = queue[1:]
		d.mu.Unlock()

		d.sem <- struct{}{}
		d.handleOne(msg)
		<-d.sem
	}
}

func (d *Dispatcher) handleOne(msg inboundMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if _, err := d.handler.HandleMessage(ctx, msg.businessID, msg.customerPhone, msg.text); err != nil {
		log.Error().Err(err).
			Str("business_id", msg.businessID).
			Str("customer_phone", msg.customerPhone).
			Msg("turn failed")
	}
}

// Wait blocks until all queued and in-flight turns finish or ctx
// expires.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
