package services

import (
	"context"
	"sync"

	"xswap/swapd/internal/models"
	"xswap/swapd/internal/stores"

	"github.com/rs/zerolog"
)

// EventSink receives lifecycle events from the ledger.
type EventSink interface {
	Emit(ctx context.Context, ev *models.SwapEvent) error
}

// EventPublisher journals every event and fans it out to live subscribers.
// The journal is the source of truth: a subscriber that misses a live delivery
// (slow consumer, reconnect) replays from its last seen sequence number, which
// is how at-least-once delivery is kept honest.
type EventPublisher struct {
	journal stores.EventJournal
	log     zerolog.Logger

	mu      sync.Mutex
	nextID  int
	subs    map[int]chan *models.SwapEvent
	closed  bool
}

func NewEventPublisher(journal stores.EventJournal, log zerolog.Logger) *EventPublisher {
	return &EventPublisher{
		journal: journal,
		log:     log,
		subs:    make(map[int]chan *models.SwapEvent),
	}
}

// Emit appends the event to the journal, assigning its sequence number, then
// delivers it to subscribers. Live delivery never blocks: a full subscriber
// buffer drops the live copy and the subscriber is expected to replay.
func (p *EventPublisher) Emit(ctx context.Context, ev *models.SwapEvent) error {
	seq, err := p.journal.Append(ctx, ev)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	for id, ch := range p.subs {
		select {
		case ch <- ev:
		default:
			p.log.Warn().
				Uint64("seq", seq).
				Str("type", string(ev.Type)).
				Int("subscriber", id).
				Msg("subscriber buffer full, dropping live event")
		}
	}
	return nil
}

// Subscribe registers a live event channel. The returned cancel func must be
// called when done; it closes the channel.
func (p *EventPublisher) Subscribe(buf int) (<-chan *models.SwapEvent, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	ch := make(chan *models.SwapEvent, buf)
	if p.closed {
		close(ch)
		return ch, func() {}
	}
	p.subs[id] = ch

	cancel := func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if _, ok := p.subs[id]; ok {
			delete(p.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

// Replay visits journaled events with seq >= fromSeq in order.
func (p *EventPublisher) Replay(ctx context.Context, fromSeq uint64, visit func(*models.SwapEvent) error) error {
	return p.journal.Replay(ctx, fromSeq, visit)
}

// Close drops all subscribers and closes their channels.
func (p *EventPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	for id, ch := range p.subs {
		delete(p.subs, id)
		close(ch)
	}
}
