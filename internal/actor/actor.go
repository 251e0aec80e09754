// Package actor provides a small mailbox-based runtime for background work
// that must survive the request that spawned it. Side effects like billing
// and audit writes run here: requests return without waiting, but every
// queued message is processed (the mailbox is drained on shutdown) and every
// failure is logged.
package actor

import (
	"context"
	"fmt"
	"sync"

	"github.com/plumeworks/plume/internal/logger"
)

// Message is a unit of work sent to an actor.
type Message interface {
	Type() string
}

// Actor processes messages one at a time.
type Actor interface {
	Receive(ctx context.Context, msg Message) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	ID() string
}

// ActorRef is a handle for sending messages to a running actor.
type ActorRef struct {
	id      string
	mailbox chan Message
	actor   Actor
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	mu      sync.RWMutex
	stopped bool
}

// NewActorRef creates a reference with a bounded mailbox.
func NewActorRef(id string, actor Actor, mailboxSize int) *ActorRef {
	return &ActorRef{
		id:      id,
		actor:   actor,
		mailbox: make(chan Message, mailboxSize),
	}
}

// ID returns the actor's ID.
func (ref *ActorRef) ID() string {
	return ref.id
}

// Send enqueues a message without blocking. It fails when the actor is
// stopped or the mailbox is full.
func (ref *ActorRef) Send(msg Message) error {
	ref.mu.RLock()
	stopped := ref.stopped
	ref.mu.RUnlock()
	if stopped {
		return fmt.Errorf("actor %s is stopped", ref.id)
	}

	select {
	case ref.mailbox <- msg:
		return nil
	default:
		return fmt.Errorf("actor %s mailbox is full", ref.id)
	}
}

// Start begins the actor's processing loop.
func (ref *ActorRef) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	ref.cancel = cancel

	if err := ref.actor.Start(ctx); err != nil {
		cancel()
		return err
	}

	ref.wg.Add(1)
	go ref.run(ctx)
	return nil
}

// Stop stops the actor after the remaining mailbox has been drained.
func (ref *ActorRef) Stop(ctx context.Context) error {
	ref.mu.Lock()
	if ref.stopped {
		ref.mu.Unlock()
		return nil
	}
	ref.stopped = true
	ref.mu.Unlock()

	if ref.cancel != nil {
		ref.cancel()
	}

	done := make(chan struct{})
	go func() {
		ref.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return ref.actor.Stop(ctx)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (ref *ActorRef) run(ctx context.Context) {
	defer ref.wg.Done()

	for {
		select {
		case <-ctx.Done():
			// Drain what was already queued so accepted work is never
			// silently dropped on shutdown.
			for {
				select {
				case msg := <-ref.mailbox:
					ref.process(context.Background(), msg)
				default:
					return
				}
			}
		case msg := <-ref.mailbox:
			ref.process(ctx, msg)
		}
	}
}

func (ref *ActorRef) process(ctx context.Context, msg Message) {
	if err := ref.actor.Receive(ctx, msg); err != nil {
		logger.Error("Actor %s error processing %s message: %v", ref.id, msg.Type(), err)
	}
}

// System manages a collection of actors.
type System struct {
	actors map[string]*ActorRef
	mu     sync.RWMutex
}

// NewSystem creates a new actor system.
func NewSystem() *System {
	return &System{actors: make(map[string]*ActorRef)}
}

// Spawn creates and starts a new actor.
func (s *System) Spawn(ctx context.Context, id string, actor Actor, mailboxSize int) (*ActorRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.actors[id]; exists {
		return nil, fmt.Errorf("actor with id %s already exists", id)
	}

	ref := NewActorRef(id, actor, mailboxSize)
	if err := ref.Start(ctx); err != nil {
		return nil, err
	}

	s.actors[id] = ref
	return ref, nil
}

// Get retrieves an actor reference by ID.
func (s *System) Get(id string) (*ActorRef, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ref, ok := s.actors[id]
	return ref, ok
}

// StopAll stops every actor, waiting for their mailboxes to drain.
func (s *System) StopAll(ctx context.Context) error {
	s.mu.Lock()
	actors := make([]*ActorRef, 0, len(s.actors))
	for _, ref := range s.actors {
		actors = append(actors, ref)
	}
	s.actors = make(map[string]*ActorRef)
	s.mu.Unlock()

	var firstErr error
	for _, ref := range actors {
		if err := ref.Stop(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
