package mq

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	RecipeCreated = "recipe.created"
	RecipeUpdated = "recipe.updated"
	RecipeDeleted = "recipe.deleted"
	RecipeRated   = "recipe.rated"
	RecipeSaved   = "recipe.saved"
	RecipeUnsaved = "recipe.unsaved"
)

type Event struct {
	Name       string    `json:"event"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	UserID     string    `json:"user_id,omitempty"`
	Payload    any       `json:"payload,omitempty"`
	At         time.Time `json:"at"`
}

// Emitter fans events out to in-process subscribers. Subscribers run on the
// emitting goroutine and must not block.
type Emitter struct {
	logger *zap.Logger

	mu     sync.RWMutex
	nextID int
	subs   map[int]func(Event)
}

func NewEmitter(logger *zap.Logger) *Emitter {
	return &Emitter{logger: logger, subs: map[int]func(Event){}}
}

// Subscribe registers fn and returns a function that removes it.
func (e *Emitter) Subscribe(fn func(Event)) (unsubscribe func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.nextID
	e.nextID++
	e.subs[id] = fn
	return func() {
		e.mu.Lock()
		delete(e.subs, id)
		e.mu.Unlock()
	}
}

// Emit stamps and delivers ev under eventName.
func (e *Emitter) Emit(eventName string, ev Event) {
	ev.Name = eventName
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	e.logger.Debug("event emitted",
		zap.String("event", eventName),
		zap.String("entity_type", ev.EntityType),
		zap.String("entity_id", ev.EntityID))

	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, fn := range e.subs {
		fn(ev)
	}
}
