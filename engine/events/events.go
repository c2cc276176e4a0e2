// Package events implements the synchronous publish/subscribe bus that
// connects the world state to every other component and to the front-ends.
package events

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/nathoo/worldcore/types"
)

// Event names emitted by the engine.
const (
	RoomEnter       = "room:enter"
	InventoryUpdate = "inventory:update"
	RoomUpdate      = "room:update"
	ScoreChange     = "score:change"
	HPChange        = "hp:change"
	FlagSet         = "flag:set"
	CharDamaged     = "character:damaged"
	CharDefeat      = "character:defeat"
	CharSpawn       = "character:spawn"
	DialogueStart   = "dialogue:start"
	DialogueNode    = "dialogue:node"
	DialogueEnd     = "dialogue:end"
	CombatStart     = "combat:start"
	CombatMessage   = "combat:message"
	CombatEnd       = "combat:end"
	MessageAdd      = "message:add"
	PuzzleSolved    = "puzzle:solved"
	ItemRevealed    = "item:revealed"
	ExitChange      = "exit:change"
	GameOver        = "game:over"
	GameRestart     = "game:restart"
	VerbSelect      = "verb:select"
	VerbPending     = "verb:pending"
	VerbCancel      = "verb:cancel"
)

// Handler receives one emitted event.
type Handler func(types.Event)

// Subscription identifies a registered handler so it can be removed.
type Subscription struct {
	name string
	id   uint64
}

type subscriber struct {
	id uint64
	fn Handler
}

// Bus is a synchronous event bus. Handlers run in subscription order on the
// emitting goroutine. A panicking handler is recovered and logged; the rest
// still run.
type Bus struct {
	log    logrus.FieldLogger
	subs   map[string][]subscriber
	any    []subscriber
	nextID uint64
	failed int
}

// NewBus creates an empty bus. A nil logger discards diagnostics.
func NewBus(log logrus.FieldLogger) *Bus {
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	return &Bus{
		log:  log.WithField("component", "bus"),
		subs: map[string][]subscriber{},
	}
}

// On registers fn for the named event and returns its subscription.
func (b *Bus) On(name string, fn Handler) Subscription {
	b.nextID++
	b.subs[name] = append(b.subs[name], subscriber{id: b.nextID, fn: fn})
	return Subscription{name: name, id: b.nextID}
}

// OnAny registers fn for every event. Wildcard handlers run after the
// named handlers of each emission.
func (b *Bus) OnAny(fn Handler) Subscription {
	b.nextID++
	b.any = append(b.any, subscriber{id: b.nextID, fn: fn})
	return Subscription{id: b.nextID}
}

// Off removes a subscription. Removing twice is a no-op.
func (b *Bus) Off(sub Subscription) {
	if sub.name == "" {
		b.any = without(b.any, sub.id)
		return
	}
	b.subs[sub.name] = without(b.subs[sub.name], sub.id)
}

// Emit delivers an event to the handlers registered at the moment of the
// call. Handlers may emit further events.
func (b *Bus) Emit(name string, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	ev := types.Event{Type: name, Data: data}

	// Copy so handlers can subscribe or unsubscribe during delivery.
	named := append([]subscriber(nil), b.subs[name]...)
	wild := append([]subscriber(nil), b.any...)

	for _, s := range named {
		b.call(s, ev)
	}
	for _, s := range wild {
		b.call(s, ev)
	}
}

// Say emits a narration line.
func (b *Bus) Say(text string) {
	if text == "" {
		return
	}
	b.Emit(MessageAdd, map[string]any{"text": text})
}

// Sayf emits a formatted narration line.
func (b *Bus) Sayf(format string, args ...any) {
	b.Say(fmt.Sprintf(format, args...))
}

// Failures returns how many handler panics have been recovered.
func (b *Bus) Failures() int {
	return b.failed
}

// Count returns the number of handlers registered for name.
func (b *Bus) Count(name string) int {
	return len(b.subs[name])
}

func (b *Bus) call(s subscriber, ev types.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.failed++
			b.log.WithFields(logrus.Fields{
				"event":   ev.Type,
				"handler": s.id,
			}).Errorf("event handler panicked: %v", r)
		}
	}()
	s.fn(ev)
}

func without(list []subscriber, id uint64) []subscriber {
	out := list[:0:0]
	for _, s := range list {
		if s.id != id {
			out = append(out, s)
		}
	}
	return out
}
