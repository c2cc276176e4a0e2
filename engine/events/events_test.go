package events

import (
	"testing"

	"github.com/nathoo/worldcore/types"
)

func TestEmit_SubscriptionOrder(t *testing.T) {
	b := NewBus(nil)
	var got []string
	b.On("x", func(types.Event) { got = append(got, "first") })
	b.On("x", func(types.Event) { got = append(got, "second") })
	b.On("y", func(types.Event) { got = append(got, "other") })

	b.Emit("x", nil)

	if len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Errorf("expected [first second], got %v", got)
	}
}

func TestEmit_PayloadDelivered(t *testing.T) {
	b := NewBus(nil)
	var seen types.Event
	b.On(RoomEnter, func(ev types.Event) { seen = ev })

	b.Emit(RoomEnter, map[string]any{"roomId": "kitchen"})

	if seen.Type != RoomEnter {
		t.Errorf("expected type %q, got %q", RoomEnter, seen.Type)
	}
	if seen.Data["roomId"] != "kitchen" {
		t.Errorf("expected roomId kitchen, got %v", seen.Data["roomId"])
	}
}

func TestEmit_NilPayloadIsEmptyMap(t *testing.T) {
	b := NewBus(nil)
	var data map[string]any
	b.On("x", func(ev types.Event) { data = ev.Data })
	b.Emit("x", nil)
	if data == nil {
		t.Error("expected non-nil payload")
	}
}

func TestEmit_PanicIsolated(t *testing.T) {
	b := NewBus(nil)
	ran := false
	b.On("x", func(types.Event) { panic("boom") })
	b.On("x", func(types.Event) { ran = true })

	b.Emit("x", nil)

	if !ran {
		t.Error("expected second handler to run after first panicked")
	}
	if b.Failures() != 1 {
		t.Errorf("expected 1 recorded failure, got %d", b.Failures())
	}
}

func TestOff_RemovesHandler(t *testing.T) {
	b := NewBus(nil)
	calls := 0
	sub := b.On("x", func(types.Event) { calls++ })

	b.Emit("x", nil)
	b.Off(sub)
	b.Emit("x", nil)
	b.Off(sub)

	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if b.Count("x") != 0 {
		t.Errorf("expected no handlers left, got %d", b.Count("x"))
	}
}

func TestEmit_UnsubscribeDuringDelivery(t *testing.T) {
	b := NewBus(nil)
	calls := 0
	var sub Subscription
	sub = b.On("x", func(types.Event) {
		calls++
		b.Off(sub)
	})
	b.On("x", func(types.Event) { calls++ })

	b.Emit("x", nil)
	if calls != 2 {
		t.Errorf("expected both handlers on first emit, got %d calls", calls)
	}

	b.Emit("x", nil)
	if calls != 3 {
		t.Errorf("expected only the remaining handler on second emit, got %d calls", calls)
	}
}

func TestEmit_Reentrant(t *testing.T) {
	b := NewBus(nil)
	var order []string
	b.On("a", func(types.Event) {
		order = append(order, "a")
		b.Emit("b", nil)
	})
	b.On("b", func(types.Event) { order = append(order, "b") })

	b.Emit("a", nil)

	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Errorf("expected [a b], got %v", order)
	}
}

func TestOnAny_SeesEverything(t *testing.T) {
	b := NewBus(nil)
	var seen []string
	sub := b.OnAny(func(ev types.Event) { seen = append(seen, ev.Type) })

	b.Emit("a", nil)
	b.Say("hello")
	b.Say("")
	b.Off(sub)
	b.Emit("c", nil)

	if len(seen) != 2 || seen[0] != "a" || seen[1] != MessageAdd {
		t.Errorf("expected [a message:add], got %v", seen)
	}
}

func TestSayf(t *testing.T) {
	b := NewBus(nil)
	var text string
	b.On(MessageAdd, func(ev types.Event) { text, _ = ev.Data["text"].(string) })
	b.Sayf("You picked up the %s.", "spade")
	if text != "You picked up the spade." {
		t.Errorf("unexpected text %q", text)
	}
}
