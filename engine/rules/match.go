package rules

import (
	"fmt"

	"github.com/nathoo/worldcore/engine/events"
	"github.com/nathoo/worldcore/engine/state"
	"github.com/nathoo/worldcore/types"
)

// Runner executes a matched handler's effects for the triggering event.
type Runner func(h types.EventHandler, ev types.Event)

// MatchesEvent checks a handler's payload criteria against an event. Every
// key in match must be present in the payload with an equal value.
func MatchesEvent(match map[string]any, ev types.Event) bool {
	for key, want := range match {
		got, ok := ev.Data[key]
		if !ok {
			return false
		}
		if !equal(got, want) && fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

// Bind subscribes content handlers to the bus. On each emission a handler
// runs only if its payload criteria and conditions hold at that moment.
func Bind(bus *events.Bus, w *state.World, handlers []types.EventHandler, run Runner) []events.Subscription {
	subs := make([]events.Subscription, 0, len(handlers))
	for _, h := range handlers {
		h := h
		subs = append(subs, bus.On(h.EventType, func(ev types.Event) {
			if !MatchesEvent(h.Match, ev) {
				return
			}
			if !EvalAllConditions(h.Conditions, w) {
				return
			}
			run(h, ev)
		}))
	}
	return subs
}
