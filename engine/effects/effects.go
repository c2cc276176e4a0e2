// Package effects executes declarative effect programs compiled from
// content. Every effect type is one atomic world operation; the only control
// flow is "if" and the terminal allow/block/stop effects.
package effects

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nathoo/worldcore/engine/rules"
	"github.com/nathoo/worldcore/engine/script"
	"github.com/nathoo/worldcore/engine/text"
	"github.com/nathoo/worldcore/types"
)

// Compile turns an effect program into a registrable script.
func Compile(effs []types.Effect) script.Func {
	return func(ctx *script.Context, args ...string) script.Outcome {
		return Run(ctx, effs, args)
	}
}

// Run applies effects in order. It stops at the first allow, block or stop
// and returns the matching outcome.
func Run(ctx *script.Context, effs []types.Effect, args []string) script.Outcome {
	r := runner{ctx: ctx, data: Data(ctx, args), log: ctx.Logger()}
	out, _ := r.run(effs)
	return out
}

// Data builds the template data for narration: the caller's vars plus the
// player, the current room and the script arguments.
func Data(ctx *script.Context, args []string) map[string]any {
	data := map[string]any{}
	for k, v := range ctx.Vars {
		data[k] = v
	}
	if ctx.World != nil {
		data["Player"] = ctx.World.Player
		data["Room"] = ctx.World.RoomName(ctx.World.Player.CurrentRoom)
		data["RoomID"] = ctx.World.Player.CurrentRoom
	}
	data["Args"] = args
	if len(args) > 0 {
		data["Arg"] = args[0]
	} else {
		data["Arg"] = ""
	}
	return data
}

type runner struct {
	ctx  *script.Context
	data map[string]any
	log  logrus.FieldLogger
}

// run returns the outcome and whether execution should stop.
func (r *runner) run(effs []types.Effect) (script.Outcome, bool) {
	w := r.ctx.World
	for _, eff := range effs {
		switch eff.Type {
		case "say":
			r.ctx.Bus.Say(r.str(eff, "text"))

		case "give_item":
			r.check(eff, w.AddToInventory(r.str(eff, "item")))

		case "remove_item":
			w.RemoveFromInventory(r.str(eff, "item"))

		case "place_item":
			r.check(eff, w.AddItemToRoom(r.str(eff, "item"), r.str(eff, "room")))

		case "take_from_room":
			w.RemoveItemFromRoom(r.str(eff, "item"), r.str(eff, "room"))

		case "reveal_item":
			w.RevealItem(r.str(eff, "item"))

		case "set_flag":
			value := eff.Params["value"]
			if s, ok := value.(string); ok {
				value = text.Must(s, r.data)
			}
			w.SetFlag(r.str(eff, "flag"), value)

		case "add_score":
			w.AddScore(toInt(eff.Params["amount"]))

		case "heal":
			w.ModifyHP(toInt(eff.Params["amount"]))

		case "hurt":
			w.ModifyHP(-toInt(eff.Params["amount"]))

		case "damage_character":
			w.DamageCharacter(r.str(eff, "character"), toInt(eff.Params["amount"]))

		case "resolve_character":
			w.RemoveCharacterFromRoom(r.str(eff, "character"))

		case "spawn_character":
			r.check(eff, w.SpawnCharacter(r.str(eff, "character"), r.str(eff, "room")))

		case "move_player":
			r.check(eff, w.MoveToRoom(r.str(eff, "room"), ""))

		case "open_exit":
			room := r.str(eff, "room")
			if room == "" {
				room = w.Player.CurrentRoom
			}
			r.check(eff, w.OpenExit(room, r.str(eff, "direction"), r.str(eff, "target")))

		case "close_exit":
			room := r.str(eff, "room")
			if room == "" {
				room = w.Player.CurrentRoom
			}
			w.CloseExit(room, r.str(eff, "direction"))

		case "emit":
			data := map[string]any{}
			if extra, ok := eff.Params["data"].(map[string]any); ok {
				for k, v := range extra {
					data[k] = v
				}
			}
			r.ctx.Bus.Emit(r.str(eff, "event"), data)

		case "win":
			r.ctx.Bus.Say(r.str(eff, "text"))
			w.EndGame(true, r.str(eff, "text"))

		case "lose":
			r.ctx.Bus.Say(r.str(eff, "text"))
			w.EndGame(false, r.str(eff, "text"))

		case "restart_after":
			if r.ctx.Host != nil {
				secs := toFloat(eff.Params["seconds"])
				r.ctx.Host.ScheduleRestart(time.Duration(secs * float64(time.Second)))
			}

		case "start_combat":
			if r.ctx.Host != nil {
				r.ctx.Host.StartCombat(r.str(eff, "character"))
			}

		case "if":
			branch := eff.Else
			if rules.EvalAllConditions(eff.Conditions, w) {
				branch = eff.Then
			}
			if out, stop := r.run(branch); stop {
				return out, true
			}

		case "allow":
			return script.Allow, true

		case "block":
			return script.Block, true

		case "stop":
			return script.Continue, true

		default:
			r.log.WithField("effect", eff.Type).Warn("unknown effect type")
		}

		if w.GameOver && eff.Type != "if" {
			return script.Continue, true
		}
	}
	return script.Continue, false
}

// str returns a string param with templates expanded.
func (r *runner) str(eff types.Effect, key string) string {
	s, _ := eff.Params[key].(string)
	return text.Must(s, r.data)
}

func (r *runner) check(eff types.Effect, err error) {
	if err != nil {
		r.log.WithField("effect", eff.Type).WithError(err).Warn("effect failed")
	}
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	case int64:
		return int(n)
	default:
		return 0
	}
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case float64:
		return n
	case int64:
		return float64(n)
	default:
		return 0
	}
}
