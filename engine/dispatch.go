package engine

import (
	"strconv"

	"github.com/nathoo/worldcore/types"
)

// fightVerbs are the only verbs accepted while a fight is on.
var fightVerbs = map[string]bool{
	"attack":    true,
	"flee":      true,
	"throw":     true,
	"insult":    true,
	"inventory": true,
	"status":    true,
	"help":      true,
}

// dispatch routes one intent according to the current mode.
func (e *Engine) dispatch(in types.Intent) {
	// RESTART is the one command a finished game still accepts.
	if in.Verb == "restart" {
		e.restart()
		return
	}
	if !e.started {
		e.start()
	}
	if e.World.GameOver {
		e.Bus.Say("The game is over. Type RESTART to play again.")
		return
	}
	if in.Verb == "" {
		e.Bus.Say("What do you want to do?")
		return
	}

	switch {
	case e.Combat.Active():
		e.fightTurn(in)
	case e.Dialogue.Active():
		e.conversationTurn(in)
	default:
		e.World.Player.TurnCount++
		e.explore(in)
	}
}

func (e *Engine) fightTurn(in types.Intent) {
	if in.Verb == "go" {
		in.Verb = "flee"
	}
	if !fightVerbs[in.Verb] {
		e.Bus.Say("You're in the middle of a fight! (attack, flee, throw grenade, insult)")
		return
	}

	ctx := e.Context()
	switch in.Verb {
	case "attack":
		e.World.Player.TurnCount++
		e.Combat.Attack(ctx)
	case "flee":
		e.World.Player.TurnCount++
		e.Combat.Flee(ctx)
	case "throw":
		e.World.Player.TurnCount++
		e.Combat.ThrowGrenade(ctx)
	case "insult":
		e.World.Player.TurnCount++
		e.Combat.Insult(ctx)
	case "inventory":
		e.inventory()
	case "status":
		e.status()
	case "help":
		e.help()
	}
}

func (e *Engine) conversationTurn(in types.Intent) {
	ctx := e.Context()
	if n, err := strconv.Atoi(in.Verb); err == nil {
		if !e.Dialogue.Select(ctx, n-1) {
			e.Bus.Sayf("Choose an option from 1 to %d, or say BYE.", len(e.Dialogue.Options(ctx)))
		}
		return
	}
	switch in.Verb {
	case "bye":
		e.Dialogue.Close(ctx)
		e.Bus.Say("You end the conversation.")
	case "inventory":
		e.inventory()
	case "status":
		e.status()
	default:
		e.Bus.Sayf("You're in a conversation. Choose an option from 1 to %d, or say BYE.", len(e.Dialogue.Options(ctx)))
	}
}

// explore runs a verb outside of encounters.
func (e *Engine) explore(in types.Intent) {
	switch in.Verb {
	case "go":
		e.goVerb(in)
	case "look":
		e.look(in)
	case "take":
		e.take(in)
	case "drop":
		e.drop(in)
	case "use":
		e.use(in)
	case "give":
		e.give(in)
	case "talk":
		e.talk(in)
	case "attack":
		e.attack(in)
	case "inventory":
		e.inventory()
	case "status":
		e.status()
	case "wait":
		e.Bus.Say("Time passes.")
	case "help":
		e.help()
	case "flee":
		e.Bus.Say("There's nothing to run from.")
	case "throw", "insult":
		e.Bus.Say("There's no one to fight.")
	case "bye":
		e.Bus.Say("You're not talking to anyone.")
	default:
		e.interact(in)
	}
}
