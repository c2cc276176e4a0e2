// Package engine is the session dispatcher. It owns the world, the bus, the
// script registry and the encounter resolvers, and turns every front-end
// action (typed text, hotspot clicks, drags, dialogue and combat choices)
// into one turn whose narration and events come back as a Result.
package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/nathoo/worldcore/engine/combat"
	"github.com/nathoo/worldcore/engine/dialogue"
	"github.com/nathoo/worldcore/engine/effects"
	"github.com/nathoo/worldcore/engine/events"
	"github.com/nathoo/worldcore/engine/parser"
	"github.com/nathoo/worldcore/engine/puzzle"
	"github.com/nathoo/worldcore/engine/rng"
	"github.com/nathoo/worldcore/engine/rules"
	"github.com/nathoo/worldcore/engine/schedule"
	"github.com/nathoo/worldcore/engine/script"
	"github.com/nathoo/worldcore/engine/state"
	"github.com/nathoo/worldcore/types"
)

// DefaultAmbushDelay is how long a hostile character waits before attacking
// a player who walks in.
const DefaultAmbushDelay = 1500 * time.Millisecond

// Options configures a session. The zero value is usable.
type Options struct {
	Logger      logrus.FieldLogger
	Clock       schedule.Clock
	Seed        int64
	AmbushDelay time.Duration
	// RestartDelay restarts a lost game automatically; zero waits for
	// the player to type RESTART.
	RestartDelay time.Duration
	Combat       combat.Config
	// Scripts are registered before content scripts, so content can
	// override them.
	Scripts map[string]script.Func
}

// Engine holds the game definitions and the session built around them.
type Engine struct {
	Defs      *state.Defs
	World     *state.World
	Bus       *events.Bus
	Scripts   *script.Registry
	RNG       *rng.RNG
	Scheduler *schedule.Scheduler
	Combat    *combat.Resolver
	Dialogue  *dialogue.Walker
	Puzzles   *puzzle.Resolver
	SessionID string

	log          logrus.FieldLogger
	seed         int64
	ambushDelay  time.Duration
	restartDelay time.Duration

	verb    string // selected verb for clicks
	pending string // item waiting for a second target

	out      types.Result
	said     int
	started  bool
	overSaid bool
}

// New creates a session from definitions. Every script reference in defs
// must resolve; all unresolved references are reported together.
func New(defs *state.Defs, opts Options) (*Engine, error) {
	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	clock := opts.Clock
	if clock == nil {
		clock = schedule.RealClock{}
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	ambush := opts.AmbushDelay
	if ambush <= 0 {
		ambush = DefaultAmbushDelay
	}

	e := &Engine{
		Defs:         defs,
		Bus:          events.NewBus(log),
		Scripts:      script.NewRegistry(log),
		RNG:          rng.New(seed),
		SessionID:    uuid.NewString(),
		log:          log.WithField("component", "engine"),
		seed:         seed,
		ambushDelay:  ambush,
		restartDelay: opts.RestartDelay,
	}
	e.log = e.log.WithField("session", e.SessionID)
	e.Scheduler = schedule.New(clock, log)
	e.World = state.NewWorld(defs, e.Bus)
	e.Combat = combat.New(opts.Combat, e.RNG, e.Scripts)
	e.Dialogue = dialogue.New(e.Scripts)
	e.Puzzles = puzzle.New(e.Scripts)

	for name, fn := range opts.Scripts {
		if err := e.Scripts.Register(name, fn); err != nil {
			return nil, err
		}
	}
	for name, sd := range defs.Scripts {
		if err := e.Scripts.Register(name, effects.Compile(sd.Effects)); err != nil {
			return nil, err
		}
	}
	if err := e.Scripts.Check(defs); err != nil {
		return nil, fmt.Errorf("checking script references: %w", err)
	}

	e.Bus.OnAny(e.collect)
	e.Bus.On(events.RoomEnter, e.onRoomEnter)
	e.Bus.On(events.ScoreChange, e.onScoreChange)
	rules.Bind(e.Bus, e.World, defs.Handlers, e.runHandler)
	return e, nil
}

// Context returns a script context bound to this session.
func (e *Engine) Context() *script.Context {
	return &script.Context{World: e.World, Bus: e.Bus, Host: e, Log: e.log}
}

// Start prints the introduction and places the player in the start room.
func (e *Engine) Start() types.Result {
	e.begin()
	e.start()
	return e.finish()
}

func (e *Engine) start() {
	g := e.Defs.Game
	if g.Title != "" {
		e.Bus.Say(g.Title)
	}
	if g.Intro != "" {
		e.Bus.Say(g.Intro)
	}
	if err := e.World.MoveToRoom(g.Start, ""); err != nil {
		e.log.WithError(err).Error("start room")
		e.Bus.Say("You are somewhere unknown.")
	}
	e.started = true
}

// Step parses one line of typed input and dispatches it.
func (e *Engine) Step(input string) types.Result {
	e.begin()
	e.dispatch(parser.Parse(input))
	return e.finish()
}

// Dispatch runs an already-normalized intent.
func (e *Engine) Dispatch(in types.Intent) types.Result {
	e.begin()
	e.dispatch(in)
	return e.finish()
}

// Advance runs every scheduled task that has come due: ambushes and
// delayed restarts. Front-ends call it from their loop.
func (e *Engine) Advance() types.Result {
	e.begin()
	e.Scheduler.RunDue()
	return e.finish()
}

// Restart resets the world to its initial state and starts over. Pending
// scheduled tasks are cancelled first so none fires against the new world.
func (e *Engine) Restart() types.Result {
	e.begin()
	e.restart()
	return e.finish()
}

func (e *Engine) restart() {
	e.Scheduler.CancelAll()
	e.Combat.Reset()
	e.Dialogue.Reset()
	e.verb = ""
	e.pending = ""
	e.overSaid = false
	e.RNG = rng.New(e.seed)
	e.Combat.SetRoller(e.RNG)
	e.World.Reset()
	e.Bus.Emit(events.GameRestart, nil)
	e.start()
}

// Mode reports which kind of input the session currently accepts.
func (e *Engine) Mode() string {
	switch {
	case e.World.GameOver:
		return types.ModeOver
	case e.Combat.Active():
		return types.ModeCombat
	case e.Dialogue.Active():
		return types.ModeDialogue
	default:
		return types.ModeExplore
	}
}

// SelectedVerb returns the verb chosen for the next click.
func (e *Engine) SelectedVerb() string { return e.verb }

// PendingItem returns the item waiting for a Use/Give target.
func (e *Engine) PendingItem() string { return e.pending }

// StartCombat lets scripts start a fight.
func (e *Engine) StartCombat(charID string) {
	if e.Combat.Active() || e.World.GameOver {
		return
	}
	e.Dialogue.Close(e.Context())
	e.Combat.Start(e.Context(), charID)
}

// ScheduleRestart lets scripts restart the game after a delay.
func (e *Engine) ScheduleRestart(delay time.Duration) {
	e.Scheduler.After(delay, "restart", e.restart)
}

// begin starts collecting a Result.
func (e *Engine) begin() {
	e.out = types.Result{}
}

// finish returns the collected Result, closing the turn with the game-over
// banner the first time the session ends.
func (e *Engine) finish() types.Result {
	if e.World.GameOver && !e.overSaid {
		e.overSaid = true
		e.Scheduler.CancelNamed("ambush")
		e.Combat.Reset()
		e.Dialogue.Reset()
		if e.World.Won {
			e.Bus.Sayf("*** You have won! Final score: %d ***", e.World.Player.Score)
		} else {
			e.Bus.Sayf("*** GAME OVER *** Final score: %d. Type RESTART to play again.", e.World.Player.Score)
			if e.restartDelay > 0 {
				e.ScheduleRestart(e.restartDelay)
			}
		}
	}
	out := e.out
	out.Mode = e.Mode()
	e.out = types.Result{}
	return out
}

func (e *Engine) collect(ev types.Event) {
	e.out.Events = append(e.out.Events, ev)
	if ev.Type == events.MessageAdd {
		if s, ok := ev.Data["text"].(string); ok {
			e.out.Output = append(e.out.Output, s)
			e.said++
		}
	}
}

// runHandler executes a content handler bound to a bus event. The event
// payload is available to templates as .Event.
func (e *Engine) runHandler(h types.EventHandler, ev types.Event) {
	ctx := e.Context().With(map[string]any{"Event": ev.Data})
	effects.Run(ctx, h.Effects, nil)
}
