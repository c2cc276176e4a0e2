// Package script maps content script names to executable functions. Content
// refers to behavior by name; the registry resolves names at load time and
// at call time.
package script

import (
	"fmt"
	"sort"
	"strings"
	"time"

	errors "github.com/pixil98/go-errors"
	"github.com/sirupsen/logrus"

	"github.com/nathoo/worldcore/engine/events"
	"github.com/nathoo/worldcore/engine/state"
)

// Prefix is the authoring form of a script reference ("$script:name").
const Prefix = "$script:"

// Outcome is what a script reports back to its caller.
type Outcome int

const (
	// Continue means the script ran with no opinion.
	Continue Outcome = iota
	// Allow answers a guard or predicate positively.
	Allow
	// Block denies a guarded action.
	Block
)

func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case Block:
		return "block"
	default:
		return "continue"
	}
}

// Host is the part of the session scripts may drive beyond the world.
type Host interface {
	StartCombat(charID string)
	ScheduleRestart(delay time.Duration)
}

// Context is what a script runs against.
type Context struct {
	World *state.World
	Bus   *events.Bus
	Host  Host
	Log   logrus.FieldLogger
	Vars  map[string]any // template data supplied by the caller
}

// Logger returns the context logger, or one that discards everything.
func (c *Context) Logger() logrus.FieldLogger {
	if c.Log != nil {
		return c.Log
	}
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

// With returns a copy of the context with extra template data.
func (c *Context) With(vars map[string]any) *Context {
	cp := *c
	cp.Vars = make(map[string]any, len(c.Vars)+len(vars))
	for k, v := range c.Vars {
		cp.Vars[k] = v
	}
	for k, v := range vars {
		cp.Vars[k] = v
	}
	return &cp
}

// Func is an executable script.
type Func func(ctx *Context, args ...string) Outcome

// Registry is the name → Func table.
type Registry struct {
	log   logrus.FieldLogger
	funcs map[string]Func
}

// NewRegistry creates an empty registry.
func NewRegistry(log logrus.FieldLogger) *Registry {
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	return &Registry{
		log:   log.WithField("component", "scripts"),
		funcs: map[string]Func{},
	}
}

// Name strips the authoring prefix from a reference.
func Name(ref string) string {
	return strings.TrimSpace(strings.TrimPrefix(ref, Prefix))
}

// IsRef reports whether s uses the "$script:" authoring form.
func IsRef(s string) bool {
	return strings.HasPrefix(s, Prefix)
}

// Register binds a name. Registering a name twice replaces the first.
func (r *Registry) Register(name string, fn Func) error {
	name = Name(name)
	if name == "" {
		return fmt.Errorf("script name is empty")
	}
	if fn == nil {
		return fmt.Errorf("script %q: nil function", name)
	}
	if _, exists := r.funcs[name]; exists {
		r.log.WithField("script", name).Warn("script registered twice, replacing")
	}
	r.funcs[name] = fn
	return nil
}

// Lookup returns the function for a reference.
func (r *Registry) Lookup(ref string) (Func, bool) {
	fn, ok := r.funcs[Name(ref)]
	return fn, ok
}

// Has reports whether a reference resolves.
func (r *Registry) Has(ref string) bool {
	_, ok := r.Lookup(ref)
	return ok
}

// Names returns every registered name, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.funcs))
	for n := range r.funcs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Run executes a reference. An empty reference is a silent no-op; a
// reference that does not resolve is logged and reported as not found.
func (r *Registry) Run(ref string, ctx *Context, args ...string) (Outcome, bool) {
	if Name(ref) == "" {
		return Continue, false
	}
	fn, ok := r.Lookup(ref)
	if !ok {
		r.log.WithField("script", Name(ref)).Warn("script not found")
		return Continue, false
	}
	return fn(ctx, args...), true
}

// Guard runs a guard script. Only an explicit Block denies; a missing or
// silent script allows.
func (r *Registry) Guard(ref string, ctx *Context, args ...string) bool {
	out, _ := r.Run(ref, ctx, args...)
	return out != Block
}

// Check verifies that every script reference in defs resolves. All missing
// references are reported together.
func (r *Registry) Check(defs *state.Defs) error {
	el := errors.NewErrorList()
	need := func(owner, ref string) {
		if Name(ref) == "" || r.Has(ref) {
			return
		}
		el.Add(fmt.Errorf("%s: unknown script %q", owner, Name(ref)))
	}

	for _, id := range sortedKeys(defs.Rooms) {
		rd := defs.Rooms[id]
		owner := "room " + id
		need(owner+" on_enter", rd.OnEnter)
		need(owner+" on_search", rd.OnSearch)
		for _, dir := range sortedKeys(rd.Blocked) {
			need(owner+" blocked "+dir, rd.Blocked[dir])
		}
		for _, verb := range sortedKeys(rd.Verbs) {
			need(owner+" verb "+verb, rd.Verbs[verb])
		}
		for _, h := range rd.Hotspots {
			hOwner := owner + " hotspot " + h.ID
			for _, verb := range sortedKeys(h.Verbs) {
				need(hOwner+" verb "+verb, h.Verbs[verb])
			}
			if h.Puzzle != nil {
				need(hOwner+" on_correct", h.Puzzle.OnCorrectItem)
				need(hOwner+" on_wrong", h.Puzzle.OnWrongItem)
			}
		}
	}

	for _, id := range sortedKeys(defs.Items) {
		it := defs.Items[id]
		owner := "item " + id
		need(owner+" on_take", it.OnTake)
		need(owner+" on_use", it.OnUse)
		need(owner+" on_give", it.OnGive)
		need(owner+" on_read", it.OnRead)
		need(owner+" on_wear", it.OnWear)
	}

	for _, id := range sortedKeys(defs.Characters) {
		cd := defs.Characters[id]
		owner := "character " + id
		need(owner+" on_defeat", cd.OnDefeat)
		need(owner+" on_give", cd.OnGive)
		if cd.Puzzle != nil {
			need(owner+" on_correct", cd.Puzzle.OnCorrectItem)
			need(owner+" on_wrong", cd.Puzzle.OnWrongItem)
		}
	}

	for _, id := range sortedKeys(defs.Dialogues) {
		dd := defs.Dialogues[id]
		for _, nodeID := range sortedKeys(dd.Nodes) {
			node := dd.Nodes[nodeID]
			owner := fmt.Sprintf("dialogue %s node %s", id, nodeID)
			need(owner+" action", node.Action)
			for i, opt := range node.Options {
				need(fmt.Sprintf("%s option %d action", owner, i+1), opt.Action)
				if IsRef(opt.Condition) {
					need(fmt.Sprintf("%s option %d condition", owner, i+1), opt.Condition)
				}
			}
		}
	}

	return el.Err()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
