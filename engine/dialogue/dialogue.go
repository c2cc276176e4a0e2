// Package dialogue walks character conversation trees.
package dialogue

import (
	"strings"

	"github.com/nathoo/worldcore/engine/effects"
	"github.com/nathoo/worldcore/engine/events"
	"github.com/nathoo/worldcore/engine/script"
	"github.com/nathoo/worldcore/engine/text"
	"github.com/nathoo/worldcore/types"
)

// DefaultStart is the node a tree starts at when it names none.
const DefaultStart = "greeting"

// Walker is the Idle/Active conversation state machine. The zero value is
// not usable; create one with New.
type Walker struct {
	scripts *script.Registry

	active bool
	charID string
	tree   types.DialogueDef
	nodeID string
}

// New creates an idle walker that runs actions and predicates from reg.
func New(reg *script.Registry) *Walker {
	return &Walker{scripts: reg}
}

// Active reports whether a conversation is in progress.
func (d *Walker) Active() bool { return d.active }

// CharacterID returns who the player is talking to.
func (d *Walker) CharacterID() string { return d.charID }

// NodeID returns the current node ID.
func (d *Walker) NodeID() string { return d.nodeID }

// Node returns the current node.
func (d *Walker) Node() (types.DialogueNode, bool) {
	if !d.active {
		return types.DialogueNode{}, false
	}
	n, ok := d.tree.Nodes[d.nodeID]
	return n, ok
}

// Tree finds the dialogue declared for a character: its Dialogue field,
// falling back to a tree with the character's own ID.
func Tree(defs map[string]types.DialogueDef, ch types.CharacterDef) (types.DialogueDef, bool) {
	if ch.Dialogue != "" {
		if t, ok := defs[ch.Dialogue]; ok {
			return t, true
		}
	}
	t, ok := defs[ch.ID]
	return t, ok
}

// Start opens a conversation. A character without a tree gets a one-line
// brush-off and the walker stays idle.
func (d *Walker) Start(ctx *script.Context, charID string) bool {
	w := ctx.World
	ch, _ := w.CharacterDef(charID)
	tree, ok := Tree(w.Defs().Dialogues, ch)
	start := tree.Start
	if start == "" {
		start = DefaultStart
	}
	if _, has := tree.Nodes[start]; !ok || !has {
		ctx.Bus.Sayf("%s doesn't seem interested in talking.", w.CharacterName(charID))
		return false
	}

	d.active = true
	d.charID = charID
	d.tree = tree
	ctx.Bus.Emit(events.DialogueStart, map[string]any{"charId": charID, "dialogueId": tree.ID})
	d.enter(ctx, start)
	return true
}

// Options returns the options of the current node whose conditions hold,
// in declaration order.
func (d *Walker) Options(ctx *script.Context) []types.DialogueOption {
	node, ok := d.Node()
	if !ok {
		return nil
	}
	var out []types.DialogueOption
	for _, opt := range node.Options {
		if d.available(ctx, opt.Condition) {
			out = append(out, opt)
		}
	}
	return out
}

// Select picks an available option by zero-based index. An index out of
// range does nothing.
func (d *Walker) Select(ctx *script.Context, i int) bool {
	if !d.active {
		return false
	}
	opts := d.Options(ctx)
	if i < 0 || i >= len(opts) {
		return false
	}
	opt := opts[i]
	ctx.Bus.Say("> " + opt.Text)
	d.run(ctx, opt.Action)
	if !d.active {
		return true
	}
	if opt.Next == "" || ctx.World.GameOver {
		d.Close(ctx)
		return true
	}
	d.enter(ctx, opt.Next)
	return true
}

// Close ends the conversation.
func (d *Walker) Close(ctx *script.Context) {
	if !d.active {
		return
	}
	charID := d.charID
	d.Reset()
	ctx.Bus.Emit(events.DialogueEnd, map[string]any{"charId": charID})
}

// Reset drops any conversation without emitting.
func (d *Walker) Reset() {
	d.active = false
	d.charID = ""
	d.nodeID = ""
	d.tree = types.DialogueDef{}
}

// enter moves to a node, runs its action and shows it. A missing node, or
// one that leaves the player nothing to say, ends the conversation.
func (d *Walker) enter(ctx *script.Context, nodeID string) {
	node, ok := d.tree.Nodes[nodeID]
	if !ok {
		ctx.Logger().WithField("dialogue", d.tree.ID).WithField("node", nodeID).
			Debug("dialogue node missing, ending conversation")
		d.Close(ctx)
		return
	}
	d.nodeID = nodeID
	d.run(ctx, node.Action)
	if !d.active {
		return
	}

	speaker := node.Speaker
	if speaker == "" {
		speaker = ctx.World.CharacterName(d.charID)
	}
	line := text.Must(node.Text, effects.Data(ctx, []string{d.charID}))
	if line != "" {
		ctx.Bus.Sayf("%s: %s", speaker, line)
	}

	opts := d.Options(ctx)
	labels := make([]string, len(opts))
	for i, opt := range opts {
		labels[i] = opt.Text
		ctx.Bus.Sayf("  %d. %s", i+1, opt.Text)
	}
	ctx.Bus.Emit(events.DialogueNode, map[string]any{
		"charId":  d.charID,
		"nodeId":  nodeID,
		"speaker": speaker,
		"text":    line,
		"options": labels,
	})

	if len(opts) == 0 || ctx.World.GameOver {
		d.Close(ctx)
	}
}

func (d *Walker) run(ctx *script.Context, ref string) {
	if ref == "" {
		return
	}
	d.scripts.Run(ref, ctx, d.charID)
}

// available evaluates an option condition: empty, a flag name, "!flag", or
// a script predicate that must answer Allow.
func (d *Walker) available(ctx *script.Context, cond string) bool {
	cond = strings.TrimSpace(cond)
	switch {
	case cond == "":
		return true
	case script.IsRef(cond):
		out, _ := d.scripts.Run(cond, ctx, d.charID)
		return out == script.Allow
	case strings.HasPrefix(cond, "!"):
		return !ctx.World.FlagBool(strings.TrimPrefix(cond, "!"))
	default:
		return ctx.World.FlagBool(cond)
	}
}
