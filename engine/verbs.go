package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nathoo/worldcore/engine/events"
	"github.com/nathoo/worldcore/engine/resolve"
	"github.com/nathoo/worldcore/types"
)

// ref is a resolved noun. Hotspots standing for an item or a character
// resolve to that entity but keep their per-verb handlers and look text.
type ref struct {
	kind    string
	id      string
	name    string
	carried bool
	hotspot *types.HotspotDef
}

func (e *Engine) fromHotspot(h types.HotspotDef) *ref {
	w := e.World
	r := &ref{kind: resolve.KindHotspot, id: h.ID, name: h.Label, hotspot: &h}
	switch {
	case h.ItemID != "":
		r.kind = resolve.KindItem
		r.id = h.ItemID
		r.name = w.ItemName(h.ItemID)
		r.carried = w.HasItem(h.ItemID)
	case h.CharacterID != "":
		r.kind = resolve.KindCharacter
		r.id = h.CharacterID
		r.name = w.CharacterName(h.CharacterID)
	}
	return r
}

// hotspotFor finds the current room's hotspot standing for an entity.
func (e *Engine) hotspotFor(kind, id string) *types.HotspotDef {
	for _, h := range e.World.RoomDef(e.World.Player.CurrentRoom).Hotspots {
		if (kind == resolve.KindItem && h.ItemID == id) || (kind == resolve.KindCharacter && h.CharacterID == id) {
			return &h
		}
	}
	return nil
}

func (e *Engine) lookupName(name string) (*ref, error) {
	c, err := resolve.Resolve(name, resolve.Everything(e.World))
	if err != nil {
		return nil, err
	}
	if c.Kind == resolve.KindHotspot {
		h, _ := e.World.Hotspot(c.ID)
		return e.fromHotspot(h), nil
	}
	return &ref{kind: c.Kind, id: c.ID, name: c.Name, carried: c.Carried, hotspot: e.hotspotFor(c.Kind, c.ID)}, nil
}

func (e *Engine) lookupHotspot(id string) (*ref, error) {
	h, ok := e.World.Hotspot(id)
	if !ok {
		return nil, &resolve.NotFoundError{Name: id}
	}
	return e.fromHotspot(h), nil
}

// lookup resolves the direct object of an intent.
func (e *Engine) lookup(in types.Intent) (*ref, error) {
	if in.Hotspot != "" {
		return e.lookupHotspot(in.Hotspot)
	}
	return e.lookupName(in.Object)
}

// lookupTarget resolves the second object of an intent. It returns nil
// when the intent names none.
func (e *Engine) lookupTarget(in types.Intent) (*ref, error) {
	switch {
	case in.Hotspot != "":
		return e.lookupHotspot(in.Hotspot)
	case in.Target != "":
		return e.lookupName(in.Target)
	}
	return nil, nil
}

// carriedItem resolves a noun against the inventory only.
func (e *Engine) carriedItem(name string) (string, bool) {
	if e.World.HasItem(name) {
		return name, true
	}
	c, err := resolve.Resolve(name, resolve.Inventory(e.World))
	if err != nil {
		return "", false
	}
	return c.ID, true
}

// unresolved reports a noun that matched nothing, preferring a scenery
// answer when the noun appears in something the player can see.
func (e *Engine) unresolved(in types.Intent, err error) {
	var nf *resolve.NotFoundError
	if !errors.As(err, &nf) {
		e.log.WithError(err).Error("resolving object")
		e.Bus.Say("You don't see that here.")
		return
	}
	if in.Hotspot != "" {
		e.Bus.Say("You don't see that here.")
		return
	}
	if msg := e.sceneryFallback(in.Verb, nf.Name); msg != "" {
		e.Bus.Say(msg)
		return
	}
	e.Bus.Sayf("You don't see any %s here.", nf.Name)
}

// hotspotVerb runs a hotspot's handler for verb, if it declares one.
func (e *Engine) hotspotVerb(r *ref, verb string, args ...string) bool {
	if r == nil || r.hotspot == nil {
		return false
	}
	name, ok := r.hotspot.Verbs[verb]
	if !ok || name == "" {
		return false
	}
	e.Scripts.Run(name, e.Context(), append([]string{r.hotspot.ID}, args...)...)
	return true
}

// roomVerb runs the current room's handler for verb, if it declares one.
func (e *Engine) roomVerb(verb string, args ...string) bool {
	name := e.World.RoomDef(e.World.Player.CurrentRoom).Verbs[verb]
	if name == "" {
		return false
	}
	e.Scripts.Run(name, e.Context(), args...)
	return true
}

func (e *Engine) goVerb(in types.Intent) {
	dir := in.Object
	if in.Hotspot != "" {
		h, ok := e.World.Hotspot(in.Hotspot)
		if !ok || h.Kind != types.HotspotExit {
			e.Bus.Say("You can't go that way.")
			return
		}
		dir = h.ExitDir
	}
	if dir == "" {
		e.Bus.Say("Go where?")
		return
	}
	e.walk(e.exitDirection(dir))
}

// exitDirection maps "go front door" or "go kitchen" onto an exit
// direction of the current room. Unknown names are returned unchanged.
func (e *Engine) exitDirection(name string) string {
	w := e.World
	room := w.CurrentRoom()
	if room == nil {
		return name
	}
	if _, ok := room.Exits[name]; ok {
		return name
	}
	for _, h := range w.RoomDef(room.ID).Hotspots {
		if h.Kind != types.HotspotExit {
			continue
		}
		if c, err := resolve.Resolve(name, []resolve.Candidate{{ID: h.ID, Name: h.Label, Aliases: h.Aliases}}); err == nil && c.ID == h.ID {
			return h.ExitDir
		}
	}
	for _, dir := range sortedKeys(room.Exits) {
		if strings.EqualFold(w.RoomName(room.Exits[dir]), name) {
			return dir
		}
	}
	return name
}

func (e *Engine) walk(dir string) {
	w := e.World
	room := w.CurrentRoom()
	if room == nil {
		e.Bus.Say("You can't go that way.")
		return
	}
	target, ok := room.Exits[dir]
	if !ok {
		e.Bus.Say("You can't go that way.")
		return
	}
	if guard := w.RoomDef(room.ID).Blocked[dir]; guard != "" {
		said := e.said
		if !e.Scripts.Guard(guard, e.Context(), dir) {
			if e.said == said {
				e.Bus.Say("Something blocks your way.")
			}
			return
		}
		// The guard may have ended the game or moved the player itself.
		if w.GameOver || w.Player.CurrentRoom != room.ID {
			return
		}
	}
	e.pending = ""
	if err := w.MoveToRoom(target, dir); err != nil {
		e.log.WithError(err).WithField("direction", dir).Error("exit leads nowhere")
		e.Bus.Say("You can't go that way.")
	}
}

func (e *Engine) look(in types.Intent) {
	if in.Object == "" && in.Hotspot == "" {
		e.describeRoom(e.World.Player.CurrentRoom)
		return
	}
	r, err := e.lookup(in)
	if err != nil {
		if !e.roomVerb("look", in.Object) {
			e.unresolved(in, err)
		}
		return
	}
	if e.hotspotVerb(r, "look") {
		return
	}
	if r.hotspot != nil && r.hotspot.LookText != "" {
		e.Bus.Say(e.expand(r.hotspot.LookText))
		return
	}

	var desc string
	switch r.kind {
	case resolve.KindItem:
		def, _ := e.World.ItemDef(r.id)
		desc = def.Description
	case resolve.KindCharacter:
		def, _ := e.World.CharacterDef(r.id)
		desc = def.Description
	default:
		if r.hotspot.Kind == types.HotspotExit {
			desc = fmt.Sprintf("The way %s.", r.hotspot.ExitDir)
		}
	}
	if desc == "" {
		e.Bus.Sayf("You see nothing special about the %s.", r.name)
		return
	}
	e.Bus.Say(e.expand(desc))
}

func (e *Engine) take(in types.Intent) {
	if in.Object == "" && in.Hotspot == "" {
		e.Bus.Say("Take what?")
		return
	}
	w := e.World
	r, err := e.lookup(in)
	if err != nil {
		if !e.roomVerb("take", in.Object) {
			e.unresolved(in, err)
		}
		return
	}
	if e.hotspotVerb(r, "take") {
		return
	}
	if r.kind != resolve.KindItem {
		e.Bus.Say("You can't take that.")
		return
	}
	if r.carried {
		e.Bus.Say("You already have that.")
		return
	}
	if w.ItemRoom(r.id) != w.Player.CurrentRoom || w.Items[r.id].Hidden {
		e.Bus.Say("You don't see that here.")
		return
	}
	def, _ := w.ItemDef(r.id)
	if !def.Takeable {
		e.Bus.Sayf("You can't take the %s.", r.name)
		return
	}
	if err := w.AddToInventory(r.id); err != nil {
		e.log.WithError(err).Error("taking item")
		return
	}
	if _, ran := e.Scripts.Run(def.OnTake, e.Context(), r.id); !ran {
		e.Bus.Sayf("You picked up the %s.", r.name)
	}
}

func (e *Engine) drop(in types.Intent) {
	name := in.Object
	if in.Carried != "" {
		name = in.Carried
	}
	if name == "" {
		e.Bus.Say("Drop what?")
		return
	}
	id, ok := e.carriedItem(name)
	if !ok {
		e.Bus.Say("You don't have that.")
		return
	}
	if err := e.World.DropItem(id); err != nil {
		e.log.WithError(err).Error("dropping item")
		return
	}
	e.Bus.Sayf("You drop the %s.", e.World.ItemName(id))
}

// use handles every shape of Use: "use lever", "use key", "use key on
// door", a Use click with or without a pending item, and a drag.
func (e *Engine) use(in types.Intent) {
	item := in.Carried
	if item != "" && !e.World.HasItem(item) {
		e.pending = ""
		e.Bus.Say("You don't have that.")
		return
	}

	var direct *ref
	if item == "" && in.Object != "" {
		if id, ok := e.carriedItem(in.Object); ok {
			item = id
		} else if in.Target == "" && in.Hotspot == "" {
			r, err := e.lookupName(in.Object)
			if err != nil {
				if !e.roomVerb("use", in.Object) {
					e.unresolved(in, err)
				}
				return
			}
			direct = r
		} else {
			e.Bus.Say("You don't have that.")
			return
		}
	}

	if direct == nil {
		tgt, err := e.lookupTarget(in)
		if err != nil {
			e.pending = ""
			e.unresolved(types.Intent{Verb: "use", Object: in.Target, Hotspot: in.Hotspot}, err)
			return
		}
		if item == "" {
			item = e.pending
		}
		switch {
		case item != "" && tgt != nil:
			e.pending = ""
			e.useOn(item, tgt)
			return
		case item != "":
			e.useItem(item)
			return
		case tgt == nil:
			e.Bus.Say("Use what?")
			return
		}
		direct = tgt
	}

	if e.hotspotVerb(direct, "use") {
		return
	}
	if direct.kind == resolve.KindItem {
		if direct.carried {
			e.useItem(direct.id)
			return
		}
		e.Bus.Sayf("You need to pick up the %s first.", direct.name)
		return
	}
	if direct.kind == resolve.KindHotspot && direct.hotspot.Kind == types.HotspotSearchable {
		e.search(direct)
		return
	}
	if !e.roomVerb("use", direct.id) {
		e.Bus.Say("You can't use that.")
	}
}

// useItem uses a carried item on its own: its handler runs if it has one,
// otherwise the item waits for a target.
func (e *Engine) useItem(item string) {
	def, _ := e.World.ItemDef(item)
	if def.OnUse != "" {
		e.pending = ""
		e.Scripts.Run(def.OnUse, e.Context(), item)
		return
	}
	e.pending = item
	e.Bus.Emit(events.VerbPending, map[string]any{"verb": "use", "itemId": item})
	e.Bus.Sayf("Use the %s on what?", e.World.ItemName(item))
}

func (e *Engine) useOn(item string, tgt *ref) {
	ctx := e.Context()
	if e.hotspotVerb(tgt, "use", item) {
		return
	}
	switch {
	case tgt.kind == resolve.KindCharacter:
		e.Puzzles.Give(ctx, tgt.id, item)
		return
	case tgt.hotspot != nil && tgt.hotspot.Puzzle != nil:
		e.Puzzles.UseOn(ctx, *tgt.hotspot, item)
		return
	}
	def, _ := e.World.ItemDef(item)
	if _, ran := e.Scripts.Run(def.OnUse, ctx, item, tgt.id); !ran {
		e.Bus.Say("Nothing happens.")
	}
}

func (e *Engine) give(in types.Intent) {
	item := in.Carried
	if item == "" && in.Object != "" {
		id, ok := e.carriedItem(in.Object)
		if !ok {
			e.Bus.Say("You don't have that.")
			return
		}
		item = id
	}
	if item != "" && !e.World.HasItem(item) {
		e.pending = ""
		e.Bus.Say("You don't have that.")
		return
	}

	tgt, err := e.lookupTarget(in)
	if err != nil {
		e.pending = ""
		e.unresolved(types.Intent{Verb: "give", Object: in.Target, Hotspot: in.Hotspot}, err)
		return
	}
	if item == "" {
		item = e.pending
	}
	if item == "" {
		e.Bus.Say("Give what? Select an item from your inventory first.")
		return
	}
	if tgt == nil {
		e.pending = item
		e.Bus.Emit(events.VerbPending, map[string]any{"verb": "give", "itemId": item})
		e.Bus.Sayf("Give the %s to whom?", e.World.ItemName(item))
		return
	}

	e.pending = ""
	if e.hotspotVerb(tgt, "give", item) {
		return
	}
	if tgt.kind != resolve.KindCharacter {
		e.Bus.Say("You can't give that to... that.")
		return
	}
	e.Puzzles.Give(e.Context(), tgt.id, item)
}

func (e *Engine) talk(in types.Intent) {
	w := e.World
	var r *ref
	if in.Object == "" && in.Hotspot == "" {
		chars := w.RoomCharacters(w.Player.CurrentRoom)
		if len(chars) != 1 {
			e.Bus.Say("Talk to whom?")
			return
		}
		r = &ref{kind: resolve.KindCharacter, id: chars[0], name: w.CharacterName(chars[0])}
	} else {
		var err error
		if r, err = e.lookup(in); err != nil {
			if !e.roomVerb("talk", in.Object) {
				e.unresolved(in, err)
			}
			return
		}
	}
	if e.hotspotVerb(r, "talk") {
		return
	}
	if r.kind != resolve.KindCharacter {
		e.Bus.Say("You can't talk to that.")
		return
	}
	if !w.Present(r.id) {
		e.Bus.Say("There's nobody there to talk to.")
		return
	}
	e.Dialogue.Start(e.Context(), r.id)
}

func (e *Engine) attack(in types.Intent) {
	w := e.World
	if in.Object == "" && in.Hotspot == "" {
		chars := w.RoomCharacters(w.Player.CurrentRoom)
		if len(chars) == 0 {
			e.Bus.Say("There's no one to fight.")
			return
		}
		target := chars[0]
		for _, id := range chars {
			if c := w.Characters[id]; c.Hostile {
				target = id
				break
			}
		}
		e.Combat.Start(e.Context(), target)
		return
	}
	r, err := e.lookup(in)
	if err != nil {
		if !e.roomVerb("attack", in.Object) {
			e.unresolved(in, err)
		}
		return
	}
	if e.hotspotVerb(r, "attack") {
		return
	}
	if r.kind != resolve.KindCharacter {
		e.Bus.Say("You can't attack that.")
		return
	}
	e.Combat.Start(e.Context(), r.id)
}

// interact handles search and every verb that only content gives meaning
// to: open, close, pull, push, dig, read, wear, and anything a room or
// hotspot declares.
func (e *Engine) interact(in types.Intent) {
	w := e.World
	verb := in.Verb
	if in.Object == "" && in.Hotspot == "" {
		if verb == "search" {
			e.search(nil)
			return
		}
		if !e.roomVerb(verb) {
			e.fallback(verb)
		}
		return
	}

	r, err := e.lookup(in)
	if err != nil {
		if !e.roomVerb(verb, in.Object) {
			e.unresolved(in, err)
		}
		return
	}
	if e.hotspotVerb(r, verb) {
		return
	}
	if r.kind == resolve.KindItem {
		def, _ := w.ItemDef(r.id)
		var handler string
		switch verb {
		case "read":
			handler = def.OnRead
		case "wear":
			handler = def.OnWear
		}
		if handler != "" {
			if !r.carried {
				e.Bus.Sayf("You need to pick up the %s first.", r.name)
				return
			}
			e.Scripts.Run(handler, e.Context(), r.id)
			return
		}
	}
	if verb == "search" && r.hotspot != nil && r.hotspot.Kind == types.HotspotSearchable {
		e.search(r)
		return
	}
	if !e.roomVerb(verb, r.id) {
		e.fallback(verb)
	}
}

// search runs the room's search handler. r is the searched hotspot, or nil
// for the room itself.
func (e *Engine) search(r *ref) {
	rd := e.World.RoomDef(e.World.Player.CurrentRoom)
	var args []string
	if r != nil {
		args = append(args, r.id)
	}
	if _, ran := e.Scripts.Run(rd.OnSearch, e.Context(), args...); ran {
		return
	}
	if e.roomVerb("search", args...) {
		return
	}
	e.Bus.Say("You search but find nothing special.")
}

// knownVerbs are the verbs that get a stock answer when nothing handles
// them.
var knownVerbs = map[string]string{
	"search": "You search but find nothing special.",
	"open":   "It doesn't open.",
	"close":  "Nothing happens.",
	"pull":   "Nothing happens.",
	"push":   "Nothing happens.",
	"dig":    "You dig for a while but find nothing.",
	"read":   "There's nothing to read.",
	"wear":   "You can't wear that.",
}

func (e *Engine) fallback(verb string) {
	if msg, ok := knownVerbs[verb]; ok {
		e.Bus.Say(msg)
		return
	}
	e.Bus.Sayf("I don't know how to %s.", verb)
}
