// Package combat resolves turn-based fights between the player and one
// enemy character.
//
// A fight is Idle until Start, InCombat while an enemy is engaged, and ends
// in victory, a successful flee, or the player's death. The enemy never
// strikes back on a turn that kills it.
package combat

import (
	"fmt"

	"github.com/nathoo/worldcore/engine/events"
	"github.com/nathoo/worldcore/engine/script"
	"github.com/nathoo/worldcore/engine/text"
	"github.com/nathoo/worldcore/types"
)

// Roller supplies the randomness combat needs.
type Roller interface {
	Roll(sides int) int
	Chance(percent int) bool
}

// Config holds the combat constants.
type Config struct {
	FistDamage    int // unarmed attack damage
	CounterBonus  int // enemy hits add 0..CounterBonus-1
	FleeChance    int // percent
	GrenadeChance int // percent
	GrenadeDamage int
	InsultDamage  int
}

// DefaultConfig returns the standard constants.
func DefaultConfig() Config {
	return Config{
		FistDamage:    5,
		CounterBonus:  5,
		FleeChance:    40,
		GrenadeChance: 70,
		GrenadeDamage: 40,
		InsultDamage:  8,
	}
}

// Outcome is how an action left the fight.
type Outcome int

const (
	// Ongoing means the fight continues (or never started).
	Ongoing Outcome = iota
	// Victory means the enemy was defeated.
	Victory
	// Fled means the player got away.
	Fled
	// Death means the player was killed.
	Death
)

func (o Outcome) String() string {
	switch o {
	case Victory:
		return "victory"
	case Fled:
		return "fled"
	case Death:
		return "death"
	default:
		return "ongoing"
	}
}

// Resolver runs one fight at a time.
type Resolver struct {
	cfg     Config
	rng     Roller
	scripts *script.Registry

	enemy string
}

// New creates an idle resolver. Zero-valued config fields take their
// defaults.
func New(cfg Config, rng Roller, reg *script.Registry) *Resolver {
	def := DefaultConfig()
	if cfg.FistDamage <= 0 {
		cfg.FistDamage = def.FistDamage
	}
	if cfg.CounterBonus <= 0 {
		cfg.CounterBonus = def.CounterBonus
	}
	if cfg.FleeChance <= 0 {
		cfg.FleeChance = def.FleeChance
	}
	if cfg.GrenadeChance <= 0 {
		cfg.GrenadeChance = def.GrenadeChance
	}
	if cfg.GrenadeDamage <= 0 {
		cfg.GrenadeDamage = def.GrenadeDamage
	}
	if cfg.InsultDamage <= 0 {
		cfg.InsultDamage = def.InsultDamage
	}
	return &Resolver{cfg: cfg, rng: rng, scripts: reg}
}

// SetRoller swaps the random source, e.g. after a saved game is loaded.
func (r *Resolver) SetRoller(rng Roller) { r.rng = rng }

// Config returns the constants in use.
func (r *Resolver) Config() Config { return r.cfg }

// Active reports whether a fight is in progress.
func (r *Resolver) Active() bool { return r.enemy != "" }

// Enemy returns the engaged character, or "".
func (r *Resolver) Enemy() string { return r.enemy }

// Reset drops the fight without emitting.
func (r *Resolver) Reset() { r.enemy = "" }

// squareUp opens a fight that has no ambush line.
const squareUp = "You square up to {{ .Enemy }}."

// Start engages a character. Dead, defeated and absent characters cannot be
// fought.
func (r *Resolver) Start(ctx *script.Context, charID string) bool {
	w := ctx.World
	c, ok := w.Characters[charID]
	if !ok || !c.Alive || c.Defeated || !w.Present(charID) {
		ctx.Bus.Say("There's no one to fight.")
		return false
	}
	r.enemy = charID
	def, _ := w.CharacterDef(charID)
	ctx.Bus.Emit(events.CombatStart, map[string]any{
		"charId": charID,
		"name":   w.CharacterName(charID),
		"hp":     c.HP,
		"maxHp":  c.MaxHP,
	})
	if c.Hostile && def.Messages.Ambush != "" {
		r.say(ctx, def.Messages.Ambush, 0)
	} else {
		r.say(ctx, squareUp, 0)
	}
	return true
}

// BestWeapon returns the strongest carried weapon. Grenades and insults have
// their own actions and never count. ok is false when fighting bare-handed.
func (r *Resolver) BestWeapon(ctx *script.Context) (id string, damage int, ok bool) {
	w := ctx.World
	for _, itemID := range w.Player.Inventory {
		def, found := w.ItemDef(itemID)
		if !found || !def.Weapon || def.Grenade || def.Insult {
			continue
		}
		if def.Damage > damage {
			id, damage, ok = itemID, def.Damage, true
		}
	}
	if !ok {
		return "", r.fistDamage(ctx), false
	}
	return id, damage, true
}

func (r *Resolver) fistDamage(ctx *script.Context) int {
	if d := ctx.World.Defs().Game.FistDamage; d > 0 {
		return d
	}
	return r.cfg.FistDamage
}

// Attack hits the enemy with the best weapon.
func (r *Resolver) Attack(ctx *script.Context) Outcome {
	if !r.Active() {
		return Ongoing
	}
	w := ctx.World
	weapon, damage, armed := r.BestWeapon(ctx)
	name := "fists"
	if armed {
		name = w.ItemName(weapon)
	}
	def, _ := w.CharacterDef(r.enemy)
	r.say(ctx, fmt.Sprintf("You attack %s with your %s!", w.CharacterName(r.enemy), name), damage)
	r.say(ctx, def.Messages.PlayerHit, damage)

	if out, done := r.hit(ctx, damage, "has been defeated!"); done {
		return out
	}
	return r.enemyTurn(ctx)
}

// Flee tries to disengage. Failure costs an enemy turn.
func (r *Resolver) Flee(ctx *script.Context) Outcome {
	if !r.Active() {
		return Ongoing
	}
	if r.rng.Chance(r.cfg.FleeChance) {
		r.say(ctx, "You manage to disengage!", 0)
		r.end(ctx, Fled, "You got away.")
		return Fled
	}
	r.say(ctx, "You can't get away!", 0)
	return r.enemyTurn(ctx)
}

// ThrowGrenade uses up one carried grenade. It may be a dud.
func (r *Resolver) ThrowGrenade(ctx *script.Context) Outcome {
	if !r.Active() {
		return Ongoing
	}
	w := ctx.World
	grenade := r.carried(ctx, func(d types.ItemDef) bool { return d.Grenade })
	if grenade == "" {
		r.say(ctx, "You don't have any grenades!", 0)
		return Ongoing
	}
	w.RemoveFromInventory(grenade)
	r.say(ctx, fmt.Sprintf("You throw a grenade at %s!", w.CharacterName(r.enemy)), 0)

	if r.rng.Chance(r.cfg.GrenadeChance) {
		r.say(ctx, "BOOM! Direct hit!", r.cfg.GrenadeDamage)
		if out, done := r.hit(ctx, r.cfg.GrenadeDamage, "has been obliterated!"); done {
			return out
		}
	} else {
		r.say(ctx, "The grenade misses! It was a dud!", 0)
	}
	return r.enemyTurn(ctx)
}

// Insult wounds the enemy's pride, if the player carries something rude
// enough to say.
func (r *Resolver) Insult(ctx *script.Context) Outcome {
	if !r.Active() {
		return Ongoing
	}
	w := ctx.World
	if r.carried(ctx, func(d types.ItemDef) bool { return d.Insult }) == "" {
		r.say(ctx, "You mutter something under your breath.", 0)
		return Ongoing
	}
	enemyName := w.CharacterName(r.enemy)
	def, _ := w.CharacterDef(r.enemy)
	r.say(ctx, fmt.Sprintf("You unleash a string of profanity at %s!", enemyName), r.cfg.InsultDamage)
	if def.Messages.Insult != "" {
		r.say(ctx, fmt.Sprintf("%s: %q", enemyName, text.Must(def.Messages.Insult, r.data(ctx, r.cfg.InsultDamage))), 0)
	}
	if out, done := r.hit(ctx, r.cfg.InsultDamage, "has been defeated!"); done {
		return out
	}
	return r.enemyTurn(ctx)
}

// hit damages the enemy and finishes the fight if it falls.
func (r *Resolver) hit(ctx *script.Context, damage int, defeatLine string) (Outcome, bool) {
	w := ctx.World
	enemy := r.enemy
	w.DamageCharacter(enemy, damage)
	c := w.Characters[enemy]
	if c.Alive && !c.Defeated {
		return Ongoing, false
	}
	def, _ := w.CharacterDef(enemy)
	r.say(ctx, def.Messages.Defeat, damage)
	if def.OnDefeat != "" {
		r.scripts.Run(def.OnDefeat, ctx, enemy)
	}
	r.end(ctx, Victory, fmt.Sprintf("%s %s", w.CharacterName(enemy), defeatLine))
	return Victory, true
}

// enemyTurn is the counterattack: base attack plus a bounded bonus.
func (r *Resolver) enemyTurn(ctx *script.Context) Outcome {
	w := ctx.World
	c, ok := w.Characters[r.enemy]
	if !ok || !c.Alive || c.Defeated {
		return Ongoing
	}
	def, _ := w.CharacterDef(r.enemy)
	damage := def.Attack + r.rng.Roll(r.cfg.CounterBonus) - 1
	w.ModifyHP(-damage)

	if def.Messages.EnemyHit != "" {
		r.say(ctx, def.Messages.EnemyHit, damage)
	} else {
		r.say(ctx, fmt.Sprintf("%s hits you for %d damage!", w.CharacterName(r.enemy), damage), damage)
	}

	if w.Player.HP <= 0 {
		r.say(ctx, "You have been killed!", 0)
		r.end(ctx, Death, "You died!")
		return Death
	}
	return Ongoing
}

func (r *Resolver) end(ctx *script.Context, out Outcome, msg string) {
	charID := r.enemy
	r.enemy = ""
	if out == Victory {
		ctx.Bus.Say(msg)
	}
	ctx.Bus.Emit(events.CombatEnd, map[string]any{
		"charId":  charID,
		"result":  out.String(),
		"message": msg,
	})
}

func (r *Resolver) carried(ctx *script.Context, match func(types.ItemDef) bool) string {
	w := ctx.World
	for _, id := range w.Player.Inventory {
		if def, ok := w.ItemDef(id); ok && match(def) {
			return id
		}
	}
	return ""
}

// say narrates a combat line. Lines are templates over the enemy name and
// the damage just dealt.
func (r *Resolver) say(ctx *script.Context, line string, damage int) {
	if line == "" {
		return
	}
	line = text.Must(line, r.data(ctx, damage))
	ctx.Bus.Say(line)
	ctx.Bus.Emit(events.CombatMessage, map[string]any{"charId": r.enemy, "text": line})
}

func (r *Resolver) data(ctx *script.Context, damage int) map[string]any {
	w := ctx.World
	hp := 0
	if c, ok := w.Characters[r.enemy]; ok {
		hp = c.HP
	}
	return map[string]any{
		"Enemy":    w.CharacterName(r.enemy),
		"EnemyHP":  hp,
		"Damage":   damage,
		"PlayerHP": w.Player.HP,
	}
}
