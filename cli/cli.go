// Package cli provides the line-oriented front-end: terminal I/O, output
// wrapping, and meta-command dispatch for the WorldCore engine.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/muesli/reflow/wordwrap"

	"github.com/nathoo/worldcore/engine"
	"github.com/nathoo/worldcore/engine/save"
	"github.com/nathoo/worldcore/types"
)

// DefaultMaxWait bounds how long the prompt is held back for a task that
// is about to fire, such as an ambush.
const DefaultMaxWait = 3 * time.Second

// maxSettleRounds caps the tasks run between two prompts.
const maxSettleRounds = 16

// CLI handles terminal interaction with the player.
type CLI struct {
	Engine    *engine.Engine
	Store     save.Store
	In        io.Reader
	Out       io.Writer
	Trace     bool
	EchoInput bool // echo each input line after the prompt (for script playback)
	Wrap      int  // wrap width; 0 disables wrapping

	// MaxWait is how long the prompt waits for a scheduled task.
	MaxWait time.Duration
	// Sleep blocks until a task is due.
	Sleep func(time.Duration)

	lastCmd string // for "again"/"g" repeat
}

// New creates a CLI wired to the given engine and save store.
func New(eng *engine.Engine, store save.Store) *CLI {
	return &CLI{
		Engine:  eng,
		Store:   store,
		In:      os.Stdin,
		Out:     os.Stdout,
		Wrap:    80,
		MaxWait: DefaultMaxWait,
		Sleep:   time.Sleep,
	}
}

// Run starts the game loop: intro, then prompt → input → dispatch → output
// until input ends or the player quits.
func (c *CLI) Run(ctx context.Context) error {
	c.printResult(c.Engine.Start())
	c.settle()

	scanner := bufio.NewScanner(c.In)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		// Skip comment lines (for script files).
		if strings.HasPrefix(input, "#") {
			continue
		}
		if c.EchoInput {
			c.printLine(input)
		}

		// Meta-commands start with '/'.
		if strings.HasPrefix(input, "/") {
			if c.handleMeta(ctx, input) {
				return nil
			}
			c.settle()
			continue
		}

		// "again" / "g" repeats the last game command.
		lower := strings.ToLower(input)
		if lower == "again" || lower == "g" {
			if c.lastCmd == "" {
				c.printLine("Nothing to repeat.")
				continue
			}
			input = c.lastCmd
		} else {
			c.lastCmd = input
		}

		c.printResult(c.Engine.Step(input))
		c.settle()
	}
	return scanner.Err()
}

// settle runs scheduled tasks that come due within MaxWait, so an ambush
// lands before the next prompt.
func (c *CLI) settle() {
	sched := c.Engine.Scheduler
	for i := 0; i < maxSettleRounds; i++ {
		due, ok := sched.NextDue()
		if !ok {
			return
		}
		wait := due.Sub(sched.Now())
		if wait > c.MaxWait {
			return
		}
		if wait > 0 && c.Sleep != nil {
			c.Sleep(wait)
		}
		if !due.After(sched.Now()) {
			c.printResult(c.Engine.Advance())
		}
	}
}

// handleMeta dispatches meta-commands. Returns true if the game should exit.
func (c *CLI) handleMeta(ctx context.Context, input string) bool {
	parts := strings.Fields(input)
	cmd := parts[0]
	args := parts[1:]
	arg := ""
	if len(args) > 0 {
		arg = args[0]
	}

	switch cmd {
	case "/quit", "/exit":
		c.printSystem("Goodbye.")
		return true

	case "/save":
		c.cmdSave(ctx, arg)

	case "/load":
		c.cmdLoad(ctx, arg)

	case "/slots":
		c.cmdSlots(ctx)

	case "/delete":
		c.cmdDelete(ctx, arg)

	case "/verb":
		if arg == "" {
			c.printResult(c.Engine.Cancel())
		} else {
			c.printResult(c.Engine.SelectVerb(arg))
			c.printSystem(fmt.Sprintf("Verb: %s", arg))
		}

	case "/click":
		// /click <hotspot> or /click <verb> <hotspot>
		switch len(args) {
		case 1:
			c.printResult(c.Engine.Click("", args[0]))
		case 2:
			c.printResult(c.Engine.Click(args[0], args[1]))
		default:
			c.printSystem("Usage: /click [verb] <hotspot>")
		}

	case "/item":
		if arg == "" {
			c.printSystem("Usage: /item <item>")
			break
		}
		c.printResult(c.Engine.SelectItem(arg))

	case "/drag":
		if len(args) != 2 {
			c.printSystem("Usage: /drag <item> <target>")
			break
		}
		c.printResult(c.Engine.DragOnto(args[0], args[1]))

	case "/choose":
		n, err := strconv.Atoi(arg)
		if err != nil {
			c.printSystem("Usage: /choose <number>")
			break
		}
		c.printResult(c.Engine.ChooseOption(n - 1))

	case "/help":
		c.cmdHelp()

	case "/state":
		c.cmdState()

	case "/trace":
		c.Trace = !c.Trace
		if c.Trace {
			c.printSystem("Trace output enabled.")
		} else {
			c.printSystem("Trace output disabled.")
		}

	default:
		c.printSystem(fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd))
	}

	return false
}

func slotName(arg string) string {
	if arg == "" {
		return "quicksave"
	}
	return arg
}

func (c *CLI) cmdSave(ctx context.Context, name string) {
	name = slotName(name)
	if c.Store == nil {
		c.printSystem("Save failed: no save store configured")
		return
	}
	if err := c.Engine.Save(ctx, c.Store, name); err != nil {
		c.printSystem(fmt.Sprintf("Save failed: %v", err))
		return
	}
	c.printSystem(fmt.Sprintf("Game saved to %s.", name))
}

func (c *CLI) cmdLoad(ctx context.Context, name string) {
	name = slotName(name)
	if c.Store == nil {
		c.printSystem("Load failed: no save store configured")
		return
	}
	result, err := c.Engine.Load(ctx, c.Store, name)
	if err != nil {
		if errors.Is(err, save.ErrSlotNotFound) {
			c.printSystem(fmt.Sprintf("Load failed: no save named %s.", name))
		} else {
			c.printSystem(fmt.Sprintf("Load failed: %v", err))
		}
		return
	}
	c.printSystem(fmt.Sprintf("Game loaded from %s (turn %d).", name, c.Engine.World.Player.TurnCount))
	c.printResult(result)
}

func (c *CLI) cmdSlots(ctx context.Context) {
	if c.Store == nil {
		c.printSystem("No save store configured.")
		return
	}
	slots, err := c.Store.List(ctx)
	if err != nil {
		c.printSystem(fmt.Sprintf("Listing saves failed: %v", err))
		return
	}
	if len(slots) == 0 {
		c.printSystem("No saved games.")
		return
	}
	for _, s := range slots {
		c.printSystem(fmt.Sprintf("%-12s %s  %s  score %d, turn %d",
			s.Slot, s.SavedAt.Local().Format("2006-01-02 15:04"), s.RoomName, s.Score, s.Turn))
	}
}

func (c *CLI) cmdDelete(ctx context.Context, name string) {
	if name == "" {
		c.printSystem("Usage: /delete <slot>")
		return
	}
	if c.Store == nil {
		c.printSystem("No save store configured.")
		return
	}
	if err := c.Store.Delete(ctx, name); err != nil {
		c.printSystem(fmt.Sprintf("Delete failed: %v", err))
		return
	}
	c.printSystem(fmt.Sprintf("Deleted %s.", name))
}

func (c *CLI) cmdHelp() {
	help := []string{
		"System:",
		"  /save [slot]            Save game (default: quicksave)",
		"  /load [slot]            Load game (default: quicksave)",
		"  /slots                  List saved games",
		"  /delete <slot>          Delete a saved game",
		"  /verb [verb]            Select a verb for clicks (no verb clears it)",
		"  /click [verb] <hotspot> Click a hotspot",
		"  /item <item>            Click an inventory item",
		"  /drag <item> <target>   Drag an item onto something",
		"  /choose <n>             Pick a dialogue option",
		"  /state                  Debug: dump current state",
		"  /trace                  Toggle event trace output",
		"  /quit                   Exit game",
		"",
		"Game commands:",
		"  look (l), examine <thing> (x)",
		"  go <dir> (or n/s/e/w/u/d)",
		"  take <item>, drop <item>, inventory (i)",
		"  use <item> on <thing>, give <item> to <someone>",
		"  talk to <someone>, then 1, 2, 3... or bye",
		"  attack, flee, throw grenade, insult",
		"  search, open, read, wear, dig, wait (z)",
		"  status, restart, again (g)",
	}
	for _, line := range help {
		c.printLine(line)
	}
}

func (c *CLI) cmdState() {
	data, err := save.ExportYAML(c.Engine.Envelope("state"))
	if err != nil {
		c.printSystem(fmt.Sprintf("State dump failed: %v", err))
		return
	}
	c.printLine(strings.TrimRight(string(data), "\n"))
}

func (c *CLI) printTrace(result types.Result) {
	if len(result.Events) == 0 {
		return
	}
	fmt.Fprintf(c.Out, "[trace] Events: %d (mode %s)\n", len(result.Events), result.Mode)
	for _, e := range result.Events {
		if len(e.Data) == 0 {
			fmt.Fprintf(c.Out, "[trace]   %s\n", e.Type)
			continue
		}
		fmt.Fprintf(c.Out, "[trace]   %s %v\n", e.Type, e.Data)
	}
}

func (c *CLI) printResult(result types.Result) {
	for _, line := range result.Output {
		c.printLine(line)
	}
	if c.Trace {
		c.printTrace(result)
	}
}

func (c *CLI) printLine(text string) {
	if c.Wrap > 0 {
		text = wordwrap.String(text, c.Wrap)
	}
	fmt.Fprintln(c.Out, text)
}

func (c *CLI) print(text string) {
	fmt.Fprint(c.Out, text)
}

func (c *CLI) printSystem(text string) {
	fmt.Fprintf(c.Out, "[%s]\n", text)
}
