package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/wordwrap"

	"github.com/nathoo/worldcore/engine"
	"github.com/nathoo/worldcore/engine/save"
	"github.com/nathoo/worldcore/types"
)

// tickInterval is how often scheduled tasks are polled.
const tickInterval = 200 * time.Millisecond

// rawLine stores an unstyled output line with its classification,
// so we can re-wrap and re-style when the terminal is resized.
type rawLine struct {
	text     string
	kind     lineKind
	isInput  bool // true for echoed player input
	isSystem bool // true for system messages
}

// Model is the Bubble Tea model for the WorldCore TUI.
type Model struct {
	engine *engine.Engine
	store  save.Store
	ctx    context.Context

	viewport viewport.Model
	input    textinput.Model
	history  *History

	rawLines []rawLine // accumulated narrative lines (unstyled, for re-wrapping)

	width    int
	height   int
	ready    bool
	trace    bool
	quitting bool
	lastCmd  string
}

// gameOutputMsg carries output from the engine into the Update loop.
type gameOutputMsg struct {
	input    string   // echoed player input (empty for intro)
	lines    []string // output lines
	isSystem bool     // true for meta-command output
}

// startMsg asks Update to print the opening scene.
type startMsg struct{}

// tickMsg fires scheduled tasks that have come due.
type tickMsg time.Time

// New creates a TUI model wired to the given engine and save store.
func New(ctx context.Context, eng *engine.Engine, store save.Store) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Focus()
	ti.CharLimit = 256
	ti.PromptStyle = styleInputPrompt

	return Model{
		engine:  eng,
		store:   store,
		ctx:     ctx,
		input:   ti,
		history: NewHistory(100),
	}
}

// Run starts the Bubble Tea program. Cancelling ctx stops it.
func Run(ctx context.Context, eng *engine.Engine, store save.Store, trace bool) error {
	m := New(ctx, eng, store)
	m.trace = trace
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Init returns the initial commands: the opening scene, cursor blink, and
// the scheduler tick.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, func() tea.Msg { return startMsg{} }, tick())
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Update handles messages (key presses, window resize, game output).
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		vpHeight := m.height - 2 // 1 status bar + 1 input line
		if vpHeight < 1 {
			vpHeight = 1
		}

		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.viewport.KeyMap = viewportKeyMap()
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}

		m.refreshViewport()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "enter":
			return m.handleEnter()

		case "esc":
			m = m.appendResult("", m.engine.Cancel())
			return m, nil

		case "up":
			if prev, ok := m.history.Older(m.input.Value()); ok {
				m.input.SetValue(prev)
				m.input.CursorEnd()
			}
			return m, nil

		case "down":
			if next, ok := m.history.Newer(); ok {
				m.input.SetValue(next)
				m.input.CursorEnd()
			}
			return m, nil

		case "pgup", "pgdown":
			var vpCmd tea.Cmd
			m.viewport, vpCmd = m.viewport.Update(msg)
			return m, vpCmd
		}

	case gameOutputMsg:
		m = m.appendOutput(msg)

	case startMsg:
		m = m.appendResult("", m.engine.Start())

	case tickMsg:
		if _, ok := m.engine.Scheduler.NextDue(); ok {
			if result := m.engine.Advance(); len(result.Output) > 0 || (m.trace && len(result.Events) > 0) {
				m = m.appendResult("", result)
			}
		}
		return m, tick()
	}

	var inputCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	cmds = append(cmds, inputCmd)

	return m, tea.Batch(cmds...)
}

// handleEnter processes the submitted input line.
func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")

	if input == "" {
		return m, nil
	}

	m.history.Record(input)

	// Meta-commands.
	if strings.HasPrefix(input, "/") {
		output, result, quit := m.handleMeta(input)
		m = m.appendOutput(gameOutputMsg{input: input, lines: output, isSystem: true})
		if result != nil {
			m = m.appendResult("", *result)
		}
		if quit {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	}

	// Handle "again" / "g".
	echo := input
	lower := strings.ToLower(input)
	if lower == "again" || lower == "g" {
		if m.lastCmd == "" {
			m = m.appendOutput(gameOutputMsg{
				input: input, lines: []string{"Nothing to repeat."}, isSystem: true,
			})
			return m, nil
		}
		input = m.lastCmd
	} else {
		m.lastCmd = input
	}

	m = m.appendResult(echo, m.engine.Step(input))
	return m, nil
}

// appendResult adds an engine result, with trace lines when enabled.
func (m Model) appendResult(input string, result types.Result) Model {
	lines := result.Output
	if m.trace {
		lines = append(append([]string(nil), lines...), formatTrace(result)...)
	}
	return m.appendOutput(gameOutputMsg{input: input, lines: lines})
}

// appendOutput adds lines to the narrative and refreshes the viewport.
func (m Model) appendOutput(msg gameOutputMsg) Model {
	if msg.input != "" {
		m.rawLines = append(m.rawLines, rawLine{
			text: msg.input, isInput: true,
		})
	}

	for _, line := range msg.lines {
		rl := rawLine{text: line, isSystem: msg.isSystem}
		if !msg.isSystem {
			rl.kind = classifyLine(line)
		}
		m.rawLines = append(m.rawLines, rl)
	}

	// Blank line separator between turns.
	m.rawLines = append(m.rawLines, rawLine{})

	m.refreshViewport()

	return m
}

// refreshViewport re-wraps and re-styles all raw lines at the current width
// and updates the viewport content.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}

	width := m.width
	if width < 10 {
		width = 10
	}

	var styled []string
	for _, rl := range m.rawLines {
		if rl.text == "" {
			styled = append(styled, "")
			continue
		}

		switch {
		case rl.isInput:
			styled = append(styled, styledPlayerInput(wordwrap.String(rl.text, width-2)))
		case rl.isSystem:
			styled = append(styled, styledSystemMsg(wordwrap.String(rl.text, width-2)))
		default:
			styled = append(styled, renderLineKind(wordwrap.String(rl.text, width), rl.kind))
		}
	}

	m.viewport.SetContent(strings.Join(styled, "\n"))
	m.viewport.GotoBottom()
}

// renderLineKind applies the style for a given lineKind.
func renderLineKind(line string, kind lineKind) string {
	switch kind {
	case kindYouSee:
		return styledYouSee(line)
	case kindExits:
		return styleExits.Render(line)
	case kindDialogue:
		return styleDialogue.Render(line)
	case kindOption:
		return styleOption.Render(line)
	case kindCombat:
		return styleCombat.Render(line)
	case kindBanner:
		return styleBanner.Render(line)
	case kindSystem:
		return styleSystem.Render(line)
	case kindError:
		return styleError.Render(line)
	case kindTrace:
		return styleTrace.Render(line)
	default:
		return styleRoomDesc.Render(line)
	}
}

// View renders the full TUI layout: viewport + status bar + input.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}

	return m.viewport.View() + "\n" + m.renderStatusBar() + "\n" + m.input.View()
}

// handleMeta dispatches meta-commands. It returns system lines, an
// optional engine result, and whether the program should quit.
func (m *Model) handleMeta(input string) ([]string, *types.Result, bool) {
	parts := strings.Fields(input)
	cmd := parts[0]
	args := parts[1:]
	var arg string
	if len(args) > 0 {
		arg = args[0]
	}

	switch cmd {
	case "/quit", "/exit":
		return []string{"Goodbye."}, nil, true

	case "/save":
		return m.cmdSave(arg), nil, false

	case "/load":
		lines, result := m.cmdLoad(arg)
		return lines, result, false

	case "/slots":
		return m.cmdSlots(), nil, false

	case "/delete":
		return m.cmdDelete(arg), nil, false

	case "/verb":
		if arg == "" {
			r := m.engine.Cancel()
			return []string{"Verb cleared."}, &r, false
		}
		r := m.engine.SelectVerb(arg)
		return []string{"Verb: " + arg}, &r, false

	case "/click":
		var r types.Result
		switch len(args) {
		case 1:
			r = m.engine.Click("", args[0])
		case 2:
			r = m.engine.Click(args[0], args[1])
		default:
			return []string{"Usage: /click [verb] <hotspot>"}, nil, false
		}
		return nil, &r, false

	case "/item":
		if arg == "" {
			return []string{"Usage: /item <item>"}, nil, false
		}
		r := m.engine.SelectItem(arg)
		return nil, &r, false

	case "/drag":
		if len(args) != 2 {
			return []string{"Usage: /drag <item> <target>"}, nil, false
		}
		r := m.engine.DragOnto(args[0], args[1])
		return nil, &r, false

	case "/choose":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return []string{"Usage: /choose <number>"}, nil, false
		}
		r := m.engine.ChooseOption(n - 1)
		return nil, &r, false

	case "/help":
		return m.cmdHelp(), nil, false

	case "/state":
		return m.cmdState(), nil, false

	case "/trace":
		m.trace = !m.trace
		if m.trace {
			return []string{"Trace output enabled."}, nil, false
		}
		return []string{"Trace output disabled."}, nil, false

	default:
		return []string{fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd)}, nil, false
	}
}

func slotName(arg string) string {
	if arg == "" {
		return "quicksave"
	}
	return arg
}

func (m *Model) cmdSave(name string) []string {
	name = slotName(name)
	if m.store == nil {
		return []string{"Save failed: no save store configured"}
	}
	if err := m.engine.Save(m.ctx, m.store, name); err != nil {
		return []string{fmt.Sprintf("Save failed: %v", err)}
	}
	return []string{fmt.Sprintf("Game saved to %s.", name)}
}

func (m *Model) cmdLoad(name string) ([]string, *types.Result) {
	name = slotName(name)
	if m.store == nil {
		return []string{"Load failed: no save store configured"}, nil
	}
	result, err := m.engine.Load(m.ctx, m.store, name)
	if err != nil {
		if errors.Is(err, save.ErrSlotNotFound) {
			return []string{fmt.Sprintf("Load failed: no save named %s.", name)}, nil
		}
		return []string{fmt.Sprintf("Load failed: %v", err)}, nil
	}
	return []string{fmt.Sprintf("Game loaded from %s (turn %d).", name, m.engine.World.Player.TurnCount)}, &result
}

func (m *Model) cmdSlots() []string {
	if m.store == nil {
		return []string{"No save store configured."}
	}
	slots, err := m.store.List(m.ctx)
	if err != nil {
		return []string{fmt.Sprintf("Listing saves failed: %v", err)}
	}
	if len(slots) == 0 {
		return []string{"No saved games."}
	}
	lines := make([]string, 0, len(slots))
	for _, s := range slots {
		lines = append(lines, fmt.Sprintf("%-12s %s  %s  score %d, turn %d",
			s.Slot, s.SavedAt.Local().Format("2006-01-02 15:04"), s.RoomName, s.Score, s.Turn))
	}
	return lines
}

func (m *Model) cmdDelete(name string) []string {
	if name == "" {
		return []string{"Usage: /delete <slot>"}
	}
	if m.store == nil {
		return []string{"No save store configured."}
	}
	if err := m.store.Delete(m.ctx, name); err != nil {
		return []string{fmt.Sprintf("Delete failed: %v", err)}
	}
	return []string{fmt.Sprintf("Deleted %s.", name)}
}

func (m *Model) cmdHelp() []string {
	return []string{
		"System:",
		"  /save [slot]            Save game (default: quicksave)",
		"  /load [slot]            Load game (default: quicksave)",
		"  /slots                  List saved games",
		"  /delete <slot>          Delete a saved game",
		"  /verb [verb]            Select a verb for clicks (Esc clears it)",
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
		"",
		"Navigation: PgUp/PgDn to scroll, Up/Down for command history",
	}
}

func (m *Model) cmdState() []string {
	data, err := save.ExportYAML(m.engine.Envelope("state"))
	if err != nil {
		return []string{fmt.Sprintf("State dump failed: %v", err)}
	}
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func formatTrace(result types.Result) []string {
	if len(result.Events) == 0 {
		return nil
	}
	lines := []string{fmt.Sprintf("[trace] Events: %d (mode %s)", len(result.Events), result.Mode)}
	for _, e := range result.Events {
		if len(e.Data) == 0 {
			lines = append(lines, fmt.Sprintf("[trace]   %s", e.Type))
			continue
		}
		lines = append(lines, fmt.Sprintf("[trace]   %s %v", e.Type, e.Data))
	}
	return lines
}

// viewportKeyMap returns a viewport keymap with Up/Down disabled
// (we use those for input history).
func viewportKeyMap() viewport.KeyMap {
	return viewport.KeyMap{
		PageDown:     key.NewBinding(key.WithKeys("pgdown")),
		PageUp:       key.NewBinding(key.WithKeys("pgup")),
		HalfPageDown: key.NewBinding(key.WithKeys("ctrl+d")),
		HalfPageUp:   key.NewBinding(key.WithKeys("ctrl+u")),
		Up:           key.NewBinding(key.WithDisabled()),
		Down:         key.NewBinding(key.WithDisabled()),
	}
}
