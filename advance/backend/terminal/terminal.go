package terminal

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/valerio/go-advance/advance/backend"
	"github.com/valerio/go-advance/advance/backend/terminal/render"
	"github.com/valerio/go-advance/advance/debug"
	"github.com/valerio/go-advance/advance/input"
	"github.com/valerio/go-advance/advance/input/action"
	"github.com/valerio/go-advance/advance/input/event"
	"github.com/valerio/go-advance/advance/keypad"
	"github.com/valerio/go-advance/advance/video"
)

const (
	gameAreaWidth  = render.Columns
	gameAreaHeight = render.Rows
	registerHeight = 12
	minTermWidth   = gameAreaWidth + 2
	minTermHeight  = gameAreaHeight + 2
	logCapacity    = 200
)

// Terminals report key presses but no releases, so a key counts as held for
// keyTimeout after its last press or repeat.
const keyTimeout = 100 * time.Millisecond

// Backend renders frames in a terminal using tcell half-block characters.
type Backend struct {
	screen    tcell.Screen
	newScreen func() (tcell.Screen, error)
	config    backend.Config
	manager   *input.Manager
	logBuffer *render.LogBuffer
	logLevel  slog.Level

	keyStates  map[action.Action]time.Time // last press of each console button
	activeKeys map[action.Action]bool      // buttons held during the previous frame
	now        func() time.Time

	signals chan os.Signal

	currentFrame *video.FrameBuffer
}

// New creates a new terminal backend
func New() *Backend {
	return &Backend{
		newScreen: tcell.NewScreen,
		logLevel:  slog.LevelInfo,
		now:       time.Now,
	}
}

// Init initializes the terminal backend
func (t *Backend) Init(config backend.Config) error {
	t.config = config
	t.manager = config.ManagerOrNew()
	t.keyStates = make(map[action.Action]time.Time)
	t.activeKeys = make(map[action.Action]bool)

	screen, err := t.newScreen()
	if err != nil {
		return fmt.Errorf("failed to initialize terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize terminal: %w", err)
	}
	t.screen = screen

	// logs go to the side pane: stderr would garble the screen
	t.logBuffer = render.NewLogBuffer(logCapacity)
	slog.SetDefault(slog.New(render.NewLogBufferHandler(t.logBuffer, slog.LevelDebug)))

	t.manager.On(action.EmulatorSnapshot, event.Press, func() {
		debug.TakeSnapshot(t.currentFrame)
	})
	t.manager.On(action.EmulatorQuit, event.Press, t.config.Callbacks.Quit)

	t.screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	t.screen.Clear()

	t.signals = make(chan os.Signal, 1)
	signal.Notify(t.signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	go t.handleSignals(t.signals)

	slog.Info("Terminal backend initialized", "debug", config.ShowDebug)
	return nil
}

// KeyState returns the buttons held according to the input manager.
func (t *Backend) KeyState() keypad.KeyState {
	return t.manager.KeyState()
}

// Present processes pending terminal events and draws the frame.
func (t *Backend) Present(frame *video.FrameBuffer) error {
	now := t.now()
	t.currentFrame = frame

	for t.screen.HasPendingEvent() {
		switch ev := t.screen.PollEvent().(type) {
		case *tcell.EventKey:
			t.processKeyEvent(ev, now)
		case *tcell.EventResize:
			t.screen.Sync()
		}
	}
	t.updateKeys(now)

	t.render(frame)
	t.screen.Show()
	return nil
}

// Cleanup cleans up terminal resources
func (t *Backend) Cleanup() error {
	if t.signals != nil {
		signal.Stop(t.signals)
		close(t.signals)
		t.signals = nil
	}
	if t.screen != nil {
		slog.Info("Cleaning up terminal backend")
		t.screen.Fini()
	}
	return nil
}

func (t *Backend) handleSignals(signals <-chan os.Signal) {
	if _, ok := <-signals; ok {
		t.config.Callbacks.Quit()
	}
}

// keyMapping maps tcell keys to actions
var keyMapping = buildKeyMapping()

// runeMapping maps runes to actions
var runeMapping = buildRuneMapping()

// tcellKeyNames converts tcell keys to key names used in default mappings
var tcellKeyNames = map[tcell.Key]string{
	tcell.KeyEnter:      "Enter",
	tcell.KeyBackspace:  "Backspace",
	tcell.KeyBackspace2: "Backspace",
	tcell.KeyUp:         "Up",
	tcell.KeyDown:       "Down",
	tcell.KeyLeft:       "Left",
	tcell.KeyRight:      "Right",
	tcell.KeyEscape:     "Escape",
	tcell.KeyF9:         "F9",
}

func buildKeyMapping() map[tcell.Key]action.Action {
	mapping := make(map[tcell.Key]action.Action)
	for key, name := range tcellKeyNames {
		if act, ok := input.GetDefaultMapping(name); ok {
			mapping[key] = act
		}
	}
	mapping[tcell.KeyCtrlC] = action.EmulatorQuit
	return mapping
}

func buildRuneMapping() map[rune]action.Action {
	mapping := make(map[rune]action.Action)
	for name, act := range input.DefaultKeyMap {
		runes := []rune(name)
		if len(runes) == 1 {
			mapping[runes[0]] = act
		}
	}
	if act, ok := input.GetDefaultMapping("Space"); ok {
		mapping[' '] = act
	}
	return mapping
}

func (t *Backend) processKeyEvent(ev *tcell.EventKey, now time.Time) {
	act, ok := keyMapping[ev.Key()]
	if !ok && ev.Key() == tcell.KeyRune {
		act, ok = runeMapping[ev.Rune()]
	}
	if !ok {
		return
	}

	if action.GetInfo(act).Category != action.CategoryGameInput {
		slog.Debug("UI event", "action", act)
		t.manager.Trigger(act, event.Press)
		return
	}

	// a new direction replaces the previous one, as a d-pad cannot hold both
	if isDirection(act) {
		for _, dir := range []action.Action{action.DPadUp, action.DPadDown, action.DPadLeft, action.DPadRight} {
			delete(t.keyStates, dir)
		}
	}
	t.keyStates[act] = now
}

// updateKeys forwards console button changes to the input manager.
func (t *Backend) updateKeys(now time.Time) {
	held := make(map[action.Action]bool)
	for act, pressed := range t.keyStates {
		if now.Sub(pressed) >= keyTimeout {
			delete(t.keyStates, act)
			continue
		}
		held[act] = true
		if !t.activeKeys[act] {
			slog.Debug("Key press", "action", act)
			t.manager.Trigger(act, event.Press)
		}
	}

	for act := range t.activeKeys {
		if !held[act] {
			slog.Debug("Key release", "action", act)
			t.manager.Trigger(act, event.Release)
		}
	}
	t.activeKeys = held
}

func isDirection(act action.Action) bool {
	switch act {
	case action.DPadUp, action.DPadDown, action.DPadLeft, action.DPadRight:
		return true
	}
	return false
}

func (t *Backend) render(frame *video.FrameBuffer) {
	termWidth, termHeight := t.screen.Size()
	t.screen.Clear()

	if termWidth < minTermWidth || termHeight < minTermHeight {
		style := tcell.StyleDefault.Foreground(tcell.ColorRed)
		msg := fmt.Sprintf("Terminal too small! Need at least %dx%d", minTermWidth, minTermHeight)
		t.drawText(0, termHeight/2, termWidth, msg, style)
		return
	}

	dividerX := gameAreaWidth + 1
	panelX := dividerX + 2
	panelWidth := termWidth - panelX

	t.drawBorders(termWidth, termHeight, dividerX)
	t.drawFrame(frame)

	logsY := 1
	if t.config.ShowDebug && t.config.DebugProvider != nil {
		t.drawDebug(panelX, 1, panelWidth)
		logsY = registerHeight + 2
	}
	t.drawLogs(panelX, logsY, panelWidth, termHeight-1)
}

func (t *Backend) drawFrame(frame *video.FrameBuffer) {
	for y := 0; y < gameAreaHeight; y++ {
		for x := 0; x < gameAreaWidth; x++ {
			glyph, style := render.HalfBlock(render.Cell(frame, x, y))
			t.screen.SetContent(x+1, y+1, glyph, nil, style)
		}
	}
}

func (t *Backend) drawBorders(termWidth, termHeight, dividerX int) {
	borderStyle := tcell.StyleDefault.Foreground(tcell.ColorWhite)
	titleStyle := tcell.StyleDefault.Foreground(tcell.ColorYellow)

	for y := 0; y < termHeight-1; y++ {
		t.screen.SetContent(dividerX, y, '│', nil, borderStyle)
	}

	title := " " + t.config.Title + " "
	if t.config.Title == "" {
		title = " Game Boy Advance "
	}
	t.drawText(1, 0, dividerX-1, title, titleStyle)

	if t.config.ShowDebug && t.config.DebugProvider != nil {
		t.drawText(dividerX+2, 0, termWidth-dividerX-2, " CPU ", titleStyle)
		for x := dividerX + 1; x < termWidth; x++ {
			t.screen.SetContent(x, registerHeight+1, '─', nil, borderStyle)
		}
		t.screen.SetContent(dividerX, registerHeight+1, '├', nil, borderStyle)
	}

	help := " SPACE=pause F=frame F9=snapshot Q=quit "
	t.drawText(0, termHeight-1, termWidth, help, borderStyle)
}

func (t *Backend) drawDebug(x, y, width int) {
	data := t.config.DebugProvider.ExtractDebugData()
	if data == nil || data.CPU == nil {
		return
	}
	style := tcell.StyleDefault.Foreground(tcell.ColorWhite)

	lines := data.CPU.FormatRegisters()
	lines = append(lines,
		fmt.Sprintf("IE %04X IF %04X IME %t halt=%s", data.InterruptEnable, data.InterruptFlags, data.MasterEnable, data.Halt),
		fmt.Sprintf("line %d frame %d %s", data.Line, data.Frame, data.DebuggerState),
	)
	for _, line := range data.Disassembly {
		if len(lines) >= registerHeight {
			break
		}
		// one instruction of context before the program counter
		if line.Address+4 < data.CPU.Registers[15] {
			continue
		}
		marker := ' '
		if line.Address == data.CPU.Registers[15] {
			marker = '>'
		}
		lines = append(lines, fmt.Sprintf("%c %08X  %s", marker, line.Address, line.Instruction))
	}

	for i, line := range lines {
		if i >= registerHeight {
			break
		}
		t.drawText(x, y+i, width, line, style)
	}
}

func (t *Backend) drawLogs(x, y, width, bottom int) {
	rows := bottom - y
	if rows <= 0 {
		return
	}

	entries := t.logBuffer.GetRecent(0)
	row := 0
	for _, entry := range entries {
		if row >= rows {
			break
		}
		if entry.Level < t.logLevel {
			continue
		}

		style := tcell.StyleDefault.Foreground(tcell.ColorWhite)
		switch {
		case entry.Level >= slog.LevelError:
			style = style.Foreground(tcell.ColorRed)
		case entry.Level >= slog.LevelWarn:
			style = style.Foreground(tcell.ColorYellow)
		case entry.Level < slog.LevelInfo:
			style = style.Foreground(tcell.ColorGray)
		}
		t.drawText(x, y+row, width, render.FormatLogEntry(entry), style)
		row++
	}
}

func (t *Backend) drawText(x, y, width int, text string, style tcell.Style) {
	i := 0
	for _, ch := range text {
		if i >= width {
			return
		}
		t.screen.SetContent(x+i, y, ch, nil, style)
		i++
	}
}
