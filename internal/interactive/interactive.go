package interactive

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/gdamore/tcell/v2/encoding"
	"github.com/mattn/go-runewidth"
	"github.com/rs/zerolog"
	"go2tv.app/castgrid/devices"
	"go2tv.app/castgrid/roster"
)

// Poster runs f on the goroutine that owns the roster.
type Poster interface {
	Post(f func())
}

// PickerScreen is the terminal device picker. It renders the roster and
// forwards key presses to it. Rendering and roster calls happen on the
// Poster's goroutine.
type PickerScreen struct {
	Current tcell.Screen
	Picker  *roster.Picker

	poster      Poster
	exitCTXfunc context.CancelFunc

	mu     sync.RWMutex
	ready  bool
	cursor int
	status string

	Logger      zerolog.Logger
	LogOutput   io.Writer
	initLogOnce sync.Once
}

var (
	_ roster.ViewSink = (*PickerScreen)(nil)
	_ roster.Delegate = (*PickerScreen)(nil)
)

// InitPickerScreen creates a new terminal picker screen.
func InitPickerScreen(poster Poster, ctxCancel context.CancelFunc) (*PickerScreen, error) {
	s, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("interactive: %w", err)
	}

	return &PickerScreen{
		Current:     s,
		poster:      poster,
		exitCTXfunc: ctxCancel,
		status:      "Not connected",
		Logger:      zerolog.Nop(),
	}, nil
}

// Log returns the zerolog logger, initializing it lazily if LogOutput is set.
func (p *PickerScreen) Log() *zerolog.Logger {
	if p.LogOutput != nil {
		p.initLogOnce.Do(func() {
			p.Logger = zerolog.New(p.LogOutput).With().Timestamp().Str("Component", "interactive").Logger()
		})
	}
	return &p.Logger
}

func (p *PickerScreen) emitStr(x, y int, style tcell.Style, str string) {
	s := p.Current
	for _, c := range str {
		var comb []rune
		w := runewidth.RuneWidth(c)
		if w == 0 {
			comb = []rune{c}
			c = ' '
			w = 1
		}
		s.SetContent(x, y, c, comb, style)
		x += w
	}
}

// InterInit initializes the terminal and forwards its events until ctx
// is done. It returns once the screen is finalized.
func (p *PickerScreen) InterInit(ctx context.Context) error {
	encoding.Register()
	s := p.Current
	if err := s.Init(); err != nil {
		return fmt.Errorf("interactive: %w", err)
	}

	defStyle := tcell.StyleDefault.
		Background(tcell.ColorBlack).
		Foreground(tcell.ColorWhite)
	s.SetStyle(defStyle)

	p.mu.Lock()
	p.ready = true
	p.mu.Unlock()
	p.poster.Post(p.render)

	go func() {
		<-ctx.Done()
		s.Fini()
	}()

	for {
		ev := s.PollEvent()
		if ev == nil {
			return nil
		}
		p.poster.Post(func() { p.HandleEvent(ev) })
	}
}

// HandleEvent applies a terminal event.
func (p *PickerScreen) HandleEvent(ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		p.Current.Sync()
		p.render()
	case *tcell.EventKey:
		p.HandleKeyEvent(ev)
	}
}

// HandleKeyEvent moves the cursor, selects the row under it or exits.
func (p *PickerScreen) HandleKeyEvent(ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEscape:
		p.Fini()
		return
	case tcell.KeyUp:
		p.moveCursor(-1)
	case tcell.KeyDown:
		p.moveCursor(1)
	case tcell.KeyEnter:
		p.selectCursor()
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			p.Fini()
			return
		case 'k':
			p.moveCursor(-1)
		case 'j':
			p.moveCursor(1)
		case ' ':
			p.selectCursor()
		}
	}

	p.render()
}

func (p *PickerScreen) moveCursor(delta int) {
	p.mu.Lock()
	p.cursor = clampCursor(p.cursor+delta, p.Picker.Len())
	p.mu.Unlock()
}

func (p *PickerScreen) selectCursor() {
	i := p.Cursor()
	if err := p.Picker.SelectRow(i); err != nil {
		p.Log().Debug().Str("Method", "selectCursor").Int("Index", i).Err(err).Msg("select row")
	}
}

// Cursor returns the highlighted row.
func (p *PickerScreen) Cursor() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cursor
}

func (p *PickerScreen) setStatus(s string) {
	p.mu.Lock()
	p.status = s
	p.mu.Unlock()
}

func (p *PickerScreen) getStatus() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

func (p *PickerScreen) RowsInserted(rows []int) {
	p.mu.Lock()
	for _, r := range rows {
		if r <= p.cursor && p.Picker.Len() > 1 {
			p.cursor++
		}
	}
	p.cursor = clampCursor(p.cursor, p.Picker.Len())
	p.mu.Unlock()
	p.render()
}

func (p *PickerScreen) RowsReloaded([]int) {
	p.render()
}

func (p *PickerScreen) RowsDeleted(rows []int) {
	p.mu.Lock()
	for _, r := range rows {
		if r < p.cursor {
			p.cursor--
		}
	}
	p.cursor = clampCursor(p.cursor, p.Picker.Len())
	p.mu.Unlock()
	p.render()
}

func (p *PickerScreen) FullRefresh() {
	p.mu.Lock()
	p.cursor = clampCursor(p.cursor, p.Picker.Len())
	p.mu.Unlock()
	p.render()
}

func (p *PickerScreen) DidConnectToDevice(d devices.Device) {
	p.setStatus(p.Picker.ConnectedText(d))
	p.render()
}

func (p *PickerScreen) DidFailToConnect(err error) {
	p.setStatus("Error: " + err.Error())
	p.render()
}

func (p *PickerScreen) render() {
	s := p.Current
	p.mu.RLock()
	ready := p.ready
	p.mu.RUnlock()
	if s == nil || p.Picker == nil || !ready {
		return
	}

	w, h := s.Size()
	boldStyle := tcell.StyleDefault.
		Background(tcell.ColorBlack).
		Foreground(tcell.ColorWhite).Bold(true)
	cursorStyle := tcell.StyleDefault.
		Background(tcell.ColorWhite).
		Foreground(tcell.ColorBlack)

	s.Clear()

	p.emitStr(1, 1, tcell.StyleDefault, "Press ESC to exit. Up/Down to move, Enter to connect.")

	if msg := p.Picker.EmptyMessage(); msg != "" {
		p.emitStr(centerX(w, msg), h/2, boldStyle, msg)
	} else {
		p.emitStr(2, 3, boldStyle, p.Picker.SectionTitle())
		cursor := p.Cursor()
		for i := range p.Picker.Len() {
			y := 5 + i
			if y >= h-2 {
				break
			}
			row, err := p.Picker.Row(i)
			if err != nil {
				continue
			}
			style := tcell.StyleDefault
			if i == cursor {
				style = cursorStyle
			}
			p.emitStr(2, y, style, rowText(row, w-4))
		}
	}

	status := p.getStatus()
	p.emitStr(centerX(w, status), h-1, boldStyle, status)
	s.Show()
}

// Fini closes the screen and cancels the session context.
func (p *PickerScreen) Fini() {
	p.Current.Fini()
	if p.exitCTXfunc != nil {
		p.exitCTXfunc()
	}
}

func clampCursor(c, n int) int {
	switch {
	case n == 0 || c < 0:
		return 0
	case c >= n:
		return n - 1
	}
	return c
}

// rowText renders a row into at most width terminal cells.
func rowText(row roster.RowView, width int) string {
	mark := "[ ] "
	if row.Checked {
		mark = "[x] "
	}

	name := row.Name
	if row.Device.IsAudioOnly {
		name += " (audio)"
	}
	name += " - " + row.Device.Type

	return runewidth.Truncate(mark+name, width, "...")
}

func centerX(w int, s string) int {
	x := w/2 - runewidth.StringWidth(s)/2
	if x < 0 {
		return 0
	}
	return x
}
