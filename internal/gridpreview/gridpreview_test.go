package gridpreview

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"go2tv.app/castgrid/collection"
	"go2tv.app/castgrid/gridsizer"
)

func demoSource() *collection.Source {
	return collection.NewSource([]collection.Item{
		collection.Movie{Name: "Heat"},
		collection.Show{Name: "Lost"},
		collection.Person{Name: "Al Pacino"},
		collection.Download{Name: "Ronin"},
	})
}

func resize(t *testing.T, m Model, w, h int) Model {
	t.Helper()
	next, cmd := m.Update(tea.WindowSizeMsg{Width: w, Height: h})
	if cmd != nil {
		t.Fatalf("Update(WindowSizeMsg) returned a command")
	}
	return next.(Model)
}

func key(m Model, s string) (Model, tea.Cmd) {
	var msg tea.KeyMsg
	switch s {
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func TestResizeRecomputesLayout(t *testing.T) {
	m := New(demoSource(), gridsizer.Phone, gridsizer.DefaultMinItemSize(gridsizer.Phone), 15)

	// 125 columns is 1000 points: 8 phone columns.
	m = resize(t, m, 125, 40)
	if got := m.Result(); got.Columns != 8 || got.CellWidth != 108.125 {
		t.Fatalf("Result() = %+v, want 8 columns of 108.125", got)
	}

	m = resize(t, m, 40, 40)
	if got := m.Result(); got.Columns != 2 {
		t.Fatalf("Result() at 320 points = %+v, want 2 columns", got)
	}
}

func TestKeysChangeLayout(t *testing.T) {
	m := New(demoSource(), gridsizer.Phone, gridsizer.DefaultMinItemSize(gridsizer.Phone), 15)
	m = resize(t, m, 125, 40)

	m, _ = key(m, "t")
	if m.Idiom != gridsizer.TV || m.MinCell != gridsizer.DefaultMinItemSize(gridsizer.TV) {
		t.Fatalf("after t idiom=%v min=%+v, want tv defaults", m.Idiom, m.MinCell)
	}
	if got := m.Result(); got.Columns != 3 {
		t.Fatalf("tv Result() = %+v, want 3 columns", got)
	}

	before := m.MinCell.Width
	m, _ = key(m, "+")
	if m.MinCell.Width != before+minWidthStep || m.Source.MinItemSize != m.MinCell {
		t.Fatalf("after + min=%+v source=%+v", m.MinCell, m.Source.MinItemSize)
	}
	m, _ = key(m, "-")
	if m.MinCell.Width != before {
		t.Fatalf("after - min width = %v, want %v", m.MinCell.Width, before)
	}

	if _, cmd := key(m, "q"); cmd == nil {
		t.Fatalf("q did not return a quit command")
	}
	if _, cmd := key(m, "esc"); cmd == nil {
		t.Fatalf("esc did not return a quit command")
	}
}

func TestMinWidthNeverReachesZero(t *testing.T) {
	m := New(demoSource(), gridsizer.Phone, gridsizer.Size{Width: minWidthStep, Height: 20}, 0)
	m = resize(t, m, 50, 20)

	m, _ = key(m, "-")
	if m.MinCell.Width != minWidthStep {
		t.Fatalf("min width = %v, want %v", m.MinCell.Width, minWidthStep)
	}
}

func TestViewShowsItems(t *testing.T) {
	m := New(demoSource(), gridsizer.Phone, gridsizer.DefaultMinItemSize(gridsizer.Phone), 15)
	m = resize(t, m, 125, 40)

	view := m.View()
	for _, want := range []string{"phone", "8 columns", "Heat", "Lost"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
	if strings.Contains(view, "Ronin") {
		t.Errorf("View() shows a download on the phone idiom")
	}

	// tv cells are tall enough that only one row fits, the download is on
	// the second.
	m, _ = key(m, "t")
	if strings.Contains(m.View(), "Ronin") {
		t.Errorf("View() on tv shows the second row before scrolling")
	}
	m, _ = key(m, "j")
	if !strings.Contains(m.View(), "Ronin") {
		t.Errorf("View() on tv misses the download after scrolling")
	}
}

func movies(prefix string, n int) []collection.Item {
	out := make([]collection.Item, n)
	for i := range out {
		out[i] = collection.Movie{Name: fmt.Sprintf("%s %d", prefix, i)}
	}
	return out
}

type pageRecorder struct {
	requested []int
	items     []collection.Item
	hasNext   bool
	err       error
}

func (p *pageRecorder) fetch(page int) ([]collection.Item, bool, error) {
	p.requested = append(p.requested, page)
	return p.items, p.hasNext, p.err
}

func update(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func TestLastRowLoadsNextPage(t *testing.T) {
	pages := &pageRecorder{items: movies("Page two", 2)}
	m := New(collection.NewSource(movies("Movie", 4)), gridsizer.Phone, gridsizer.DefaultMinItemSize(gridsizer.Phone), 15)
	m.Pages = pages.fetch

	m, cmd := update(m, tea.WindowSizeMsg{Width: 125, Height: 40})
	if cmd == nil {
		t.Fatalf("resize with the last row on screen returned no command")
	}
	if !m.Source.Loading || !strings.Contains(m.View(), "loading page 2") {
		t.Fatalf("source not loading after the last row showed: %q", m.View())
	}

	m, cmd = update(m, cmd())
	if !reflect.DeepEqual(pages.requested, []int{2}) {
		t.Fatalf("requested pages = %v, want [2]", pages.requested)
	}
	if cmd != nil {
		t.Fatalf("loaded the last page and asked for another")
	}
	if m.Source.CurrentPage != 2 || m.Source.Loading || m.Source.NumberOfItems(0) != 6 {
		t.Fatalf("after load page=%d loading=%v items=%d", m.Source.CurrentPage, m.Source.Loading, m.Source.NumberOfItems(0))
	}
	if !strings.Contains(m.View(), "Page two 1") {
		t.Fatalf("View() misses the loaded page")
	}
}

func TestFailedPageIsRetried(t *testing.T) {
	pages := &pageRecorder{err: errors.New("offline")}
	m := New(collection.NewSource(movies("Movie", 4)), gridsizer.Phone, gridsizer.DefaultMinItemSize(gridsizer.Phone), 15)
	m.Pages = pages.fetch

	m, cmd := update(m, tea.WindowSizeMsg{Width: 125, Height: 40})
	m, cmd = update(m, cmd())
	if cmd != nil {
		t.Fatalf("failed page chained another load")
	}
	if m.Source.Loading || m.Source.CurrentPage != 1 {
		t.Fatalf("after failure loading=%v page=%d, want false and 1", m.Source.Loading, m.Source.CurrentPage)
	}
	if view := m.View(); !strings.Contains(view, "page 2: offline") || !strings.Contains(view, "Movie 3") {
		t.Fatalf("View() after failure = %q", view)
	}

	pages.err = nil
	pages.items = movies("Retry", 1)
	m, cmd = key(m, "j")
	if cmd == nil {
		t.Fatalf("scrolling after a failure did not retry")
	}
	m, _ = update(m, cmd())
	if !reflect.DeepEqual(pages.requested, []int{2, 2}) || m.Source.CurrentPage != 2 {
		t.Fatalf("requested = %v page = %d, want [2 2] and 2", pages.requested, m.Source.CurrentPage)
	}
	if strings.Contains(m.View(), "offline") {
		t.Fatalf("View() still shows the old failure")
	}
}

func TestScrollReachesLastRowBeforeLoading(t *testing.T) {
	pages := &pageRecorder{hasNext: true}
	m := New(collection.NewSource(movies("Movie", 30)), gridsizer.Phone, gridsizer.DefaultMinItemSize(gridsizer.Phone), 15)
	m.Pages = pages.fetch

	// 8 columns, 4 rows, one row on screen.
	m, cmd := update(m, tea.WindowSizeMsg{Width: 125, Height: 15})
	if cmd != nil {
		t.Fatalf("resize on the first row returned a command")
	}

	for range 2 {
		if m, cmd = key(m, "j"); cmd != nil {
			t.Fatalf("scrolling to row %d returned a command", m.offset)
		}
	}

	m, cmd = key(m, "j")
	if cmd == nil || m.offset != 3 {
		t.Fatalf("last row offset=%d load=%v, want 3 and a load", m.offset, cmd != nil)
	}

	m, _ = key(m, "j")
	if m.offset != 3 {
		t.Fatalf("offset = %d past the last row, want 3", m.offset)
	}
	if !strings.Contains(m.View(), "Movie 29") || strings.Contains(m.View(), "Movie 0") {
		t.Fatalf("View() at the last row = %q", m.View())
	}
}

func TestViewBackgrounds(t *testing.T) {
	src := collection.NewSource()
	m := resize(t, New(src, gridsizer.Phone, gridsizer.DefaultMinItemSize(gridsizer.Phone), 15), 100, 30)
	if !strings.Contains(m.View(), "Nothing to show") {
		t.Fatalf("empty View() = %q", m.View())
	}

	src.Err = errors.New("offline")
	if !strings.Contains(m.View(), "offline") {
		t.Fatalf("error View() = %q", m.View())
	}
}

func TestCellBox(t *testing.T) {
	w, h := cellBox(gridsizer.GridResult{CellWidth: 108.125, CellHeight: 185.2}, 15)
	if w != 13 || h != 9 {
		t.Fatalf("cellBox() = %d, %d, want 13, 9", w, h)
	}

	w, h = cellBox(gridsizer.GridResult{}, 0)
	if w != 1 || h != 1 {
		t.Fatalf("cellBox(zero) = %d, %d, want 1, 1", w, h)
	}
}
