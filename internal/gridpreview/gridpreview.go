// Package gridpreview renders the adaptive poster grid in a terminal and
// recomputes it whenever the terminal is resized.
package gridpreview

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go2tv.app/castgrid/collection"
	"go2tv.app/castgrid/gridsizer"
)

// PointsPerCell converts terminal columns to layout points.
const PointsPerCell = 8

const (
	minWidthStep = 10
	// header and help lines around the grid
	chromeLines = 4
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6AC1"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF4444")).
			Bold(true)

	cellStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7EC8E3")).
			Align(lipgloss.Center, lipgloss.Center)
)

// PageFunc fetches one page of a paginated source. It runs outside the
// update loop.
type PageFunc func(page int) (items []collection.Item, hasNext bool, err error)

type pageMsg struct {
	page    int
	items   []collection.Item
	hasNext bool
	err     error
}

// Model is the bubbletea model of the preview.
type Model struct {
	Source  *collection.Source
	Idiom   gridsizer.Idiom
	MinCell gridsizer.Size
	Spacing float64
	// Pages loads the next page once the last row is on screen. Nil
	// disables pagination.
	Pages PageFunc

	width  int
	height int
	offset  int
	result  gridsizer.GridResult
	err     error
	pageErr error
}

func New(src *collection.Source, idiom gridsizer.Idiom, minCell gridsizer.Size, spacing float64) Model {
	src.MinItemSize = minCell
	return Model{
		Source:  src,
		Idiom:   idiom,
		MinCell: minCell,
		Spacing: spacing,
	}
}

// Result is the layout of the last resize.
func (m Model) Result() gridsizer.GridResult {
	return m.result
}

func (m Model) Init() tea.Cmd {
	return tea.EnterAltScreen
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m = m.relayout()
		return m, m.loadMore()

	case pageMsg:
		if msg.err != nil {
			m.pageErr = fmt.Errorf("page %d: %w", msg.page, msg.err)
			m.Source.PageFailed(m.pageErr)
			return m.relayout(), nil
		}
		m.pageErr = nil
		m.Source.PageLoaded(msg.items, msg.hasNext)
		m = m.relayout()
		return m, m.loadMore()

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "t":
			if m.Idiom == gridsizer.TV {
				m.Idiom = gridsizer.Phone
			} else {
				m.Idiom = gridsizer.TV
			}
			m.MinCell = gridsizer.DefaultMinItemSize(m.Idiom)
			m.Source.MinItemSize = m.MinCell
		case "+":
			m.MinCell.Width += minWidthStep
			m.Source.MinItemSize = m.MinCell
		case "-":
			if m.MinCell.Width > minWidthStep {
				m.MinCell.Width -= minWidthStep
				m.Source.MinItemSize = m.MinCell
			}
		case "j", "down":
			m.offset++
		case "k", "up":
			m.offset--
		default:
			return m, nil
		}
		m = m.relayout()
		return m, m.loadMore()
	}

	return m, nil
}

func (m Model) relayout() Model {
	m.result, m.err = m.Source.ItemSize(float64(m.width*PointsPerCell), m.Idiom, m.Spacing)
	m.offset = max(min(m.offset, m.rowCount()-m.visibleRows()), 0)
	return m
}

// loadMore asks the source for the next page when the last row is on
// screen.
func (m Model) loadMore() tea.Cmd {
	if m.Pages == nil || m.err != nil || m.offset+m.visibleRows() < m.rowCount() {
		return nil
	}

	page, ok := m.Source.NextPage(m.itemCount() - 1)
	if !ok {
		return nil
	}

	fetch := m.Pages
	return func() tea.Msg {
		items, hasNext, err := fetch(page)
		return pageMsg{page: page, items: items, hasNext: hasNext, err: err}
	}
}

func (m Model) itemCount() int {
	n := 0
	for section := range m.Source.NumberOfSections() {
		n += m.Source.NumberOfItems(section)
	}
	return n
}

// titles lists the items the idiom has cells for.
func (m Model) titles() []string {
	var titles []string
	for section := range m.Source.NumberOfSections() {
		for i := range m.Source.NumberOfItems(section) {
			item, _ := m.Source.ItemAt(section, i)
			if _, err := collection.CellIdentifier(item, m.Idiom); err != nil {
				continue
			}
			titles = append(titles, item.Title())
		}
	}
	return titles
}

func (m Model) rowCount() int {
	return gridsizer.Rows(len(m.titles()), max(m.result.Columns, 1))
}

// visibleRows is how many rows of bordered cells fit the terminal.
func (m Model) visibleRows() int {
	_, h := cellBox(m.result, m.Spacing)
	return max((m.height-chromeLines)/(h+2), 1)
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(m.header()))
	b.WriteString("\n\n")

	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render(m.err.Error()))
	case m.Source.Background() != collection.BackgroundNone:
		b.WriteString(backgroundText(m.Source))
	default:
		b.WriteString(m.grid())
	}

	b.WriteString("\n\n")
	help := "t: idiom  +/-: min width  j/k: scroll  q: quit"
	if m.Source.Loading {
		help = fmt.Sprintf("loading page %d...  %s", m.Source.CurrentPage+1, help)
	}
	b.WriteString(helpStyle.Render(help))
	if m.pageErr != nil {
		b.WriteString("  " + errorStyle.Render(m.pageErr.Error()))
	}
	return b.String()
}

func (m Model) header() string {
	return fmt.Sprintf("%s  %d columns  %.1fx%.1f (min %.0fx%.0f)",
		m.Idiom, m.result.Columns, m.result.CellWidth, m.result.CellHeight, m.MinCell.Width, m.MinCell.Height)
}

// cellBox converts a point size to the inner size of a bordered box.
func cellBox(r gridsizer.GridResult, spacing float64) (w, h int) {
	w = int(r.CellWidth+spacing)/PointsPerCell - 2
	h = int(r.CellHeight)/(PointsPerCell*2) - 2
	return max(w, 1), max(h, 1)
}

func (m Model) grid() string {
	w, h := cellBox(m.result, m.Spacing)
	style := cellStyle.Width(w).Height(h)

	titles := m.titles()
	columns := max(m.result.Columns, 1)
	first := m.offset * columns
	last := min((m.offset+m.visibleRows())*columns, len(titles))

	var rows []string
	for start := first; start < last; start += columns {
		end := min(start+columns, last)
		cells := make([]string, 0, end-start)
		for _, t := range titles[start:end] {
			cells = append(cells, style.Render(t))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}

	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func backgroundText(src *collection.Source) string {
	switch src.Background() {
	case collection.BackgroundError:
		return errorStyle.Render("Error: " + src.Err.Error())
	case collection.BackgroundLoading:
		return "Loading..."
	}
	return "Nothing to show"
}

// Run starts the preview program and blocks until it quits.
func Run(m Model) error {
	_, err := tea.NewProgram(m).Run()
	return err
}
