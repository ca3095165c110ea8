// Package collection backs a sectioned poster grid: cell kinds, empty and
// error backgrounds, per-section insets and page-by-page loading.
package collection

import (
	"errors"
	"fmt"

	"go2tv.app/castgrid/gridsizer"
)

var (
	ErrUnknownItem = errors.New("cellIdentifier: unknown item kind")
)

// Kind identifies what an item renders as.
type Kind int

const (
	KindMovie Kind = iota
	KindShow
	KindPerson
	KindDownload
)

func (k Kind) String() string {
	switch k {
	case KindMovie:
		return "movie"
	case KindShow:
		return "show"
	case KindPerson:
		return "person"
	case KindDownload:
		return "download"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Item is anything the grid can show.
type Item interface {
	Kind() Kind
	Title() string
}

type Movie struct {
	Name string
	Year int
}

func (m Movie) Kind() Kind { return KindMovie }
func (m Movie) Title() string { return m.Name }

type Show struct {
	Name    string
	Seasons int
}

func (s Show) Kind() Kind { return KindShow }
func (s Show) Title() string { return s.Name }

type Person struct {
	Name string
}

func (p Person) Kind() Kind { return KindPerson }
func (p Person) Title() string { return p.Name }

type Download struct {
	Name     string
	Progress float64
}

func (d Download) Kind() Kind { return KindDownload }
func (d Download) Title() string { return d.Name }

// CellIdentifier returns the reuse identifier for item. Downloads only
// have a cell on the TV idiom.
func CellIdentifier(item Item, idiom gridsizer.Idiom) (string, error) {
	if item == nil {
		return "", ErrUnknownItem
	}

	switch item.Kind() {
	case KindMovie:
		return "movieCell", nil
	case KindShow:
		return "showCell", nil
	case KindPerson:
		return "personCell", nil
	case KindDownload:
		if idiom == gridsizer.TV {
			return "downloadCell", nil
		}
	}

	return "", fmt.Errorf("%w: %s on %s", ErrUnknownItem, item.Kind(), idiom)
}

// Background is what the grid shows behind its cells.
type Background int

const (
	BackgroundNone Background = iota
	BackgroundError
	BackgroundLoading
	BackgroundEmpty
)

func (b Background) String() string {
	switch b {
	case BackgroundError:
		return "error"
	case BackgroundLoading:
		return "loading"
	case BackgroundEmpty:
		return "empty"
	}
	return "none"
}

const headerHeight = 40

// Source holds the sections of a grid and its paging state. The zero
// value is an empty, non-paginated grid.
type Source struct {
	Sections    [][]Item
	Err         error
	Loading     bool
	Paginated   bool
	HasNextPage bool
	CurrentPage int

	// InsetFunc overrides the default section inset when set.
	InsetFunc func(section int, idiom gridsizer.Idiom) gridsizer.Insets
	// MinItemSize overrides the idiom's minimum item size when non-zero.
	MinItemSize gridsizer.Size
}

// NewSource returns a paginated source starting at page 1.
func NewSource(sections ...[]Item) *Source {
	return &Source{
		Sections:    sections,
		Paginated:   true,
		HasNextPage: true,
		CurrentPage: 1,
	}
}

func (s *Source) hasItems() bool {
	for _, sec := range s.Sections {
		if len(sec) > 0 {
			return true
		}
	}
	return false
}

// NumberOfSections returns the section count, or 1 when nothing is
// loaded so the background has somewhere to show. Loaded items clear a
// previous error.
func (s *Source) NumberOfSections() int {
	if s.hasItems() {
		s.Err = nil
		return len(s.Sections)
	}
	return 1
}

// Background picks the view shown behind the cells.
func (s *Source) Background() Background {
	switch {
	case s.hasItems():
		return BackgroundNone
	case s.Err != nil:
		return BackgroundError
	case s.Loading:
		return BackgroundLoading
	}
	return BackgroundEmpty
}

// NumberOfItems is 0 for sections out of range.
func (s *Source) NumberOfItems(section int) int {
	if section < 0 || section >= len(s.Sections) {
		return 0
	}
	return len(s.Sections[section])
}

// ItemAt returns the item at section and index.
func (s *Source) ItemAt(section, index int) (Item, bool) {
	if index < 0 || index >= s.NumberOfItems(section) {
		return nil, false
	}
	return s.Sections[section][index], true
}

// Inset is zero for empty sections.
func (s *Source) Inset(section int, idiom gridsizer.Idiom) gridsizer.Insets {
	if s.NumberOfItems(section) == 0 {
		return gridsizer.Insets{}
	}
	if s.InsetFunc != nil {
		return s.InsetFunc(section, idiom)
	}
	return gridsizer.DefaultSectionInset(idiom)
}

// HeaderHeight is 40 for titled non-empty sections.
func (s *Source) HeaderHeight(section int, hasTitle bool) float64 {
	if !hasTitle || s.NumberOfItems(section) == 0 {
		return 0
	}
	return headerHeight
}

// ItemSize lays out section 0's geometry for a container width.
func (s *Source) ItemSize(containerWidth float64, idiom gridsizer.Idiom, spacing float64) (gridsizer.GridResult, error) {
	minSize := s.MinItemSize
	if minSize.Width == 0 && minSize.Height == 0 {
		minSize = gridsizer.DefaultMinItemSize(idiom)
	}

	inset := gridsizer.DefaultSectionInset(idiom)
	if s.InsetFunc != nil {
		inset = s.InsetFunc(0, idiom)
	}

	return gridsizer.ComputeLayout(gridsizer.GridConstraint{
		ContainerWidth: containerWidth,
		MinCellWidth:   minSize.Width,
		MinCellHeight:  minSize.Height,
		SectionInset:   inset.Horizontal(),
		ItemSpacing:    spacing,
	})
}

func (s *Source) itemCount() int {
	n := 0
	for _, sec := range s.Sections {
		n += len(sec)
	}
	return n
}

// NextPage reports the page to fetch once the last item becomes visible.
// visibleIndex counts across all sections. A true result marks the source
// as loading until PageLoaded is called.
func (s *Source) NextPage(visibleIndex int) (int, bool) {
	if !s.Paginated || !s.HasNextPage || s.Loading {
		return 0, false
	}
	if n := s.itemCount(); n == 0 || visibleIndex != n-1 {
		return 0, false
	}

	s.Loading = true
	return s.CurrentPage + 1, true
}

// PageLoaded appends a fetched page to the last section.
func (s *Source) PageLoaded(items []Item, hasNext bool) {
	if len(s.Sections) == 0 {
		s.Sections = append(s.Sections, nil)
	}
	last := len(s.Sections) - 1
	s.Sections[last] = append(s.Sections[last], items...)

	s.CurrentPage++
	s.HasNextPage = hasNext
	s.Loading = false
}

// PageFailed records a fetch error and allows a retry.
func (s *Source) PageFailed(err error) {
	s.Err = err
	s.Loading = false
}
