package collection

import (
	"errors"
	"testing"

	"go2tv.app/castgrid/gridsizer"
)

type unknownItem struct{}

func (unknownItem) Kind() Kind { return Kind(42) }
func (unknownItem) Title() string { return "?" }

func TestCellIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		item    Item
		idiom   gridsizer.Idiom
		want    string
		wantErr bool
	}{
		{name: "movie", item: Movie{Name: "Heat"}, want: "movieCell"},
		{name: "show", item: Show{Name: "Lost"}, want: "showCell"},
		{name: "person", item: Person{Name: "Al Pacino"}, want: "personCell"},
		{name: "download on tv", item: Download{Name: "Heat"}, idiom: gridsizer.TV, want: "downloadCell"},
		{name: "download on phone", item: Download{Name: "Heat"}, idiom: gridsizer.Phone, wantErr: true},
		{name: "unknown", item: unknownItem{}, wantErr: true},
		{name: "nil", item: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CellIdentifier(tt.item, tt.idiom)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownItem) {
					t.Fatalf("CellIdentifier() err = %v, want %v", err, ErrUnknownItem)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("CellIdentifier() = %q, %v, want %q", got, err, tt.want)
			}
		})
	}
}

func TestSectionsAndBackground(t *testing.T) {
	fetchErr := errors.New("offline")

	tests := []struct {
		name         string
		src          Source
		wantSections int
		wantBG       Background
		wantErr      bool
	}{
		{name: "empty", src: Source{}, wantSections: 1, wantBG: BackgroundEmpty},
		{name: "loading", src: Source{Loading: true}, wantSections: 1, wantBG: BackgroundLoading},
		{name: "error beats loading", src: Source{Loading: true, Err: fetchErr}, wantSections: 1, wantBG: BackgroundError, wantErr: true},
		{name: "empty sections", src: Source{Sections: [][]Item{{}, {}}}, wantSections: 1, wantBG: BackgroundEmpty},
		{
			name:         "items clear error",
			src:          Source{Sections: [][]Item{{Movie{Name: "Heat"}}, {}}, Err: fetchErr},
			wantSections: 2,
			wantBG:       BackgroundNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := tt.src
			if got := src.NumberOfSections(); got != tt.wantSections {
				t.Fatalf("NumberOfSections() = %d, want %d", got, tt.wantSections)
			}
			if got := src.Background(); got != tt.wantBG {
				t.Fatalf("Background() = %v, want %v", got, tt.wantBG)
			}
			if (src.Err != nil) != tt.wantErr {
				t.Fatalf("Err = %v, wantErr %v", src.Err, tt.wantErr)
			}
		})
	}
}

func TestNumberOfItemsAndItemAt(t *testing.T) {
	src := NewSource([]Item{Movie{Name: "Heat"}, Movie{Name: "Ronin"}}, []Item{Person{Name: "De Niro"}})

	for section, want := range map[int]int{-1: 0, 0: 2, 1: 1, 2: 0} {
		if got := src.NumberOfItems(section); got != want {
			t.Errorf("NumberOfItems(%d) = %d, want %d", section, got, want)
		}
	}

	if it, ok := src.ItemAt(0, 1); !ok || it.Title() != "Ronin" {
		t.Fatalf("ItemAt(0, 1) = %v, %v, want Ronin", it, ok)
	}
	if _, ok := src.ItemAt(1, 1); ok {
		t.Fatalf("ItemAt(1, 1) ok = true, want false")
	}
	if _, ok := src.ItemAt(5, 0); ok {
		t.Fatalf("ItemAt(5, 0) ok = true, want false")
	}
}

func TestInsetAndHeader(t *testing.T) {
	src := NewSource([]Item{Movie{Name: "Heat"}}, nil)

	if got, want := src.Inset(0, gridsizer.TV), gridsizer.DefaultSectionInset(gridsizer.TV); got != want {
		t.Fatalf("Inset(0, tv) = %+v, want %+v", got, want)
	}
	if got := src.Inset(1, gridsizer.Phone); got != (gridsizer.Insets{}) {
		t.Fatalf("Inset(1, phone) = %+v, want zero", got)
	}

	custom := gridsizer.Insets{Left: 3, Right: 4}
	src.InsetFunc = func(int, gridsizer.Idiom) gridsizer.Insets { return custom }
	if got := src.Inset(0, gridsizer.Phone); got != custom {
		t.Fatalf("Inset(0) with override = %+v, want %+v", got, custom)
	}
	if got := src.Inset(1, gridsizer.Phone); got != (gridsizer.Insets{}) {
		t.Fatalf("Inset(1) with override = %+v, want zero", got)
	}

	if got := src.HeaderHeight(0, true); got != 40 {
		t.Fatalf("HeaderHeight(0, true) = %v, want 40", got)
	}
	if got := src.HeaderHeight(0, false); got != 0 {
		t.Fatalf("HeaderHeight(0, false) = %v, want 0", got)
	}
	if got := src.HeaderHeight(1, true); got != 0 {
		t.Fatalf("HeaderHeight(1, true) = %v, want 0", got)
	}
}

func TestItemSize(t *testing.T) {
	src := NewSource()

	// 1000 wide phone: inset 30, spacing 15, min 108 gives 8 columns.
	got, err := src.ItemSize(1000, gridsizer.Phone, 15)
	if err != nil {
		t.Fatalf("ItemSize() err = %v", err)
	}
	if got.Columns != 8 || got.CellWidth != 108.125 {
		t.Fatalf("ItemSize(1000, phone) = %+v, want 8 columns of 108.125", got)
	}

	src.MinItemSize = gridsizer.Size{Width: 200, Height: 300}
	src.InsetFunc = func(int, gridsizer.Idiom) gridsizer.Insets { return gridsizer.Insets{} }
	got, err = src.ItemSize(1000, gridsizer.Phone, 0)
	if err != nil {
		t.Fatalf("ItemSize() err = %v", err)
	}
	if got.Columns != 5 || got.CellWidth != 200 || got.CellHeight != 300 {
		t.Fatalf("ItemSize(1000) with overrides = %+v, want 5 columns of 200x300", got)
	}

	src.MinItemSize = gridsizer.Size{Width: 0, Height: 10}
	if _, err := src.ItemSize(1000, gridsizer.Phone, 0); !errors.Is(err, gridsizer.ErrInvalidConstraint) {
		t.Fatalf("ItemSize() with zero min width err = %v, want %v", err, gridsizer.ErrInvalidConstraint)
	}
}

func TestPagination(t *testing.T) {
	src := NewSource([]Item{Movie{Name: "a"}, Movie{Name: "b"}, Movie{Name: "c"}})

	if _, ok := src.NextPage(1); ok {
		t.Fatalf("NextPage(1) ok = true, want false before the last item")
	}

	page, ok := src.NextPage(2)
	if !ok || page != 2 {
		t.Fatalf("NextPage(2) = %d, %v, want 2, true", page, ok)
	}
	if !src.Loading {
		t.Fatalf("Loading = false after NextPage")
	}
	if _, ok := src.NextPage(2); ok {
		t.Fatalf("NextPage(2) while loading ok = true, want false")
	}

	src.PageLoaded([]Item{Movie{Name: "d"}}, false)
	if src.CurrentPage != 2 || src.Loading || src.HasNextPage {
		t.Fatalf("after PageLoaded page=%d loading=%v next=%v, want 2 false false", src.CurrentPage, src.Loading, src.HasNextPage)
	}
	if got := src.NumberOfItems(0); got != 4 {
		t.Fatalf("NumberOfItems(0) = %d, want 4", got)
	}
	if _, ok := src.NextPage(3); ok {
		t.Fatalf("NextPage(3) ok = true with no next page")
	}
}

func TestPaginationRetryAfterFailure(t *testing.T) {
	src := NewSource([]Item{Show{Name: "a"}})

	if _, ok := src.NextPage(0); !ok {
		t.Fatalf("NextPage(0) ok = false, want true")
	}
	src.PageFailed(errors.New("timeout"))
	if src.Loading || src.Err == nil {
		t.Fatalf("after PageFailed loading=%v err=%v", src.Loading, src.Err)
	}
	if page, ok := src.NextPage(0); !ok || page != 2 {
		t.Fatalf("retry NextPage(0) = %d, %v, want 2, true", page, ok)
	}
}

func TestPaginationDisabled(t *testing.T) {
	src := &Source{Sections: [][]Item{{Movie{Name: "a"}}}}
	if _, ok := src.NextPage(0); ok {
		t.Fatalf("NextPage(0) on non-paginated source ok = true")
	}

	empty := NewSource()
	if _, ok := empty.NextPage(0); ok {
		t.Fatalf("NextPage(0) on empty source ok = true")
	}
	empty.PageLoaded([]Item{Movie{Name: "first"}}, true)
	if empty.NumberOfItems(0) != 1 || empty.CurrentPage != 2 {
		t.Fatalf("PageLoaded on empty source items=%d page=%d", empty.NumberOfItems(0), empty.CurrentPage)
	}
}
