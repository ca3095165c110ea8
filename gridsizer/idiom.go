package gridsizer

import (
	"fmt"
	"strings"
)

// Idiom is the kind of screen a layout targets.
type Idiom int

const (
	Phone Idiom = iota
	TV
)

func (i Idiom) String() string {
	switch i {
	case TV:
		return "tv"
	default:
		return "phone"
	}
}

// ParseIdiom maps "phone" or "tv" (any case) to an Idiom.
func ParseIdiom(s string) (Idiom, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "phone":
		return Phone, nil
	case "tv":
		return TV, nil
	}

	return Phone, fmt.Errorf("ParseIdiom: unknown idiom %q", s)
}

// Size is a width/height pair.
type Size struct {
	Width  float64
	Height float64
}

// Insets are the margins around a section.
type Insets struct {
	Top    float64
	Left   float64
	Bottom float64
	Right  float64
}

// Horizontal returns leading and trailing insets combined.
func (i Insets) Horizontal() float64 {
	return i.Left + i.Right
}

// DefaultMinItemSize is the poster cell minimum used when no delegate
// overrides it.
func DefaultMinItemSize(idiom Idiom) Size {
	if idiom == TV {
		return Size{Width: 250, Height: 460}
	}

	return Size{Width: 108, Height: 185}
}

// DefaultSectionInset is the inset of a non-empty section.
func DefaultSectionInset(idiom Idiom) Insets {
	if idiom == TV {
		return Insets{Top: 60, Left: 90, Bottom: 60, Right: 90}
	}

	return Insets{Top: 15, Left: 15, Bottom: 15, Right: 15}
}

// Picker popover geometry.
const (
	PickerWidth     = 320
	PickerMaxHeight = 400
)

// PickerHeight estimates the height of a list popover: headers, footers,
// every row and the top content inset, capped at maxHeight.
func PickerHeight(rowHeights []float64, header, footer, topInset, maxHeight float64) float64 {
	h := header + footer + topInset
	for _, r := range rowHeights {
		h += r
	}

	if h < maxHeight {
		return h
	}

	return maxHeight
}
