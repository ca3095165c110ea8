package gridsizer

import (
	"errors"
	"fmt"
	"math"
)

const (
	// minPracticalCellWidth is the narrowest cell we ever consider when
	// bounding the column search.
	minPracticalCellWidth = 1.0
	// hardMaxColumns caps the column search for absurdly wide containers.
	hardMaxColumns = 4096
	// minColumns is applied regardless of fit.
	minColumns = 2
)

var (
	ErrInvalidConstraint = errors.New("computeLayout: invalid grid constraint")
)

// GridConstraint is the input of a single layout pass.
type GridConstraint struct {
	ContainerWidth float64
	MinCellWidth   float64
	MinCellHeight  float64
	// SectionInset is leading and trailing inset combined.
	SectionInset float64
	ItemSpacing  float64
}

// GridResult is the computed cell size for a layout pass.
// CellWidth may be smaller than the requested minimum when only two
// columns fit.
type GridResult struct {
	CellWidth  float64
	CellHeight float64
	Columns    int
}

// Validate reports whether the constraint can be laid out.
func (c GridConstraint) Validate() error {
	for _, v := range []float64{c.ContainerWidth, c.MinCellWidth, c.MinCellHeight, c.SectionInset, c.ItemSpacing} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite value", ErrInvalidConstraint)
		}
	}

	if c.MinCellWidth <= 0 {
		return fmt.Errorf("%w: min cell width %v must be positive", ErrInvalidConstraint, c.MinCellWidth)
	}

	if c.ContainerWidth < 0 {
		return fmt.Errorf("%w: container width %v is negative", ErrInvalidConstraint, c.ContainerWidth)
	}

	// MaxColumns relies on width(n) <= ContainerWidth/n.
	if c.SectionInset < 0 {
		return fmt.Errorf("%w: section inset %v is negative", ErrInvalidConstraint, c.SectionInset)
	}

	if c.ItemSpacing < 0 {
		return fmt.Errorf("%w: item spacing %v is negative", ErrInvalidConstraint, c.ItemSpacing)
	}

	return nil
}

// MaxColumns is the upper bound of the column search for c. Past it
// width(n) is always below the minimum cell width.
func MaxColumns(c GridConstraint) int {
	limit := math.Max(c.MinCellWidth, minPracticalCellWidth)
	n := math.Floor(c.ContainerWidth/limit) + minColumns
	if n > hardMaxColumns {
		return hardMaxColumns
	}

	return int(n)
}

// ColumnWidth is the cell width of a flow layout with n columns, with
// insets and inter-item spacing amortized per column.
func ColumnWidth(c GridConstraint, n int) float64 {
	items := float64(n)
	return (c.ContainerWidth / items) - (c.SectionInset / items) - (c.ItemSpacing * (items - 1) / items)
}

// ComputeLayout finds the largest column count whose cell width still
// fits the minimum cell width, never going below two columns. The cell
// height keeps the aspect ratio of the minimum cell size.
func ComputeLayout(c GridConstraint) (GridResult, error) {
	if err := c.Validate(); err != nil {
		return GridResult{}, err
	}

	maxColumns := MaxColumns(c)

	var width float64
	columns := minColumns
	for n := minColumns; n <= maxColumns; n++ {
		newWidth := ColumnWidth(c, n)
		if newWidth < c.MinCellWidth && n > minColumns {
			break
		}
		width = newWidth
		columns = n
	}

	// Container narrower than its insets.
	if width < 0 {
		width = 0
	}

	return GridResult{
		CellWidth:  width,
		CellHeight: c.MinCellHeight * (width / c.MinCellWidth),
		Columns:    columns,
	}, nil
}

// Rows returns how many rows itemCount cells need with the given columns.
func Rows(itemCount, columns int) int {
	if itemCount <= 0 || columns <= 0 {
		return 0
	}

	return (itemCount + columns - 1) / columns
}

// RowHeight is the height one row of r takes including line spacing.
func RowHeight(r GridResult, lineSpacing float64) float64 {
	return r.CellHeight + lineSpacing
}
