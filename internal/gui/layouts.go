package gui

import (
	"fyne.io/fyne/v2"
	"go2tv.app/castgrid/gridsizer"
)

// AdaptiveGridLayout places equally sized cells in as many columns as
// the container width allows, never fewer than two.
type AdaptiveGridLayout struct {
	MinCell gridsizer.Size
	Inset   gridsizer.Insets
	Spacing float32

	// OnLayout is called with every computed layout.
	OnLayout func(gridsizer.GridResult)
}

var _ fyne.Layout = (*AdaptiveGridLayout)(nil)

func (l *AdaptiveGridLayout) compute(width float32) gridsizer.GridResult {
	res, err := gridsizer.ComputeLayout(gridsizer.GridConstraint{
		ContainerWidth: float64(width),
		MinCellWidth:   l.MinCell.Width,
		MinCellHeight:  l.MinCell.Height,
		SectionInset:   l.Inset.Horizontal(),
		ItemSpacing:    float64(l.Spacing),
	})
	if err != nil {
		return gridsizer.GridResult{Columns: 2}
	}

	return res
}

func (l *AdaptiveGridLayout) MinSize(objects []fyne.CanvasObject) fyne.Size {
	res := l.compute(l.minWidth())
	rows := gridsizer.Rows(visibleCount(objects), res.Columns)

	h := float32(l.Inset.Top + l.Inset.Bottom)
	if rows > 0 {
		h += float32(gridsizer.RowHeight(res, float64(l.Spacing)))*float32(rows) - l.Spacing
	}

	return fyne.NewSize(l.minWidth(), h)
}

func (l *AdaptiveGridLayout) minWidth() float32 {
	return float32(l.Inset.Horizontal()+2*l.MinCell.Width) + l.Spacing
}

func (l *AdaptiveGridLayout) Layout(objects []fyne.CanvasObject, containerSize fyne.Size) {
	res := l.compute(containerSize.Width)
	if l.OnLayout != nil {
		l.OnLayout(res)
	}

	cell := fyne.NewSize(float32(res.CellWidth), float32(res.CellHeight))
	rowHeight := float32(gridsizer.RowHeight(res, float64(l.Spacing)))
	col := 0
	pos := fyne.NewPos(float32(l.Inset.Left), float32(l.Inset.Top))
	for _, o := range objects {
		if !o.Visible() {
			continue
		}

		o.Resize(cell)
		o.Move(pos)

		col++
		if col == res.Columns {
			col = 0
			pos = fyne.NewPos(float32(l.Inset.Left), pos.Y+rowHeight)
			continue
		}
		pos = pos.Add(fyne.NewPos(cell.Width+l.Spacing, 0))
	}
}

func visibleCount(objects []fyne.CanvasObject) int {
	n := 0
	for _, o := range objects {
		if o.Visible() {
			n++
		}
	}
	return n
}

// RatioLayout splits the first two objects horizontally.
type RatioLayout struct {
	LeftRatio float32
}

func (l *RatioLayout) MinSize(objects []fyne.CanvasObject) fyne.Size {
	if len(objects) < 2 {
		return fyne.NewSize(0, 0)
	}
	min0 := objects[0].MinSize()
	min1 := objects[1].MinSize()

	w := fyne.Max(min0.Width/l.LeftRatio, min1.Width/(1-l.LeftRatio))
	h := fyne.Max(min0.Height, min1.Height)

	return fyne.NewSize(w, h)
}

func (l *RatioLayout) Layout(objects []fyne.CanvasObject, size fyne.Size) {
	if len(objects) < 2 {
		return
	}
	leftSize := fyne.NewSize(size.Width*l.LeftRatio, size.Height)
	rightSize := fyne.NewSize(size.Width*(1-l.LeftRatio), size.Height)

	objects[0].Resize(leftSize)
	objects[0].Move(fyne.NewPos(0, 0))

	objects[1].Resize(rightSize)
	objects[1].Move(fyne.NewPos(leftSize.Width, 0))
}
