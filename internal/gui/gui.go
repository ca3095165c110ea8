package gui

import (
	"context"
	"fmt"
	"io"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog"
	"go2tv.app/castgrid/collection"
	"go2tv.app/castgrid/devices"
	"go2tv.app/castgrid/gridsizer"
	"go2tv.app/castgrid/internal/config"
	"go2tv.app/castgrid/roster"
)

// FyneScreen is the desktop picker window. It is the roster's view sink
// and delegate, all of its methods run on the Fyne main goroutine.
type FyneScreen struct {
	Current    fyne.Window
	DeviceList *widget.List
	Header     *widget.Label
	Empty      *widget.Label
	Status     binding.String
	GridInfo   binding.String
	Picker     *roster.Picker
	Source     *collection.Source
	Config     *config.Config

	popover *widget.PopUp

	Logger      zerolog.Logger
	LogOutput   io.Writer
	initLogOnce sync.Once
}

var (
	_ roster.ViewSink = (*FyneScreen)(nil)
	_ roster.Delegate = (*FyneScreen)(nil)
)

// NewScreen creates the application and its main window.
func NewScreen(conf *config.Config, src *collection.Source) *FyneScreen {
	a := app.NewWithID("app.castgrid.castgrid")
	a.Settings().SetTheme(themeFor(conf.Theme))

	return &FyneScreen{
		Current:  a.NewWindow("CastGrid"),
		Status:   binding.NewString(),
		GridInfo: binding.NewString(),
		Source:   src,
		Config:   conf,
		Logger:   zerolog.Nop(),
	}
}

// Log returns the zerolog logger, initializing it lazily if LogOutput is set.
func (p *FyneScreen) Log() *zerolog.Logger {
	if p.LogOutput != nil {
		p.initLogOnce.Do(func() {
			p.Logger = zerolog.New(p.LogOutput).With().Timestamp().Str("Component", "gui").Logger()
		})
	}
	return &p.Logger
}

// Start builds the window content, runs the watcher until the window is
// closed and blocks in the Fyne event loop. The device list lives in a
// popover opened from the header.
func Start(ctx context.Context, s *FyneScreen, watcher *devices.Watcher) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := s.Current
	s.Status.Set("Not connected")

	s.Header = widget.NewLabelWithStyle("", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	s.Empty = widget.NewLabel("")
	s.Empty.Alignment = fyne.TextAlignCenter

	s.DeviceList = widget.NewList(
		func() int {
			return s.Picker.Len()
		},
		newDeviceRow,
		func(i widget.ListItemID, o fyne.CanvasObject) {
			row, err := s.Picker.Row(i)
			if err != nil {
				return
			}
			c := o.(*fyne.Container)
			icon := c.Objects[0].(*widget.Icon)
			if row.Checked {
				icon.Show()
			} else {
				icon.Hide()
			}
			c.Objects[1].(*widget.Label).SetText(rowLabel(row))
		})

	s.DeviceList.OnSelected = func(id widget.ListItemID) {
		s.DeviceList.Unselect(id)
		if err := s.Picker.SelectRow(id); err != nil {
			s.Log().Debug().Str("Method", "OnSelected").Int("Index", id).Err(err).Msg("select row")
		}
	}

	picker := container.NewBorder(s.Header, nil, nil, nil, container.NewStack(s.Empty, s.DeviceList))
	s.popover = widget.NewPopUp(picker, w.Canvas())

	devicesButton := widget.NewButtonWithIcon("Devices", theme.MediaVideoIcon(), nil)
	devicesButton.OnTapped = func() {
		s.showPicker(devicesButton)
	}

	header := container.New(&RatioLayout{LeftRatio: 0.7},
		container.NewVBox(widget.NewLabelWithData(s.Status), widget.NewLabelWithData(s.GridInfo)),
		container.NewCenter(devicesButton),
	)

	content := container.NewBorder(header, nil, nil, nil, s.gridView())
	s.FullRefresh()

	go watcher.Run(ctx)

	w.SetContent(content)
	w.Resize(fyne.NewSize(gridsizer.PickerWidth*3, gridsizer.PickerMaxHeight*1.5))
	w.CenterOnScreen()
	w.ShowAndRun()
}

func (p *FyneScreen) gridView() fyne.CanvasObject {
	idiom := p.Config.GridIdiom()

	grid := &AdaptiveGridLayout{
		MinCell: p.Config.MinItemSize(),
		Inset:   p.Source.Inset(0, idiom),
		Spacing: float32(p.Config.ItemSpacing),
	}
	grid.OnLayout = func(res gridsizer.GridResult) {
		info := gridInfo(res)
		go fyne.Do(func() { p.GridInfo.Set(info) })
	}

	var cells []fyne.CanvasObject
	for section := range p.Source.NumberOfSections() {
		for i := range p.Source.NumberOfItems(section) {
			item, _ := p.Source.ItemAt(section, i)
			if _, err := collection.CellIdentifier(item, idiom); err != nil {
				p.Log().Debug().Str("Method", "gridView").Err(err).Msg("skipping item")
				continue
			}
			cells = append(cells, newPosterCell(item))
		}
	}

	if bg := p.Source.Background(); bg != collection.BackgroundNone {
		return widget.NewLabel(backgroundText(bg, p.Source.Err))
	}

	return container.NewVScroll(container.New(grid, cells...))
}

func newDeviceRow() fyne.CanvasObject {
	return container.NewHBox(widget.NewIcon(theme.ConfirmIcon()), widget.NewLabel("Template Object"))
}

// showPicker opens the device popover right-aligned under anchor.
func (p *FyneScreen) showPicker(anchor fyne.CanvasObject) {
	p.resizePicker()

	pos := fyne.CurrentApp().Driver().AbsolutePositionForObject(anchor)
	x := pos.X + anchor.Size().Width - p.popover.Size().Width
	if x < 0 {
		x = 0
	}
	p.popover.ShowAtPosition(fyne.NewPos(x, pos.Y+anchor.Size().Height))
}

func (p *FyneScreen) resizePicker() {
	if p.popover == nil {
		return
	}

	rowHeight := newDeviceRow().MinSize().Height + theme.SeparatorThicknessSize()
	p.popover.Resize(pickerSize(p.Picker.Len(), rowHeight, p.Header.MinSize().Height, theme.Padding()))
}

// pickerSize is the popover size for n rows under a header. An empty
// roster keeps room for the placeholder.
func pickerSize(n int, rowHeight, headerHeight, topInset float32) fyne.Size {
	rows := make([]float64, max(n, 1))
	for i := range rows {
		rows[i] = float64(rowHeight)
	}

	h := gridsizer.PickerHeight(rows, float64(headerHeight), 0, float64(topInset), gridsizer.PickerMaxHeight)
	return fyne.NewSize(gridsizer.PickerWidth, float32(h))
}

func newPosterCell(item collection.Item) fyne.CanvasObject {
	bg := canvas.NewRectangle(theme.Color(theme.ColorNameButton))
	bg.CornerRadius = theme.InputRadiusSize()

	title := widget.NewLabel(item.Title())
	title.Wrapping = fyne.TextWrapWord
	title.Alignment = fyne.TextAlignCenter

	return container.NewStack(bg, container.NewCenter(title))
}

func (p *FyneScreen) RowsInserted(rows []int) {
	p.Log().Debug().Str("Method", "RowsInserted").Ints("Rows", rows).Msg("")
	p.reload()
}

func (p *FyneScreen) RowsReloaded(rows []int) {
	p.DeviceList.Refresh()
}

func (p *FyneScreen) RowsDeleted(rows []int) {
	p.Log().Debug().Str("Method", "RowsDeleted").Ints("Rows", rows).Msg("")
	p.reload()
}

func (p *FyneScreen) FullRefresh() {
	p.reload()
}

func (p *FyneScreen) reload() {
	if p.DeviceList == nil {
		return
	}

	p.Header.SetText(p.Picker.SectionTitle())
	if msg := p.Picker.EmptyMessage(); msg != "" {
		p.Empty.SetText(msg)
		p.Empty.Show()
		p.DeviceList.Hide()
	} else {
		p.Empty.Hide()
		p.DeviceList.Show()
	}

	p.DeviceList.Refresh()
	p.resizePicker()
}

func (p *FyneScreen) DidConnectToDevice(d devices.Device) {
	p.Status.Set(p.Picker.ConnectedText(d))
}

func (p *FyneScreen) DidFailToConnect(err error) {
	p.Status.Set("Not connected")
	dialog.ShowError(err, p.Current)
}

func rowLabel(row roster.RowView) string {
	if row.Device.IsAudioOnly {
		return row.Name + " (audio)"
	}
	return row.Name
}

func gridInfo(res gridsizer.GridResult) string {
	return fmt.Sprintf("%d columns, %.0fx%.0f", res.Columns, res.CellWidth, res.CellHeight)
}

func backgroundText(bg collection.Background, err error) string {
	switch bg {
	case collection.BackgroundError:
		return "Error: " + err.Error()
	case collection.BackgroundLoading:
		return "Loading..."
	case collection.BackgroundEmpty:
		return "Nothing to show"
	}
	return ""
}
