package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"

	pkgerrors "github.com/pkg/errors"
	"go2tv.app/castgrid/devices"
	"go2tv.app/castgrid/internal/config"
	"go2tv.app/castgrid/internal/dispatch"
	"go2tv.app/castgrid/roster"
)

type mode int

const (
	modeGUI mode = iota
	modeTUI
	modeGrid
	modeList
	modeTarget
)

var ErrNoCombi = errors.New("can't combine -l, -t, -gui, -tui and -grid")

type flagResults struct {
	mode mode
	exit bool
}

func processflags() (*flagResults, error) {
	res := &flagResults{}
	if checkVerflag() {
		res.exit = true
		return res, nil
	}

	m, err := selectMode(*listPtr, *targetPtr != "", *guiPtr, *tuiPtr, *gridPtr)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "checkflags error")
	}
	res.mode = m

	return res, nil
}

// selectMode picks the single mode the flags ask for.
func selectMode(list, target, gui, tui, grid bool) (mode, error) {
	var (
		n   int
		sel = modeGUI
	)
	for _, c := range []struct {
		set bool
		m   mode
	}{
		{list, modeList},
		{target, modeTarget},
		{gui, modeGUI},
		{tui, modeTUI},
		{grid, modeGrid},
	} {
		if c.set {
			n++
			sel = c.m
		}
	}

	if n > 1 {
		return modeGUI, ErrNoCombi
	}
	return sel, nil
}

func checkVerflag() bool {
	if *versionPtr {
		fmt.Printf("CastGrid Version: %s\n", version)
		return true
	}
	return false
}

func listFlagFunction(ctx context.Context, sources []devices.Source) error {
	devs, err := devices.LoadAllDevices(ctx, sources...)
	if err != nil {
		return pkgerrors.Wrap(err, "checkLflag error")
	}

	printDevices(os.Stdout, devs, runtime.GOOS == "linux")
	return nil
}

func printDevices(w io.Writer, devs []devices.Device, bold bool) {
	boldStart := ""
	boldEnd := ""
	if bold {
		boldStart = "\033[1m"
		boldEnd = "\033[0m"
	}

	fmt.Fprintln(w)
	for i, d := range devs {
		fmt.Fprintf(w, "%sDevice %v%s\n", boldStart, i+1, boldEnd)
		fmt.Fprintf(w, "%s--------%s\n", boldStart, boldEnd)
		fmt.Fprintf(w, "%sModel:%s %s\n", boldStart, boldEnd, d.Name)
		fmt.Fprintf(w, "%sType:%s  %s\n", boldStart, boldEnd, d.Type)
		fmt.Fprintf(w, "%sURL:%s   %s\n", boldStart, boldEnd, d.Addr)
		fmt.Fprintln(w)
	}
}

// resolveTarget finds the device the -t flag names, either by its
// position in the -l listing or by its URL.
func resolveTarget(devs []devices.Device, target string) (devices.Device, error) {
	if n, err := strconv.Atoi(target); err == nil {
		return devices.DevicePicker(devs, n)
	}

	d, ok := devices.FindByAddr(devs, target)
	if !ok {
		return devices.Device{}, fmt.Errorf("%w: %s", devices.ErrDeviceNotAvailable, target)
	}
	return d, nil
}

// consoleDelegate reports connection changes on stdout and stops the
// program when a connection cannot be made.
type consoleDelegate struct {
	out    io.Writer
	cancel context.CancelFunc
	err    error
}

func (c *consoleDelegate) DidConnectToDevice(d devices.Device) {
	fmt.Fprintf(c.out, "Connected to %s. Press Ctrl+C to disconnect.\n", d.Name)
}

func (c *consoleDelegate) DidFailToConnect(err error) {
	c.err = err
	c.cancel()
}

func runTarget(ctx context.Context, conf *config.Config, sources []devices.Source, target string, logOut io.Writer) error {
	devs, err := devices.LoadAllDevices(ctx, sources...)
	if err != nil {
		return pkgerrors.Wrap(err, "checkTflag service loading error")
	}

	d, err := resolveTarget(devs, target)
	if err != nil {
		return pkgerrors.Wrap(err, "checkTflag device picker error")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	loop := dispatch.NewLoop()
	delegate := &consoleDelegate{out: os.Stdout, cancel: cancel}
	w := wire(conf, loop, nil, delegate, nil, logOut)
	defer w.shutdown()

	loop.Post(func() {
		w.picker.Seed(devs)
		if err := w.picker.Select(d); err != nil {
			delegate.err = err
			cancel()
		}
	})
	fmt.Printf("Connecting to %s...\n", d.Name)

	loop.Run(ctx)

	if delegate.err != nil {
		return pkgerrors.Wrap(delegate.err, "connect error")
	}
	return nil
}

var _ roster.Delegate = (*consoleDelegate)(nil)
