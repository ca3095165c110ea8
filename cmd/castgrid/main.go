package main

import (
	"context"
	_ "embed"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fyne.io/fyne/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"go2tv.app/castgrid/castsession"
	"go2tv.app/castgrid/devices"
	"go2tv.app/castgrid/internal/config"
	"go2tv.app/castgrid/internal/dispatch"
	"go2tv.app/castgrid/internal/gridpreview"
	"go2tv.app/castgrid/internal/gui"
	"go2tv.app/castgrid/internal/interactive"
	"go2tv.app/castgrid/roster"
)

var (
	//go:embed version.txt
	version    string
	listPtr    = flag.Bool("l", false, "List all available cast devices.")
	targetPtr  = flag.String("t", "", "Connect to a cast device by its number from -l or its URL.")
	guiPtr     = flag.Bool("gui", false, "Open the desktop device picker. (default when no mode is given)")
	tuiPtr     = flag.Bool("tui", false, "Open the terminal device picker.")
	gridPtr    = flag.Bool("grid", false, "Preview the adaptive poster grid in the terminal.")
	idiomPtr   = flag.String("idiom", "", "Override the configured grid idiom (phone or tv).")
	debugPtr   = flag.Bool("debug", false, "Write debug logs to stderr.")
	logPtr     = flag.String("log", "", "Write debug logs to the given file.")
	versionPtr = flag.Bool("version", false, "Print version.")

	shutdownTimeout = 5 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Encountered error(s): %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	exitCTX, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	flag.Parse()

	flagRes, err := processflags()
	if err != nil {
		return err
	}

	if flagRes.exit {
		return nil
	}

	logOut, closeLog, err := logOutput(*debugPtr, *logPtr)
	if err != nil {
		return errors.Wrap(err, "log setup error")
	}
	defer closeLog()

	conf, err := config.GetAppConfig()
	if err != nil {
		return errors.Wrap(err, "config error")
	}

	if *idiomPtr != "" {
		conf.Idiom = *idiomPtr
		if err := conf.Validate(); err != nil {
			return errors.Wrap(err, "checkflags error")
		}
	}

	sources := deviceSources(conf)

	switch flagRes.mode {
	case modeList:
		return listFlagFunction(exitCTX, sources)
	case modeTarget:
		return runTarget(exitCTX, conf, sources, *targetPtr, logOut)
	case modeGrid:
		m := gridpreview.New(catalog(), conf.GridIdiom(), conf.MinItemSize(), conf.ItemSpacing)
		m.Pages = catalogPage
		return gridpreview.Run(m)
	case modeTUI:
		return runTUI(exitCTX, conf, sources, logOut)
	}

	return runGUI(exitCTX, conf, sources, logOut)
}

func deviceSources(conf *config.Config) []devices.Source {
	var sources []devices.Source
	if conf.Chromecast {
		sources = append(sources, &devices.ChromecastSource{Timeout: time.Duration(conf.DiscoveryDelay) * time.Second})
	}
	if conf.DLNA {
		sources = append(sources, &devices.DLNASource{Delay: conf.DiscoveryDelay})
	}
	return sources
}

// logOutput returns where debug logs go. Without -debug or -log logging
// stays disabled.
func logOutput(debug bool, path string) (io.Writer, func(), error) {
	nop := func() {}
	switch {
	case path != "":
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nop, err
		}
		return f, func() { f.Close() }, nil
	case debug:
		return zerolog.ConsoleWriter{Out: os.Stderr}, nop, nil
	}
	return nil, nop, nil
}

type wiring struct {
	sessions *castsession.Manager
	picker   *roster.Picker
	watcher  *devices.Watcher
}

// wire connects the session manager, the picker and discovery. Every
// callback into the picker goes through poster.
func wire(conf *config.Config, poster dispatch.Poster, sink roster.ViewSink, delegate roster.Delegate, sources []devices.Source, logOut io.Writer) wiring {
	sessions := castsession.NewManager(castsession.DefaultFactory{LogOutput: logOut}, poster)
	sessions.LogOutput = logOut

	picker := roster.NewPicker(sessions, sink, delegate)
	picker.LogOutput = logOut
	sessions.SetListener(picker)

	watcher := devices.NewWatcher(poster, picker, sources...)
	watcher.SlowInterval = conf.PollInterval
	watcher.LogOutput = logOut

	return wiring{sessions: sessions, picker: picker, watcher: watcher}
}

func (w wiring) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = w.sessions.Shutdown(ctx)
}

func runGUI(ctx context.Context, conf *config.Config, sources []devices.Source, logOut io.Writer) error {
	scr := gui.NewScreen(conf, catalog())
	scr.LogOutput = logOut

	w := wire(conf, dispatch.Func(fyne.Do), scr, scr, sources, logOut)
	defer w.shutdown()

	scr.Picker = w.picker
	gui.Start(ctx, scr, w.watcher)
	return nil
}

func runTUI(ctx context.Context, conf *config.Config, sources []devices.Source, logOut io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	loop := dispatch.NewLoop()
	scr, err := interactive.InitPickerScreen(loop, cancel)
	if err != nil {
		return errors.Wrap(err, "interactive screen error")
	}
	scr.LogOutput = logOut

	w := wire(conf, loop, scr, scr, sources, logOut)
	defer w.shutdown()
	scr.Picker = w.picker

	errc := make(chan error, 1)
	go func() {
		errc <- scr.InterInit(ctx)
		cancel()
	}()
	go w.watcher.Run(ctx)

	loop.Run(ctx)
	return <-errc
}
