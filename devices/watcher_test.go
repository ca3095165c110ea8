package devices

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

type inlinePoster struct {
	posts int
}

func (p *inlinePoster) Post(f func()) {
	p.posts++
	f()
}

type recordingListener struct {
	events []string
}

func (l *recordingListener) OnInserted(d Device) { l.events = append(l.events, "insert:"+d.ID) }
func (l *recordingListener) OnUpdated(d Device)  { l.events = append(l.events, "update:"+d.ID) }
func (l *recordingListener) OnRemoved(d Device)  { l.events = append(l.events, "remove:"+d.ID) }

func TestWatcherRefreshPostsEvents(t *testing.T) {
	src := &fakeSource{devs: []Device{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}}}
	poster := &inlinePoster{}
	listener := &recordingListener{}

	w := NewWatcher(poster, listener, src)
	ctx := context.Background()

	if err := w.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() err = %v, want nil", err)
	}

	src.devs = []Device{{ID: "b", Name: "B renamed"}, {ID: "c", Name: "C"}}
	if err := w.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() err = %v, want nil", err)
	}

	want := []string{"insert:a", "insert:b", "remove:a", "update:b", "insert:c"}
	if !reflect.DeepEqual(listener.events, want) {
		t.Fatalf("events = %v, want %v", listener.events, want)
	}

	if poster.posts != len(want) {
		t.Fatalf("posts = %d, want %d", poster.posts, len(want))
	}

	gotIDs := []string{}
	for _, d := range w.Devices() {
		gotIDs = append(gotIDs, d.ID)
	}
	if !reflect.DeepEqual(gotIDs, []string{"b", "c"}) {
		t.Fatalf("Devices() = %v, want [b c]", gotIDs)
	}
}

func TestWatcherKeepsDevicesOfFailingSource(t *testing.T) {
	cc := &fakeSource{devs: []Device{{ID: "cc", Name: "Chromecast"}}}
	dlna := &fakeSource{devs: []Device{{ID: "dmr", Name: "Renderer"}}}
	listener := &recordingListener{}

	w := NewWatcher(&inlinePoster{}, listener, cc, dlna)
	ctx := context.Background()

	if err := w.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() err = %v, want nil", err)
	}

	cc.err = errors.New("mdns timeout")
	if err := w.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() err = %v, want nil", err)
	}

	want := []string{"insert:cc", "insert:dmr"}
	if !reflect.DeepEqual(listener.events, want) {
		t.Fatalf("events = %v, want %v", listener.events, want)
	}

	if got := len(w.Devices()); got != 2 {
		t.Fatalf("Devices() len = %d, want 2", got)
	}
}

func TestWatcherRefreshHonorsContext(t *testing.T) {
	w := NewWatcher(&inlinePoster{}, &recordingListener{}, &fakeSource{})
	ctx := context.Background()

	if err := w.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() err = %v, want nil", err)
	}

	// The limiter has no token left, so a canceled context must win.
	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if err := w.Refresh(canceled); err == nil {
		t.Fatalf("Refresh() err = nil, want context error")
	}
}

func TestWatcherIntervals(t *testing.T) {
	src := &fakeSource{}
	w := NewWatcher(&inlinePoster{}, &recordingListener{}, src)
	w.FastInterval = time.Millisecond
	w.SlowInterval = time.Hour

	if got := w.nextInterval(); got != time.Millisecond {
		t.Fatalf("nextInterval() = %v, want fast interval", got)
	}

	src.devs = []Device{{ID: "a"}}
	if err := w.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() err = %v, want nil", err)
	}

	if got := w.nextInterval(); got != time.Hour {
		t.Fatalf("nextInterval() = %v, want slow interval", got)
	}
}

type blockingSource struct {
	entered chan struct{}
	release chan struct{}
	devs    []Device
}

func (b *blockingSource) Snapshot(ctx context.Context) ([]Device, error) {
	close(b.entered)
	<-b.release
	return b.devs, nil
}

func TestWatcherDevicesDuringSlowSnapshot(t *testing.T) {
	src := &blockingSource{
		entered: make(chan struct{}),
		release: make(chan struct{}),
		devs:    []Device{{ID: "a", Name: "A"}},
	}
	w := NewWatcher(&inlinePoster{}, &recordingListener{}, src)

	done := make(chan error, 1)
	go func() { done <- w.Refresh(context.Background()) }()
	<-src.entered

	got := make(chan int, 1)
	go func() {
		got <- len(w.Devices())
		got <- int(w.nextInterval())
	}()

	select {
	case n := <-got:
		if n != 0 {
			t.Fatalf("Devices() during snapshot = %d devices, want 0", n)
		}
		if iv := time.Duration(<-got); iv != w.FastInterval {
			t.Fatalf("nextInterval() during snapshot = %v, want %v", iv, w.FastInterval)
		}
	case <-time.After(time.Second):
		t.Fatalf("Devices() blocked while a source was polling")
	}

	close(src.release)
	if err := <-done; err != nil {
		t.Fatalf("Refresh() err = %v, want nil", err)
	}
	if n := len(w.Devices()); n != 1 {
		t.Fatalf("Devices() after refresh = %d devices, want 1", n)
	}
}
