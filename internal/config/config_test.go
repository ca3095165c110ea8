package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go2tv.app/castgrid/gridsizer"
)

func TestParseMergesOverDefaults(t *testing.T) {
	conf, err := Parse([]byte(`{"theme":"Dark","idiom":"tv","min_cell_width":200,"poll_interval":"10s","dlna":false,"discovery_delay":3}`))
	if err != nil {
		t.Fatalf("Parse() err = %v, want nil", err)
	}

	want := Default()
	want.Theme = "Dark"
	want.Idiom = "tv"
	want.MinCellWidth = 200
	want.PollInterval = 10 * time.Second
	want.DLNA = false
	want.DiscoveryDelay = 3

	if *conf != *want {
		t.Fatalf("Parse() = %+v, want %+v", *conf, *want)
	}
}

func TestParseEmptyDocument(t *testing.T) {
	conf, err := Parse([]byte(`{}`))
	if err != nil {
		t.Fatalf("Parse({}) err = %v, want nil", err)
	}
	if *conf != *Default() {
		t.Fatalf("Parse({}) = %+v, want defaults", *conf)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		validate bool
	}{
		{name: "not json", in: `{`},
		{name: "wrong type", in: `{"chromecast":"maybe"}`},
		{name: "bad duration", in: `{"poll_interval":"soon"}`},
		{name: "theme", in: `{"theme":"Neon"}`, validate: true},
		{name: "idiom", in: `{"idiom":"watch"}`, validate: true},
		{name: "negative width", in: `{"min_cell_width":-1}`, validate: true},
		{name: "negative spacing", in: `{"item_spacing":-3}`, validate: true},
		{name: "zero delay", in: `{"discovery_delay":0}`, validate: true},
		{name: "short poll", in: `{"poll_interval":"10ms"}`, validate: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.in))
			if err == nil {
				t.Fatalf("Parse(%s) err = nil, want error", tt.in)
			}
			if tt.validate && !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("Parse(%s) err = %v, want %v", tt.in, err, ErrInvalidConfig)
			}
		})
	}
}

func TestLoadCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "castgrid", "settings.json")

	conf, err := Load(path)
	if err != nil {
		t.Fatalf("Load() err = %v, want nil", err)
	}
	if *conf != *Default() {
		t.Fatalf("Load() = %+v, want defaults", *conf)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("settings file not created: %v", err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	conf := Default()
	conf.Theme = "Light"
	conf.MinCellHeight = 300
	conf.PollInterval = 90 * time.Second
	if err := conf.Save(path); err != nil {
		t.Fatalf("Save() err = %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() err = %v", err)
	}
	if *got != *conf {
		t.Fatalf("Load() = %+v, want %+v", *got, *conf)
	}
}

func TestMinItemSize(t *testing.T) {
	conf := Default()
	if got, want := conf.MinItemSize(), gridsizer.DefaultMinItemSize(gridsizer.Phone); got != want {
		t.Fatalf("MinItemSize() = %+v, want %+v", got, want)
	}

	conf.Idiom = "tv"
	conf.MinCellWidth = 300
	want := gridsizer.Size{Width: 300, Height: gridsizer.DefaultMinItemSize(gridsizer.TV).Height}
	if got := conf.MinItemSize(); got != want {
		t.Fatalf("MinItemSize() = %+v, want %+v", got, want)
	}
	if conf.GridIdiom() != gridsizer.TV {
		t.Fatalf("GridIdiom() = %v, want tv", conf.GridIdiom())
	}
}
