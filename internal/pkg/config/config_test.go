package config_test

import (
	"strings"
	"testing"

	"github.com/samirrijal/mapdump/internal/pkg/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("mapdump-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Replay.FPS != 15 {
		t.Errorf("expected fps 15, got %d", cfg.Replay.FPS)
	}
	if cfg.Replay.TailSeconds != 60 || cfg.Replay.MarkerWindowSeconds != 30 {
		t.Errorf("unexpected replay windows: %+v", cfg.Replay)
	}
	if cfg.Telemetry.ServiceName != "mapdump-test" {
		t.Errorf("expected service name from argument, got %s", cfg.Telemetry.ServiceName)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("MAPDUMP_DATABASE_HOST", "db.internal")
	t.Setenv("MAPDUMP_REPLAY_FPS", "30")

	cfg, err := config.Load("mapdump-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.Host != "db.internal" {
		t.Errorf("expected env host, got %s", cfg.Database.Host)
	}
	if cfg.Replay.FPS != 30 {
		t.Errorf("expected fps 30, got %d", cfg.Replay.FPS)
	}
}

func TestValidate_CollectsErrors(t *testing.T) {
	cfg := &config.Config{}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"server.port", "database.host", "replay.fps", "log.format"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in error, got %v", want, err)
		}
	}
}

func TestDSN(t *testing.T) {
	d := config.DatabaseConfig{User: "u", Password: "p", Host: "h", Port: 5432, DBName: "mapdump", SSLMode: "disable"}
	want := "postgres://u:p@h:5432/mapdump?sslmode=disable"
	if got := d.DSN(); got != want {
		t.Errorf("DSN() = %s, want %s", got, want)
	}
}
