package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestLoadWritesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	logger := zerolog.Nop()

	cfg, resolved, err := Load(&logger, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if resolved != path {
		t.Fatalf("unexpected path %q", resolved)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if cfg.HeartbeatInterval != 25*time.Second || cfg.FinishedRetention != 20*time.Minute {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadFileAndEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "addr: \":7000\"\nnode_identity: node7\nsweep_interval: 30s\njwt_secret: from-file\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("GAMENODE_JWT_SECRET", "from-env")
	logger := zerolog.Nop()

	cfg, _, err := Load(&logger, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7000" || cfg.NodeIdentity != "node7" || cfg.SweepInterval != 30*time.Second {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.JWTSecret != "from-env" {
		t.Fatalf("env should win over file, got %q", cfg.JWTSecret)
	}
	if cfg.LobbySubject != "lobby" {
		t.Fatalf("defaults should fill missing keys, got %q", cfg.LobbySubject)
	}
}

func TestWSPath(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{name: "development", cfg: Config{NodeIdentity: "node1"}, want: "/node1/ws"},
		{name: "production", cfg: Config{NodeIdentity: "node1", Environment: EnvironmentProduction}, want: "/ws"},
		{name: "no identity", cfg: Config{}, want: "/ws"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.WSPath(); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUpdateFrom(t *testing.T) {
	cfg := Default()
	cfg.UpdateFrom(Config{Addr: ":1234", BusURL: "nats://bus:4222"})

	if cfg.Addr != ":1234" || cfg.BusURL != "nats://bus:4222" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.NodeIdentity != "node1" {
		t.Fatalf("zero values must not overwrite, got %q", cfg.NodeIdentity)
	}
}

func TestDefaultLimits(t *testing.T) {
	cfg := Default()
	if cfg.MaxCommandsPerMinute != 600 {
		t.Fatalf("unexpected command cap %d", cfg.MaxCommandsPerMinute)
	}
	if cfg.ReadHeaderTimeout != 5*time.Second || cfg.ShutdownTimeout != 5*time.Second {
		t.Fatalf("unexpected timeouts: %v, %v", cfg.ReadHeaderTimeout, cfg.ShutdownTimeout)
	}
}
