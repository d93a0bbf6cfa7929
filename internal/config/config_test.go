package config

import (
	"testing"
	_ "time/tzdata"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "STORE_DRIVER", "ORDER_TIMEZONE", "RUN_MIGRATIONS", "ALLOWED_ORIGINS", "NATS_URL"} {
		t.Setenv(k, "")
	}

	cfg := Load()

	if cfg.Port != "8081" {
		t.Errorf("expected port 8081, got %s", cfg.Port)
	}
	if cfg.StoreDriver != DriverPostgres {
		t.Errorf("expected postgres driver, got %s", cfg.StoreDriver)
	}
	if cfg.OrderTimezone != "America/Mexico_City" {
		t.Errorf("expected America/Mexico_City, got %s", cfg.OrderTimezone)
	}
	if !cfg.RunMigrations {
		t.Error("migrations should run by default")
	}
	if cfg.NATSURL != "" {
		t.Error("NATS should be disabled by default")
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Errorf("expected 2 default origins, got %v", cfg.AllowedOrigins)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("RUN_MIGRATIONS", "false")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")

	cfg := Load()

	if cfg.StoreDriver != DriverMemory {
		t.Errorf("expected memory driver, got %s", cfg.StoreDriver)
	}
	if cfg.RunMigrations {
		t.Error("RUN_MIGRATIONS=false should disable migrations")
	}
	want := []string{"https://a.example", "https://b.example"}
	if len(cfg.AllowedOrigins) != len(want) || cfg.AllowedOrigins[0] != want[0] || cfg.AllowedOrigins[1] != want[1] {
		t.Errorf("expected %v, got %v", want, cfg.AllowedOrigins)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"ok", Config{StoreDriver: DriverMongo, OrderTimezone: "UTC"}, false},
		{"bad driver", Config{StoreDriver: "redis", OrderTimezone: "UTC"}, true},
		{"bad timezone", Config{StoreDriver: DriverMemory, OrderTimezone: "Mars/Olympus"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
