package config

import (
	"testing"
	"time"
)

func TestLoadDefaultsAndEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("STOCK_MAX_RETRIES", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Stock.MaxRetries != 5 {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.Stock.LockTimeout != 5*time.Second || cfg.Stock.EventsChannel != "stock:changed" {
		t.Fatalf("unexpected stock defaults %+v", cfg.Stock)
	}
	if cfg.Redis.Addr() != "127.0.0.1:6379" {
		t.Fatalf("unexpected redis addr %s", cfg.Redis.Addr())
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{"JWT_SECRET": ""}},
		{"unknown driver", map[string]string{"JWT_SECRET": "x", "DB_DRIVER": "mysql"}},
		{"negative retries", map[string]string{"JWT_SECRET": "x", "STOCK_MAX_RETRIES": "-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "stock", SSLMode: "disable"}
	want := "host=db port=5432 user=u password=p dbname=stock sslmode=disable"
	if got := d.DSN(); got != want {
		t.Fatalf("DSN() = %q, want %q", got, want)
	}
}
