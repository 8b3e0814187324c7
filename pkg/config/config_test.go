package config

import (
	"testing"
	"time"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid config",
			cfg: Config{
				App:  AppConfig{Name: "routing-svc"},
				GRPC: GRPCConfig{Port: 50060},
				Log:  LogConfig{Level: "info"},
			},
			wantErr: false,
		},
		{
			name: "missing app name",
			cfg: Config{
				GRPC: GRPCConfig{Port: 50060},
				Log:  LogConfig{Level: "info"},
			},
			wantErr: true,
		},
		{
			name: "invalid port - zero",
			cfg: Config{
				App:  AppConfig{Name: "test"},
				GRPC: GRPCConfig{Port: 0},
			},
			wantErr: true,
		},
		{
			name: "invalid port - too high",
			cfg: Config{
				App:  AppConfig{Name: "test"},
				GRPC: GRPCConfig{Port: 70000},
			},
			wantErr: true,
		},
		{
			name: "invalid log level",
			cfg: Config{
				App:  AppConfig{Name: "test"},
				GRPC: GRPCConfig{Port: 50060},
				Log:  LogConfig{Level: "invalid"},
			},
			wantErr: true,
		},
		{
			name: "enabled vehicle class missing count",
			cfg: Config{
				App:  AppConfig{Name: "test"},
				GRPC: GRPCConfig{Port: 50060},
				Log:  LogConfig{Level: "info"},
				Routing: RoutingConfig{
					Fleet: []VehicleConfig{{Class: "VAN", Enabled: true, Capacity: 10, Count: 0}},
				},
			},
			wantErr: true,
		},
		{
			name: "enabled vehicle class missing capacity",
			cfg: Config{
				App:  AppConfig{Name: "test"},
				GRPC: GRPCConfig{Port: 50060},
				Log:  LogConfig{Level: "info"},
				Routing: RoutingConfig{
					Fleet: []VehicleConfig{{Class: "VAN", Enabled: true, Capacity: 0, Count: 3}},
				},
			},
			wantErr: true,
		},
		{
			name: "disabled vehicle class with bad values is ignored",
			cfg: Config{
				App:  AppConfig{Name: "test"},
				GRPC: GRPCConfig{Port: 50060},
				Log:  LogConfig{Level: "info"},
				Routing: RoutingConfig{
					Fleet: []VehicleConfig{{Class: "SPARE", Enabled: false, Capacity: 0, Count: 0}},
				},
			},
			wantErr: false,
		},
		{
			name: "valid fleet",
			cfg: Config{
				App:  AppConfig{Name: "test"},
				GRPC: GRPCConfig{Port: 50060},
				Log:  LogConfig{Level: "info"},
				Routing: RoutingConfig{
					Fleet: []VehicleConfig{
						{Class: "CENTER", Enabled: true, Capacity: 40, Count: 1},
						{Class: "VAN", Enabled: true, Capacity: 120, Count: 5},
					},
				},
			},
			wantErr: false,
		},
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

func TestConfig_IsDevelopment(t *testing.T) {
	tests := []struct {
		env  string
		want bool
	}{
		{"development", true},
		{"dev", true},
		{"production", false},
		{"staging", false},
	}

	for _, tt := range tests {
		cfg := &Config{App: AppConfig{Environment: tt.env}}
		if got := cfg.IsDevelopment(); got != tt.want {
			t.Errorf("IsDevelopment() for %s = %v, want %v", tt.env, got, tt.want)
		}
	}
}

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		env  string
		want bool
	}{
		{"production", true},
		{"prod", true},
		{"development", false},
		{"staging", false},
	}

	for _, tt := range tests {
		cfg := &Config{App: AppConfig{Environment: tt.env}}
		if got := cfg.IsProduction(); got != tt.want {
			t.Errorf("IsProduction() for %s = %v, want %v", tt.env, got, tt.want)
		}
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	tests := []struct {
		name   string
		cfg    DatabaseConfig
		expect string
	}{
		{
			name: "postgres",
			cfg: DatabaseConfig{
				Driver:   "postgres",
				Host:     "localhost",
				Port:     5432,
				Database: "routing",
				Username: "user",
				Password: "pass",
				SSLMode:  "disable",
			},
			expect: "host=localhost port=5432 user=user password=pass dbname=routing sslmode=disable",
		},
		{
			name:   "unknown driver",
			cfg:    DatabaseConfig{Driver: "mysql"},
			expect: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if dsn := tt.cfg.DSN(); dsn != tt.expect {
				t.Errorf("expected DSN %s, got %s", tt.expect, dsn)
			}
		})
	}
}

func TestCacheConfig_Address(t *testing.T) {
	cfg := CacheConfig{Host: "redis.local", Port: 6379}

	if addr := cfg.Address(); addr != "redis.local:6379" {
		t.Errorf("expected 'redis.local:6379', got %s", addr)
	}
}

func TestKeepAliveConfig(t *testing.T) {
	cfg := KeepAliveConfig{
		MaxConnectionIdle:     15 * time.Minute,
		MaxConnectionAge:      30 * time.Minute,
		MaxConnectionAgeGrace: 5 * time.Minute,
		Time:                  5 * time.Minute,
		Timeout:               20 * time.Second,
	}

	if cfg.MaxConnectionIdle != 15*time.Minute {
		t.Errorf("unexpected MaxConnectionIdle: %v", cfg.MaxConnectionIdle)
	}
}
