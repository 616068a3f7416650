package config

import "testing"

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")
	t.Setenv("OWNER_PASSWORD", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
	if cfg.OwnerPassword != "" {
		t.Fatalf("expected empty OWNER_PASSWORD when unset, got %q", cfg.OwnerPassword)
	}
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"CATALOG_DRIVER", "SQLITE_PATH", "SUGGESTION_TTL_SECONDS", "BILL_PREFIX", "PORT"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.CatalogDriver != DriverSQLite || cfg.SQLitePath != "inventory.db" {
		t.Fatalf("unexpected catalog defaults: %q %q", cfg.CatalogDriver, cfg.SQLitePath)
	}
	if cfg.SuggestionTTLSeconds != 30 || cfg.BillPrefix != "BILL-" || cfg.Address() != ":8080" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadFallsBackOnBadNumbers(t *testing.T) {
	t.Setenv("SUGGESTION_TTL_SECONDS", "-4")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "soon")

	cfg := Load()
	if cfg.SuggestionTTLSeconds != 30 || cfg.AccessTokenTTLMinutes != 720 {
		t.Fatalf("expected fallbacks, got ttl=%d token=%d", cfg.SuggestionTTLSeconds, cfg.AccessTokenTTLMinutes)
	}
}

func TestValidateCatalogDriver(t *testing.T) {
	cases := []struct {
		cfg     Config
		wantErr bool
	}{
		{Config{CatalogDriver: DriverMemory}, false},
		{Config{CatalogDriver: DriverSQLite, SQLitePath: "x.db"}, false},
		{Config{CatalogDriver: DriverSQLite}, true},
		{Config{CatalogDriver: DriverPostgres}, true},
		{Config{CatalogDriver: DriverPostgres, DatabaseURL: "postgres://x"}, false},
		{Config{CatalogDriver: "mongo"}, true},
	}
	for _, tc := range cases {
		if err := tc.cfg.Validate(); (err != nil) != tc.wantErr {
			t.Errorf("Validate(%q) err=%v, wantErr=%t", tc.cfg.CatalogDriver, err, tc.wantErr)
		}
	}
}
