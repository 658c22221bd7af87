package store

import (
	"net/url"
	"testing"
	"time"
)

func TestPoolSettingsFromEnv(t *testing.T) {
	intCases := []struct {
		raw  string
		want int
	}{
		{raw: "", want: 3},
		{raw: "8", want: 8},
		{raw: "many", want: 3},
		{raw: "-1", want: 3},
	}
	for _, tc := range intCases {
		t.Setenv(maxIdleConnsEnvKey, tc.raw)
		if got := intFromEnv(maxIdleConnsEnvKey, 3); got != tc.want {
			t.Fatalf("%s=%q: expected %d, got %d", maxIdleConnsEnvKey, tc.raw, tc.want, got)
		}
	}

	durationCases := []struct {
		raw  string
		want time.Duration
	}{
		{raw: "", want: time.Minute},
		{raw: "90s", want: 90 * time.Second},
		{raw: "15", want: 15 * time.Second},
		{raw: "soon", want: time.Minute},
	}
	for _, tc := range durationCases {
		t.Setenv(connMaxLifetimeEnvKey, tc.raw)
		if got := durationFromEnv(connMaxLifetimeEnvKey, time.Minute); got != tc.want {
			t.Fatalf("%s=%q: expected %v, got %v", connMaxLifetimeEnvKey, tc.raw, tc.want, got)
		}
	}
}

func TestSQLiteDSN(t *testing.T) {
	if _, err := sqliteDSN(""); err == nil {
		t.Fatal("expected empty path to be rejected")
	}

	dsn, err := sqliteDSN("/var/lib/streamify/media db.sqlite")
	if err != nil {
		t.Fatalf("dsn: %v", err)
	}
	u, err := url.Parse(dsn)
	if err != nil {
		t.Fatalf("parse dsn %q: %v", dsn, err)
	}
	if u.Scheme != "file" || u.Path != "/var/lib/streamify/media db.sqlite" {
		t.Fatalf("unexpected dsn %q", dsn)
	}
	if pragmas := u.Query()["_pragma"]; len(pragmas) != 2 {
		t.Fatalf("expected busy_timeout and foreign_keys pragmas, got %v", pragmas)
	}
}
