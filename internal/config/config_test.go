package config

import (
	"os"
	"path/filepath"
	"testing"

	"procure/internal"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("REGISTRATION_PREFIX", "")
	os.Unsetenv("REGISTRATION_PREFIX")
	t.Setenv("USD_INR_RATE", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RegistrationPrefix != "VT-" {
		t.Fatalf("prefix=%q", cfg.RegistrationPrefix)
	}
	if cfg.USDINRRate != 84 {
		t.Fatalf("rate=%v", cfg.USDINRRate)
	}
	if cfg.DefaultSheet != "PURCHASE_ORDER" {
		t.Fatalf("sheet=%q", cfg.DefaultSheet)
	}
}

func TestLoadColumnProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "columns.yaml")
	blob := []byte("columns:\n  \"Order No.\": \"PO Number\"\n  \"A/C Reg. No\": \"Tail\"\n")
	if err := os.WriteFile(path, blob, 0o644); err != nil {
		t.Fatal(err)
	}

	profile, err := LoadColumnProfile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := profile.Header(internal.ColOrderNo); got != "PO Number" {
		t.Fatalf("order header=%q", got)
	}
	if got := profile.Header(internal.ColPartNo); got != "Part No." {
		t.Fatalf("part header=%q", got)
	}
}

func TestLoadColumnProfileUnknownColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "columns.yaml")
	if err := os.WriteFile(path, []byte("columns:\n  Nope: X\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadColumnProfile(path); err == nil {
		t.Fatal("expected error for unknown column")
	}
}
