package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigFallsBackToDefaultsWhenFileMissing(t *testing.T) {
	dir := t.TempDir()
	cfg, err := loadConfig(filepath.Join(dir, "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Storage.DatabasePath == "" {
		t.Fatal("expected defaults to be applied, got empty DatabasePath")
	}
}

func TestLoadConfigReadsExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "xfeed.yaml")
	content := "storage:\n  database_path: ./custom.db\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	want := filepath.Join(dir, "custom.db")
	if cfg.Storage.DatabasePath != want {
		t.Fatalf("expected %q, got %q", want, cfg.Storage.DatabasePath)
	}
}

func TestTruncateForDisplayLeavesShortStringsUnchanged(t *testing.T) {
	s := "short tweet"
	if got := truncateForDisplay(s, 200); got != s {
		t.Fatalf("expected unchanged, got %q", got)
	}
}

func TestTruncateForDisplayTrimsLongStrings(t *testing.T) {
	s := "this sentence is going to be cut off before the end"
	got := truncateForDisplay(s, 10)
	want := "this sente..."
	if got != want {
		t.Fatalf("truncateForDisplay() = %q, want %q", got, want)
	}
}

func TestTruncateForDisplayCountsRunesNotBytes(t *testing.T) {
	s := "日本語のテキストはルーンで数える必要がある"
	got := truncateForDisplay(s, 5)
	if r := []rune(got); len(r) != 8 { // 5 runes + "..."
		t.Fatalf("expected 5 runes plus ellipsis, got %q (%d runes)", got, len(r))
	}
}

func TestFormatBytes(t *testing.T) {
	cases := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1024 * 1024, "1.0 MiB"},
		{1024 * 1024 * 1024, "1.0 GiB"},
	}
	for _, c := range cases {
		if got := formatBytes(c.n); got != c.want {
			t.Errorf("formatBytes(%d) = %q, want %q", c.n, got, c.want)
		}
	}
}
