package metrics

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetSysHealth(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "recetario.db"), make([]byte, 10), 0644); err != nil {
		t.Fatal(err)
	}

	health := GetSysHealth(dir)
	if health.Goroutines < 1 {
		t.Errorf("unexpected goroutine count: %d", health.Goroutines)
	}
	if health.DataSize != "10 B" {
		t.Errorf("unexpected data size: %q", health.DataSize)
	}
}

func TestFormatBytes(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{2048, "2.0 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
	}
	for _, tc := range cases {
		if got := formatBytes(tc.in); got != tc.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
