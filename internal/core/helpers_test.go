package core

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// writeSource writes content into dir/name and returns the full path.
func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// newTestLoader returns a UTF-8 loader over a fresh temp dir.
func newTestLoader(t *testing.T) (*Loader, string) {
	t.Helper()
	dir := t.TempDir()
	l, err := NewLoader(dir, "utf-8")
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}
	return l, dir
}

// quietLogger discards everything but keeps the output reachable for
// assertions.
func quietLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

// syntheticColumns is the prefix every loaded sheet starts with when the
// source has none of the flag columns.
var syntheticColumns = []string{PassFlagColumn, LinkedInAcceptedColumn, AcceptedColumn}

func withSynthetic(cols ...string) []string {
	return append(append([]string{}, syntheticColumns...), cols...)
}

// flagRow prefixes cells with the three empty synthetic cells.
func flagRow(cells ...Scalar) Row {
	return append(Row{String(""), String(""), String("")}, cells...)
}

func assertTable(t *testing.T, got *Table, wantCols []string, wantData []Row) {
	t.Helper()
	if diff := cmp.Diff(wantCols, got.Columns); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantData, got.Data); diff != "" {
		t.Errorf("data mismatch (-want +got):\n%s", diff)
	}
}
