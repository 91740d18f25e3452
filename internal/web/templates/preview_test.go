package templates

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/JonMunkholm/leadsheets/internal/core"
)

func TestSheetPreview(t *testing.T) {
	table := &core.Table{
		Columns: []string{core.AcceptedColumn, "Company", "Raised"},
		Data: []core.Row{
			{core.String(core.CheckMark), core.String("<Acme & Co>"), core.Int(12)},
			{core.String(""), core.String("Globex"), core.Null()},
		},
	}

	var buf bytes.Buffer
	err := SheetPreview("Series A", []string{"Series A", "Seed Stage VC"}, table).Render(context.Background(), &buf)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	html := buf.String()

	for _, want := range []string{
		`<h1>Series A</h1>`,
		`<p>2 rows</p>`,
		`<th>Company</th>`,
		`&lt;Acme &amp; Co&gt;`,
		`<td class="flag">✓</td>`,
		`<td class="null"></td>`,
		`<a href="/preview/Seed%20Stage%20VC">Seed Stage VC</a>`,
		`<a href="/preview/Series%20A" class="active">`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if strings.Contains(html, "<Acme") {
		t.Error("cell text not escaped")
	}
}

func TestSheetPreview_EmptyTable(t *testing.T) {
	var buf bytes.Buffer
	if err := SheetPreview("Broken", nil, core.EmptyTable()).Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(buf.String(), "could not be loaded") {
		t.Errorf("empty table message missing:\n%s", buf.String())
	}
}

func TestErrorPage(t *testing.T) {
	var buf bytes.Buffer
	if err := ErrorPage(404, `sheet not found: <x>`).Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(buf.String(), "<h1>404</h1>") || !strings.Contains(buf.String(), "&lt;x&gt;") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}

func TestSheetPreview_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	if err := SheetPreview("Seed", nil, core.EmptyTable()).Render(ctx, &buf); err == nil {
		t.Error("Render() expected error for cancelled context")
	}
	if buf.Len() != 0 {
		t.Errorf("Render() wrote %d bytes after cancellation", buf.Len())
	}
}
