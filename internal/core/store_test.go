package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestApplyEdit(t *testing.T) {
	stored := func() Document {
		return Document{
			"Series A": {
				EditedData: CellEdits{"0": {"3": String("old")}, "1": {"3": String("kept?")}},
				Accepted:   Flags{"0": Bool(true)},
			},
		}
	}

	tests := []struct {
		name string
		req  SaveRequest
		want Document
	}{
		{
			name: "new sheet gets a record",
			req:  SaveRequest{SheetName: "Seed", Accepted: Flags{"2": Bool(true)}},
			want: Document{
				"Series A": stored()["Series A"],
				"Seed":     {Accepted: Flags{"2": Bool(true)}},
			},
		},
		{
			name: "edited data is replaced wholesale",
			req:  SaveRequest{SheetName: "Series A", EditedData: CellEdits{"3": {"4": String("new")}}},
			want: Document{
				"Series A": {
					EditedData: CellEdits{"3": {"4": String("new")}},
					Accepted:   Flags{"0": Bool(true)},
				},
			},
		},
		{
			name: "empty fields leave stored state",
			req:  SaveRequest{SheetName: "Series A", Accepted: Flags{}},
			want: stored(),
		},
		{
			name: "linkedin flags stored alongside",
			req:  SaveRequest{SheetName: "Series A", LinkedInAccepted: Flags{"1": Bool(false)}},
			want: Document{
				"Series A": {
					EditedData:       CellEdits{"0": {"3": String("old")}, "1": {"3": String("kept?")}},
					Accepted:         Flags{"0": Bool(true)},
					LinkedInAccepted: Flags{"1": Bool(false)},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := stored()
			if err := ApplyEdit(doc, tt.req); err != nil {
				t.Fatalf("ApplyEdit() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, doc); diff != "" {
				t.Errorf("document mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestApplyEdit_MissingSheetName(t *testing.T) {
	doc := Document{}
	err := ApplyEdit(doc, SaveRequest{Accepted: Flags{"0": Bool(true)}})
	if !errors.Is(err, ErrMissingSheetName) {
		t.Errorf("ApplyEdit() error = %v, want ErrMissingSheetName", err)
	}
	if len(doc) != 0 {
		t.Errorf("document changed on error: %v", doc)
	}
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data_storage.json")
	store := NewFileStore(path)

	doc, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() on missing file error = %v", err)
	}
	if len(doc) != 0 {
		t.Errorf("Load() on missing file = %v, want empty", doc)
	}

	want := Document{
		"a16z-gaming": {
			EditedData: CellEdits{"0": {"5": String("字节跳动 <CEO>")}},
			Accepted:   Flags{"0": Bool(true)},
		},
	}
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read saved file: %v", err)
	}
	if !strings.Contains(string(raw), "字节跳动 <CEO>") {
		t.Errorf("saved file escapes text:\n%s", raw)
	}
	if !strings.Contains(string(raw), "\n  \"a16z-gaming\"") {
		t.Errorf("saved file not indented:\n%s", raw)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestFileStore_LoadEdgeCases(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"empty file", "", false},
		{"whitespace only", " \n\t", false},
		{"empty object", "{}", false},
		{"invalid json", "{not json", true},
		{"wrong shape", `["a"]`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeSource(t, t.TempDir(), "data_storage.json", tt.content)
			doc, err := NewFileStore(path).Load(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrCorruptDocument) {
				t.Errorf("Load() error = %v, want ErrCorruptDocument", err)
			}
			if !tt.wantErr && len(doc) != 0 {
				t.Errorf("Load() = %v, want empty", doc)
			}
		})
	}
}

func TestFileStore_ReadsLegacyDocument(t *testing.T) {
	content := `{
  "Series A": {
    "edited_data": {"0": {"3": "Acme Corp", "4": 12.5}},
    "accepted": {"0": true, "2": false},
    "linkedin_accepted": {"1": 1}
  }
}`
	path := writeSource(t, t.TempDir(), "data_storage.json", content)

	doc, err := NewFileStore(path).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := Document{
		"Series A": {
			EditedData:       CellEdits{"0": {"3": String("Acme Corp"), "4": Number("12.5")}},
			Accepted:         Flags{"0": Bool(true), "2": Bool(false)},
			LinkedInAccepted: Flags{"1": Number("1")},
		},
	}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Errorf("document mismatch (-want +got):\n%s", diff)
	}
}

func TestFileStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := NewFileStore(filepath.Join(t.TempDir(), "data_storage.json"))
	if err := store.Save(ctx, Document{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Save() error = %v, want context.Canceled", err)
	}
	if _, err := os.Stat(store.Path()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Save() with cancelled context wrote %s", store.Path())
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	doc, err := store.Load(ctx)
	if err != nil || len(doc) != 0 {
		t.Fatalf("Load() = %v, %v; want empty document", doc, err)
	}

	saved := Document{"Seed": {Accepted: Flags{"0": Bool(true)}}}
	if err := store.Save(ctx, saved); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// Mutating the caller's copy must not reach the store.
	saved["Seed"].Accepted["1"] = Bool(true)

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := Document{"Seed": {Accepted: Flags{"0": Bool(true)}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("document mismatch (-want +got):\n%s", diff)
	}
	if store.Saves() != 1 {
		t.Errorf("Saves() = %d, want 1", store.Saves())
	}

	store.SaveErr = errors.New("disk full")
	if err := store.Save(ctx, Document{}); err == nil {
		t.Error("Save() expected injected error")
	}
	if store.Saves() != 1 {
		t.Errorf("Saves() after failure = %d, want 1", store.Saves())
	}
}
