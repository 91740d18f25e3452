package core

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/simplifiedchinese"
)

func TestLoader_TypesColumns(t *testing.T) {
	l, dir := newTestLoader(t)
	writeSource(t, dir, "leads.csv", "Name,Age,Score,Active\nAlice,30,1.5,True\nBob,,2,False\n")

	got, err := l.Load(SheetSource{Name: "leads", Path: "leads.csv"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	assertTable(t, got,
		withSynthetic("Name", "Age", "Score", "Active"),
		[]Row{
			flagRow(String("Alice"), Int(30), Float(1.5), Bool(true)),
			flagRow(String("Bob"), Null(), Float(2), Bool(false)),
		},
	)
}

func TestLoader_MixedColumnStaysText(t *testing.T) {
	l, dir := newTestLoader(t)
	writeSource(t, dir, "zips.csv", "Zip\n02134\n02134-1234\n")

	got, err := l.Load(SheetSource{Name: "zips", Path: "zips.csv"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	assertTable(t, got,
		withSynthetic("Zip"),
		[]Row{
			flagRow(String("02134")),
			flagRow(String("02134-1234")),
		},
	)
}

func TestLoader_NATokensBecomeNull(t *testing.T) {
	l, dir := newTestLoader(t)
	writeSource(t, dir, "na.csv", "Note\nN/A\nfoo\nnull\n#N/A\nNone\n")

	got, err := l.Load(SheetSource{Name: "na", Path: "na.csv"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	assertTable(t, got,
		withSynthetic("Note"),
		[]Row{
			flagRow(Null()),
			flagRow(String("foo")),
			flagRow(Null()),
			flagRow(Null()),
			flagRow(Null()),
		},
	)
}

func TestLoader_ExistingAcceptedColumnKept(t *testing.T) {
	l, dir := newTestLoader(t)
	writeSource(t, dir, "acc.csv", "Company,Accepted\nAcme,yes\n")

	got, err := l.Load(SheetSource{Name: "acc", Path: "acc.csv"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	assertTable(t, got,
		[]string{PassFlagColumn, LinkedInAcceptedColumn, "Company", "Accepted"},
		[]Row{{String(""), String(""), String("Acme"), String("yes")}},
	)

	if i, _ := got.ColumnIndex(AcceptedColumn); i != 3 {
		t.Errorf("ColumnIndex(Accepted) = %d, want 3", i)
	}
}

func TestLoader_ShortRowsPadWithNull(t *testing.T) {
	l, dir := newTestLoader(t)
	writeSource(t, dir, "short.csv", "A,B,C\n1\n2,x,y\n")

	got, err := l.Load(SheetSource{Name: "short", Path: "short.csv"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	assertTable(t, got,
		withSynthetic("A", "B", "C"),
		[]Row{
			flagRow(Int(1), Null(), Null()),
			flagRow(Int(2), String("x"), String("y")),
		},
	)
}

func TestLoader_LongRowFails(t *testing.T) {
	l, dir := newTestLoader(t)
	writeSource(t, dir, "long.csv", "A,B\n1,2,3\n")

	_, err := l.Load(SheetSource{Name: "long", Path: "long.csv"})
	if err == nil {
		t.Fatal("Load() expected error for row wider than header")
	}
	if !strings.Contains(err.Error(), "expected 2 fields") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoader_DuplicateAndBlankHeaders(t *testing.T) {
	l, dir := newTestLoader(t)
	writeSource(t, dir, "dup.csv", "Email,Email,,Email\na,b,c,d\n")

	got, err := l.LoadRaw(SheetSource{Name: "dup", Path: "dup.csv"})
	if err != nil {
		t.Fatalf("LoadRaw() error = %v", err)
	}

	assertTable(t, got,
		[]string{"Email", "Email.1", "Unnamed: 2", "Email.2"},
		[]Row{{String("a"), String("b"), String("c"), String("d")}},
	)
}

func TestLoader_SkipsBOM(t *testing.T) {
	l, dir := newTestLoader(t)
	writeSource(t, dir, "bom.csv", "\xEF\xBB\xBFName\nAcme\n")

	got, err := l.LoadRaw(SheetSource{Name: "bom", Path: "bom.csv"})
	if err != nil {
		t.Fatalf("LoadRaw() error = %v", err)
	}
	assertTable(t, got, []string{"Name"}, []Row{{String("Acme")}})
}

func TestLoader_DecodesConfiguredEncoding(t *testing.T) {
	dir := t.TempDir()
	encoded, err := simplifiedchinese.GBK.NewEncoder().String("公司,城市\n字节跳动,北京\n")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	writeSource(t, dir, "gbk.csv", encoded)

	l, err := NewLoader(dir, "gbk")
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}
	got, err := l.LoadRaw(SheetSource{Name: "gbk", Path: "gbk.csv"})
	if err != nil {
		t.Fatalf("LoadRaw() error = %v", err)
	}
	assertTable(t, got, []string{"公司", "城市"}, []Row{{String("字节跳动"), String("北京")}})
}

func TestNewLoader_UnknownEncoding(t *testing.T) {
	if _, err := NewLoader(t.TempDir(), "klingon-8"); err == nil {
		t.Fatal("NewLoader() expected error for unknown encoding")
	}
}

func TestLoader_TabSeparated(t *testing.T) {
	l, dir := newTestLoader(t)
	writeSource(t, dir, "leads.tsv", "Name\tRaised\nAcme, Inc.\t12\n")

	got, err := l.LoadRaw(SheetSource{Name: "tsv", Path: "leads.tsv"})
	if err != nil {
		t.Fatalf("LoadRaw() error = %v", err)
	}
	assertTable(t, got, []string{"Name", "Raised"}, []Row{{String("Acme, Inc."), Int(12)}})
}

func TestLoader_MissingFile(t *testing.T) {
	l, _ := newTestLoader(t)

	_, err := l.Load(SheetSource{Name: "gone", Path: "gone.csv"})
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() error = %v, want os.ErrNotExist", err)
	}

	_, err = l.Load(SheetSource{Name: "gone", Path: "gone.xlsx"})
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() xlsx error = %v, want os.ErrNotExist", err)
	}
}

func TestLoader_EmptyFile(t *testing.T) {
	l, dir := newTestLoader(t)
	writeSource(t, dir, "empty.csv", "")

	_, err := l.Load(SheetSource{Name: "empty", Path: "empty.csv"})
	if !errors.Is(err, ErrEmptySource) {
		t.Errorf("Load() error = %v, want ErrEmptySource", err)
	}
}

func TestLoader_HeaderOnly(t *testing.T) {
	l, dir := newTestLoader(t)
	writeSource(t, dir, "header.csv", "Name,Stage\n")

	got, err := l.Load(SheetSource{Name: "header", Path: "header.csv"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	assertTable(t, got, withSynthetic("Name", "Stage"), []Row{})
}

func TestLoader_Workbook(t *testing.T) {
	l, dir := newTestLoader(t)

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Ignored"}); err != nil {
		t.Fatalf("SetSheetRow: %v", err)
	}
	if _, err := f.NewSheet("Q3"); err != nil {
		t.Fatalf("NewSheet: %v", err)
	}
	if err := f.SetSheetRow("Q3", "A1", &[]interface{}{"Company", "Raised"}); err != nil {
		t.Fatalf("SetSheetRow: %v", err)
	}
	if err := f.SetSheetRow("Q3", "A2", &[]interface{}{"Acme", 1200}); err != nil {
		t.Fatalf("SetSheetRow: %v", err)
	}
	if err := f.SaveAs(filepath.Join(dir, "pipeline.xlsx")); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}

	got, err := l.Load(SheetSource{Name: "pipeline", Path: "pipeline.xlsx", Worksheet: "Q3"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	assertTable(t, got,
		withSynthetic("Company", "Raised"),
		[]Row{flagRow(String("Acme"), Int(1200))},
	)

	first, err := l.LoadRaw(SheetSource{Name: "pipeline", Path: "pipeline.xlsx"})
	if err != nil {
		t.Fatalf("LoadRaw() error = %v", err)
	}
	assertTable(t, first, []string{"Ignored"}, []Row{})
}
