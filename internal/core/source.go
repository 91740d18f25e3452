package core

// source.go turns a sheet source file into a Table.
//
// Cell typing follows the usual data-frame CSV conventions, which the
// frontend relies on for sorting and display:
//
//   - The usual NA tokens ("", "NA", "N/A", "null", "#N/A", ...) become null
//   - A column whose non-null cells are all true/false becomes booleans
//   - A column whose non-null cells all parse as numbers becomes numbers
//   - Anything else stays a string
//
// Typing is decided per column, not per cell: a zip code column with one
// "N/A" stays numeric, one with "02134-1234" makes the whole column text.

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	intRegex     = regexp.MustCompile(`^[+-]?\d+$`)
	numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)
)

// naTokens are read as missing values.
var naTokens = map[string]bool{
	"": true, "#N/A": true, "#N/A N/A": true, "#NA": true, "-1.#IND": true,
	"-1.#QNAN": true, "-NaN": true, "-nan": true, "1.#IND": true, "1.#QNAN": true,
	"<NA>": true, "N/A": true, "NA": true, "NULL": true, "NaN": true, "None": true,
	"n/a": true, "nan": true, "null": true,
}

var boolTokens = map[string]bool{
	"True": true, "TRUE": true, "true": true,
	"False": false, "FALSE": false, "false": false,
}

// ErrEmptySource is returned for a source with no header row.
var ErrEmptySource = errors.New("no columns to parse from file")

// Loader reads sheet sources relative to a data directory.
type Loader struct {
	dir      string
	encoding encoding.Encoding
}

// NewLoader creates a Loader. encodingName is any WHATWG encoding label
// ("utf-8", "gbk", "windows-1252", ...) used for delimited text sources.
// A UTF-8 or UTF-16 byte order mark in a file overrides it.
func NewLoader(dir, encodingName string) (*Loader, error) {
	if encodingName == "" {
		encodingName = "utf-8"
	}
	enc, err := htmlindex.Get(encodingName)
	if err != nil {
		return nil, fmt.Errorf("unknown source encoding %q: %w", encodingName, err)
	}
	return &Loader{dir: dir, encoding: enc}, nil
}

// Dir returns the directory relative sheet paths resolve against.
func (l *Loader) Dir() string { return l.dir }

// Load reads a sheet source and injects the synthetic flag columns.
// Missing files return an error wrapping os.ErrNotExist.
func (l *Loader) Load(src SheetSource) (*Table, error) {
	table, err := l.LoadRaw(src)
	if err != nil {
		return nil, err
	}
	injectSyntheticColumns(table)
	return table, nil
}

// LoadRaw reads a source as-is, without synthetic columns.
func (l *Loader) LoadRaw(src SheetSource) (*Table, error) {
	path := src.resolve(l.dir)

	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		records, err = readWorkbook(path, src.Worksheet)
	case ".tsv", ".tab":
		records, err = l.readDelimited(path, '\t')
	default:
		records, err = l.readDelimited(path, ',')
	}
	if err != nil {
		return nil, err
	}

	return buildTable(records)
}

// readDelimited reads every record of a delimited text file, decoding it
// to UTF-8 first.
func (l *Loader) readDelimited(path string, delim rune) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer f.Close()

	return readRecords(l.decode(f), delim)
}

// decode wraps r so that it yields UTF-8, honoring a byte order mark.
// Invalid sequences become U+FFFD rather than failing the sheet.
func (l *Loader) decode(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(l.encoding.NewDecoder()))
}

func readRecords(r io.Reader, delim rune) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse source: %w", err)
	}
	return records, nil
}

// readWorkbook reads the raw cell values of one worksheet.
func readWorkbook(path, worksheet string) ([][]string, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if worksheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, ErrEmptySource
		}
		worksheet = sheets[0]
	}

	rows, err := f.GetRows(worksheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read worksheet %q: %w", worksheet, err)
	}

	// Blank spreadsheet rows are skipped like blank CSV lines.
	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		records = append(records, row)
	}
	return records, nil
}

// buildTable types the records and checks row widths. The first record is
// the header.
func buildTable(records [][]string) (*Table, error) {
	if len(records) == 0 {
		return nil, ErrEmptySource
	}

	columns := headerNames(records[0])
	width := len(columns)

	body := records[1:]
	for i, rec := range body {
		if len(rec) > width {
			return nil, fmt.Errorf("parse source: expected %d fields in line %d, saw %d", width, i+2, len(rec))
		}
	}

	table := &Table{
		Columns: columns,
		Data:    make([]Row, len(body)),
	}
	for i := range body {
		table.Data[i] = make(Row, width)
	}

	for col := 0; col < width; col++ {
		convert := columnConverter(body, col)
		for i, rec := range body {
			v := ""
			if col < len(rec) {
				v = rec[col]
			}
			if naTokens[v] {
				table.Data[i][col] = Null()
				continue
			}
			table.Data[i][col] = convert(v)
		}
	}

	return table, nil
}

// headerNames fills blank header cells and de-duplicates repeated names as
// X, X.1, X.2.
func headerNames(header []string) []string {
	names := make([]string, len(header))
	taken := make(map[string]bool, len(header))
	for _, h := range header {
		taken[h] = true
	}

	counts := make(map[string]int, len(header))
	for i, h := range header {
		name := h
		if strings.TrimSpace(name) == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}

		if n, dup := counts[name]; dup {
			candidate := name
			for {
				n++
				candidate = fmt.Sprintf("%s.%d", name, n)
				if !taken[candidate] {
					break
				}
			}
			counts[name] = n
			taken[candidate] = true
			names[i] = candidate
			continue
		}

		counts[name] = 0
		names[i] = name
	}
	return names
}

// columnConverter picks the typing for one column from its non-null cells.
func columnConverter(body [][]string, col int) func(string) Scalar {
	allBool, allInt, allNum := true, true, true
	for _, rec := range body {
		if col >= len(rec) || naTokens[rec[col]] {
			continue
		}
		v := rec[col]
		if _, ok := boolTokens[v]; !ok {
			allBool = false
		}
		t := strings.TrimSpace(v)
		if !intRegex.MatchString(t) {
			allInt = false
		} else if _, err := strconv.ParseInt(t, 10, 64); err != nil {
			allInt = false
		}
		if !numericRegex.MatchString(t) {
			allNum = false
		}
		if !allBool && !allNum {
			break
		}
	}

	switch {
	case allBool:
		return func(v string) Scalar { return Bool(boolTokens[v]) }
	case allInt:
		return func(v string) Scalar {
			i, _ := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			return Int(i)
		}
	case allNum:
		return func(v string) Scalar {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return String(v)
			}
			return Float(f)
		}
	default:
		return String
	}
}

// injectSyntheticColumns prepends the workflow flag columns the source does
// not already carry. Injected cells start as empty strings.
func injectSyntheticColumns(t *Table) {
	var prefix []string
	for _, name := range []string{PassFlagColumn, LinkedInAcceptedColumn, AcceptedColumn} {
		if _, exists := t.ColumnIndex(name); !exists {
			prefix = append(prefix, name)
		}
	}
	if len(prefix) == 0 {
		return
	}

	t.Columns = append(append(make([]string, 0, len(prefix)+len(t.Columns)), prefix...), t.Columns...)
	for i, row := range t.Data {
		widened := make(Row, 0, len(prefix)+len(row))
		for range prefix {
			widened = append(widened, String(""))
		}
		t.Data[i] = append(widened, row...)
	}
	t.index = nil
}
