package core

import (
	"bytes"
	"encoding/json"
)

// Synthetic column names injected ahead of every source's own columns.
// The frontend looks these up by name, so they are part of the API.
const (
	PassFlagColumn         = "是否通过linked申请?"
	LinkedInAcceptedColumn = "linkedin accepted?"
	AcceptedColumn         = "Accepted"
)

// CheckMark is written into a flag column for a truthy flag.
const CheckMark = "✓"

// Row is one ordered row of cells.
type Row []Scalar

// Table is one sheet as served to the client.
type Table struct {
	Columns []string `json:"columns"`
	Data    []Row    `json:"data"`

	index map[string]int
}

// EmptyTable is what a sheet that failed to load is served as.
func EmptyTable() *Table {
	return &Table{Columns: []string{}, Data: []Row{}}
}

// ColumnIndex returns the position of the named column.
// The name-to-index map is built on first use and reused afterwards.
func (t *Table) ColumnIndex(name string) (int, bool) {
	if t.index == nil {
		t.index = make(map[string]int, len(t.Columns))
		for i, c := range t.Columns {
			if _, dup := t.index[c]; !dup {
				t.index[c] = i
			}
		}
	}
	i, ok := t.index[name]
	return i, ok
}

// Sheet pairs a sheet name with its merged table.
type Sheet struct {
	Name  string
	Table *Table
}

// Workbook is the ordered set of sheets returned by a read. It marshals as
// a JSON object whose keys keep manifest order.
type Workbook []Sheet

// Get returns the table for a sheet name.
func (wb Workbook) Get(name string) (*Table, bool) {
	for _, s := range wb {
		if s.Name == name {
			return s.Table, true
		}
	}
	return nil, false
}

// MarshalJSON implements json.Marshaler.
func (wb Workbook) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, s := range wb {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(s.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		table := s.Table
		if table == nil {
			table = EmptyTable()
		}
		val, err := json.Marshal(table)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// CellEdits maps a row index to column index to replacement value. Both
// indices are decimal strings, as they appear in JSON object keys.
type CellEdits map[string]map[string]Scalar

// Flags maps a row index to an acceptance flag, read with Scalar.Truthy.
type Flags map[string]Scalar

// OverlayRecord is the persisted edit and flag state for one sheet.
// A nil field means the sheet has never saved that kind of state.
type OverlayRecord struct {
	EditedData       CellEdits `json:"edited_data,omitempty"`
	Accepted         Flags     `json:"accepted,omitempty"`
	LinkedInAccepted Flags     `json:"linkedin_accepted,omitempty"`
}

// Document is the whole overlay store: sheet name to record.
type Document map[string]*OverlayRecord

// SaveRequest is a partial update for one sheet. Only non-empty fields
// replace what is stored.
type SaveRequest struct {
	SheetName        string    `json:"sheet_name"`
	EditedData       CellEdits `json:"edited_data,omitempty"`
	Accepted         Flags     `json:"accepted,omitempty"`
	LinkedInAccepted Flags     `json:"linkedin_accepted,omitempty"`
}
