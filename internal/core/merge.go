package core

import (
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Merge applies a sheet's overlay record to a freshly loaded table, in
// place. The order is fixed: cell edits first, then LinkedIn flags, then
// accepted flags, so a flag always wins over an edit to the same cell.
//
// Indices outside the table are ignored; the table never grows. Keys are
// visited in sorted order so that "1" and "01" in one record resolve the
// same way on every read. A nil record leaves the table untouched.
func Merge(t *Table, rec *OverlayRecord, logger *slog.Logger) {
	if t == nil || rec == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}

	for _, rowKey := range slices.Sorted(maps.Keys(rec.EditedData)) {
		cells := rec.EditedData[rowKey]
		row, ok := parseIndex(rowKey, len(t.Data))
		if !ok {
			logger.Debug("skipping edit outside table", "row", rowKey)
			continue
		}
		for _, colKey := range slices.Sorted(maps.Keys(cells)) {
			value := cells[colKey]
			col, ok := parseIndex(colKey, len(t.Data[row]))
			if !ok {
				logger.Debug("skipping edit outside row", "row", rowKey, "col", colKey)
				continue
			}
			t.Data[row][col] = value
		}
	}

	applyFlags(t, LinkedInAcceptedColumn, rec.LinkedInAccepted, logger)
	applyFlags(t, AcceptedColumn, rec.Accepted, logger)
}

// applyFlags writes a check mark or an empty string into the named column
// for each flagged row.
func applyFlags(t *Table, column string, flags Flags, logger *slog.Logger) {
	if len(flags) == 0 {
		return
	}
	col, ok := t.ColumnIndex(column)
	if !ok {
		logger.Debug("flag column missing, skipping flags", "column", column)
		return
	}

	for _, rowKey := range slices.Sorted(maps.Keys(flags)) {
		flag := flags[rowKey]
		row, ok := parseIndex(rowKey, len(t.Data))
		if !ok || col >= len(t.Data[row]) {
			logger.Debug("skipping flag outside table", "column", column, "row", rowKey)
			continue
		}
		if flag.Truthy() {
			t.Data[row][col] = String(CheckMark)
		} else {
			t.Data[row][col] = String("")
		}
	}
}

// parseIndex parses a decimal index key and checks it against [0, n).
func parseIndex(key string, n int) (int, bool) {
	i, err := strconv.Atoi(strings.TrimSpace(key))
	if err != nil || i < 0 || i >= n {
		return 0, false
	}
	return i, true
}
