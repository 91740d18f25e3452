package core

import (
	"net/url"
	"strconv"
	"strings"
)

// referenceURLColumn holds profile URLs in the accepted-connections export.
const referenceURLColumn = "LinkedIn"

// NormalizeLinkedInURL reduces a profile URL to scheme://host/path with the
// query, fragment and trailing slash removed, so that the same profile
// copied from different places compares equal. Values that are not http(s)
// URLs normalize to "".
func NormalizeLinkedInURL(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "http") {
		return ""
	}

	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		if i := strings.IndexAny(s, "?#"); i >= 0 {
			s = s[:i]
		}
		return trimTrailingSlash(s)
	}

	return u.Scheme + "://" + strings.ToLower(u.Host) + trimTrailingSlash(u.EscapedPath())
}

func trimTrailingSlash(s string) string {
	if s != "/" && strings.HasSuffix(s, "/") {
		return strings.TrimSuffix(s, "/")
	}
	return s
}

// isProfileColumn reports whether a column holds LinkedIn profile links, as
// opposed to flag or request-status columns that merely mention LinkedIn.
func isProfileColumn(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "linkedin") &&
		!strings.Contains(lower, "accepted") &&
		!strings.Contains(lower, "request")
}

// referenceURLs collects the normalized profile URLs of the reference
// table, read from its LinkedIn column or, failing that, its first column.
func referenceURLs(t *Table) map[string]bool {
	col, ok := t.ColumnIndex(referenceURLColumn)
	if !ok {
		col = 0
	}

	urls := make(map[string]bool)
	for _, row := range t.Data {
		if col >= len(row) {
			continue
		}
		if n := NormalizeLinkedInURL(row[col].Text()); n != "" {
			urls[n] = true
		}
	}
	return urls
}

// matchRows returns the indices of rows with any profile column whose URL
// is in accepted.
func matchRows(t *Table, accepted map[string]bool) []int {
	var cols []int
	for i, name := range t.Columns {
		if isProfileColumn(name) {
			cols = append(cols, i)
		}
	}
	if len(cols) == 0 {
		return nil
	}

	var matched []int
	for r, row := range t.Data {
		for _, c := range cols {
			if c >= len(row) {
				continue
			}
			if n := NormalizeLinkedInURL(row[c].Text()); n != "" && accepted[n] {
				matched = append(matched, r)
				break
			}
		}
	}
	return matched
}

// markLinkedInAccepted sets a true flag for each matched row, keeping flags
// already stored for other rows.
func markLinkedInAccepted(rec *OverlayRecord, rows []int) {
	if rec.LinkedInAccepted == nil {
		rec.LinkedInAccepted = Flags{}
	}
	for _, r := range rows {
		rec.LinkedInAccepted[strconv.Itoa(r)] = Bool(true)
	}
}
