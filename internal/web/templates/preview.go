// Package templates renders the server-side HTML pages. The pages are
// written in preview.templ; run `templ generate` after editing it.
package templates

import (
	"net/url"

	"github.com/JonMunkholm/leadsheets/internal/core"
)

// previewHref links to another sheet's preview page.
func previewHref(sheet string) string {
	return "/preview/" + url.PathEscape(sheet)
}

// flagColumns returns the positions of the synthetic flag columns present
// in table.
func flagColumns(table *core.Table) map[int]bool {
	cols := make(map[int]bool, 3)
	for _, c := range []string{core.PassFlagColumn, core.LinkedInAcceptedColumn, core.AcceptedColumn} {
		if i, ok := table.ColumnIndex(c); ok {
			cols[i] = true
		}
	}
	return cols
}
