package core

import (
	"context"
	"errors"
)

// Sentinel errors matched by the web layer with errors.Is.
var (
	ErrMissingSheetName = errors.New("missing sheet_name parameter")
	ErrSaveFailed       = errors.New("save failed")
	ErrSheetNotFound    = errors.New("sheet not found")
	ErrMatchDisabled    = errors.New("linkedin matching is not configured")

	// ErrCorruptDocument marks a stored document that was read but could
	// not be decoded. Any other Load error is treated as transient.
	ErrCorruptDocument = errors.New("overlay document is corrupt")
)

// Store persists the overlay document. Load returns an empty document, not
// an error, when nothing has been saved yet. Save replaces the whole
// document.
type Store interface {
	Load(ctx context.Context) (Document, error)
	Save(ctx context.Context, doc Document) error
}

// ApplyEdit folds a save request into doc. Each of the three fields that is
// present and non-empty replaces the stored field wholesale; there is no
// per-cell merge, so sending edited_data {"3": {...}} drops every other
// edited row for that sheet. Empty fields leave stored state alone, which
// also means a field can never be cleared through a save.
func ApplyEdit(doc Document, req SaveRequest) error {
	if req.SheetName == "" {
		return ErrMissingSheetName
	}

	rec, ok := doc[req.SheetName]
	if !ok || rec == nil {
		rec = &OverlayRecord{}
		doc[req.SheetName] = rec
	}

	if len(req.EditedData) > 0 {
		rec.EditedData = req.EditedData
	}
	if len(req.Accepted) > 0 {
		rec.Accepted = req.Accepted
	}
	if len(req.LinkedInAccepted) > 0 {
		rec.LinkedInAccepted = req.LinkedInAccepted
	}
	return nil
}
