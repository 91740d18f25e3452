package core

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DefaultLoadConcurrency bounds parallel sheet loads when none is configured.
const DefaultLoadConcurrency = 4

// ServiceConfig wires a Service.
type ServiceConfig struct {
	Manifest Manifest
	Loader   *Loader
	Store    Store

	// LinkedInReference is the accepted-connections source, resolved like a
	// sheet path. Empty disables MatchLinkedIn.
	LinkedInReference string

	// LoadConcurrency bounds how many sheets are read at once.
	LoadConcurrency int

	Logger *slog.Logger
}

// Service serves merged sheets and records edits.
//
// Nothing is cached: every read reloads the sources and the overlay
// document. Saves are serialized so two concurrent saves cannot interleave
// their read-modify-write cycles and drop each other's sheets.
type Service struct {
	manifest    Manifest
	loader      *Loader
	store       Store
	reference   string
	concurrency int
	logger      *slog.Logger

	mu sync.Mutex // guards the overlay read-modify-write cycle
}

// NewService creates a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.Manifest.Validate(); err != nil {
		return nil, err
	}
	if cfg.Loader == nil {
		return nil, fmt.Errorf("service: loader is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("service: store is required")
	}

	concurrency := cfg.LoadConcurrency
	if concurrency <= 0 {
		concurrency = DefaultLoadConcurrency
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		manifest:    cfg.Manifest,
		loader:      cfg.Loader,
		store:       cfg.Store,
		reference:   cfg.LinkedInReference,
		concurrency: concurrency,
		logger:      logger,
	}, nil
}

// Sheets returns the served sheet names in order.
func (s *Service) Sheets() []string {
	return s.manifest.Names()
}

// LoadAll loads every sheet and overlays its saved state. A sheet that
// cannot be read is served empty and logged; only cancellation fails the
// whole call.
func (s *Service) LoadAll(ctx context.Context) (Workbook, error) {
	doc := s.loadDocument(ctx)

	wb := make(Workbook, len(s.manifest.Sheets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, src := range s.manifest.Sheets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			wb[i] = Sheet{Name: src.Name, Table: s.loadSheet(src, doc[src.Name])}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return wb, nil
}

// LoadSheet loads one sheet with its overlay applied.
func (s *Service) LoadSheet(ctx context.Context, name string) (*Table, error) {
	src, ok := s.manifest.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSheetNotFound, name)
	}

	doc := s.loadDocument(ctx)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.loadSheet(src, doc[name]), nil
}

// loadSheet never fails: load errors yield an empty table.
func (s *Service) loadSheet(src SheetSource, rec *OverlayRecord) *Table {
	logger := s.logger.With("sheet", src.Name)

	table, err := s.loader.Load(src)
	if err != nil {
		logger.Warn("failed to load sheet source", "path", src.Path, "error", err)
		return EmptyTable()
	}

	Merge(table, rec, logger)
	return table
}

// loadDocument reads the overlay document, falling back to an empty one if
// the store cannot be read. Raw sheet data is still served in that case.
func (s *Service) loadDocument(ctx context.Context) Document {
	doc, err := s.store.Load(ctx)
	if err != nil {
		s.logger.Error("failed to load overlay document, serving without edits", "error", err)
		return Document{}
	}
	if doc == nil {
		return Document{}
	}
	return doc
}

// loadDocumentForUpdate reads the document ahead of a write. A corrupt
// document is replaced by an empty one, but any other read failure aborts
// the write: saving a stand-in document would drop every other sheet's
// overlays from the store.
func (s *Service) loadDocumentForUpdate(ctx context.Context, logger *slog.Logger) (Document, error) {
	doc, err := s.store.Load(ctx)
	switch {
	case errors.Is(err, ErrCorruptDocument):
		logger.Error("overlay document is corrupt, starting from an empty one", "error", err)
		return Document{}, nil
	case err != nil:
		logger.Error("failed to load overlay document, refusing to save", "error", err)
		return nil, fmt.Errorf("%w: load overlay document: %v", ErrSaveFailed, err)
	case doc == nil:
		return Document{}, nil
	}
	return doc, nil
}

// Save records a partial update for one sheet and persists the whole
// document. Persistence failures wrap ErrSaveFailed, including a store that
// cannot be read, so a transient outage never overwrites saved state.
func (s *Service) Save(ctx context.Context, req SaveRequest) error {
	if req.SheetName == "" {
		return ErrMissingSheetName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	saveID := uuid.NewString()
	logger := s.logger.With("save_id", saveID, "sheet", req.SheetName)

	doc, err := s.loadDocumentForUpdate(ctx, logger)
	if err != nil {
		return err
	}
	if err := ApplyEdit(doc, req); err != nil {
		return err
	}

	if err := s.store.Save(ctx, doc); err != nil {
		logger.Error("failed to save overlay document", "error", err)
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}

	logger.Info("overlay saved",
		"edited_rows", len(req.EditedData),
		"accepted", len(req.Accepted),
		"linkedin_accepted", len(req.LinkedInAccepted),
	)
	return nil
}

// MatchLinkedIn flags every row whose LinkedIn profile appears in the
// reference source. Matches are added to each sheet's stored flags; rows
// already flagged either way are left as they are unless they match.
// It returns the number of matched rows per sheet.
func (s *Service) MatchLinkedIn(ctx context.Context) (map[string]int, error) {
	if s.reference == "" {
		return nil, ErrMatchDisabled
	}

	ref, err := s.loader.LoadRaw(SheetSource{Name: "linkedin reference", Path: s.reference})
	if err != nil {
		return nil, fmt.Errorf("load linkedin reference: %w", err)
	}
	accepted := referenceURLs(ref)
	s.logger.Info("linkedin reference loaded", "urls", len(accepted))

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadDocumentForUpdate(ctx, s.logger)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(s.manifest.Sheets))
	changed := false

	for _, src := range s.manifest.Sheets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		table, err := s.loader.Load(src)
		if err != nil {
			s.logger.Warn("skipping sheet for linkedin match", "sheet", src.Name, "error", err)
			continue
		}
		Merge(table, doc[src.Name], s.logger)

		rows := matchRows(table, accepted)
		counts[src.Name] = len(rows)
		if len(rows) == 0 {
			continue
		}

		rec := doc[src.Name]
		if rec == nil {
			rec = &OverlayRecord{}
			doc[src.Name] = rec
		}
		markLinkedInAccepted(rec, rows)
		changed = true
	}

	if changed {
		if err := s.store.Save(ctx, doc); err != nil {
			s.logger.Error("failed to save linkedin matches", "error", err)
			return nil, fmt.Errorf("%w: %v", ErrSaveFailed, err)
		}
	}
	return counts, nil
}

// ExportCSV writes one merged sheet as CSV, header first.
func (s *Service) ExportCSV(ctx context.Context, name string, w io.Writer) error {
	table, err := s.LoadSheet(ctx, name)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(table.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	record := make([]string, len(table.Columns))
	for _, row := range table.Data {
		for i := range record {
			record[i] = ""
			if i < len(row) {
				record[i] = row[i].Text()
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
