package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"path"

	"github.com/JonMunkholm/leadsheets/internal/core"
	"github.com/JonMunkholm/leadsheets/internal/logging"
	"github.com/JonMunkholm/leadsheets/internal/web/templates"
	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
)

// FrontendHint is served at / when no frontend bundle is deployed.
type FrontendHint struct {
	Message     string `json:"message"`
	DevServer   string `json:"dev_server"`
	APIEndpoint string `json:"api_endpoint"`
}

// handleData returns every sheet with its saved edits applied.
func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	wb, err := s.service.LoadAll(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wb)
}

// handleSheets returns the served sheet names in order.
func (s *Server) handleSheets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Sheets())
}

// handleSave records a partial update for one sheet.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodySize)

	var req core.SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondStatusError(w, r, fmt.Errorf("decode request: %w", err))
		return
	}

	if err := s.service.Save(r.Context(), req); err != nil {
		respondStatusError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{Status: statusSuccess, Message: "data saved"})
}

// handleExport downloads one merged sheet as CSV.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "sheet")

	var buf bytes.Buffer
	if err := s.service.ExportCSV(r.Context(), name, &buf); err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": name + ".csv",
	}))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		logging.FromContext(r.Context()).Warn("export write failed", "sheet", name, "error", err)
	}
}

// handleMatchLinkedIn flags rows whose profile is in the accepted
// connections export.
func (s *Server) handleMatchLinkedIn(w http.ResponseWriter, r *http.Request) {
	counts, err := s.service.MatchLinkedIn(r.Context())
	if err != nil {
		respondStatusError(w, r, err)
		return
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	writeJSON(w, http.StatusOK, StatusResponse{
		Status:  statusSuccess,
		Message: fmt.Sprintf("%d rows matched", total),
		Matched: counts,
	})
}

// handlePreview renders one merged sheet as HTML.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "sheet")

	table, err := s.service.LoadSheet(r.Context(), name)
	if err != nil {
		code, message := classifyError(err)
		logRequestError(r, err, code)
		templ.Handler(templates.ErrorPage(code, message), templ.WithStatus(code)).ServeHTTP(w, r)
		return
	}

	templ.Handler(templates.SheetPreview(name, s.service.Sheets(), table)).ServeHTTP(w, r)
}

// handleIndex serves the frontend bundle's index.html, or a JSON hint
// pointing at the dev server when no bundle has been built.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.serveDistFile(w, r, "/index.html") {
		return
	}

	writeJSON(w, http.StatusOK, FrontendHint{
		Message:     "frontend bundle not built; use the dev server",
		DevServer:   s.cfg.Server.DevServerURL,
		APIEndpoint: "http://" + s.cfg.Server.Addr() + "/api/data",
	})
}

// handleAsset serves other bundle files verbatim.
func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		if s.serveDistFile(w, r, r.URL.Path) {
			return
		}
	}
	writeError(w, http.StatusNotFound, "not found")
}

// serveDistFile writes a regular file from the dist directory and reports
// whether it did. http.Dir keeps the lookup inside the directory.
func (s *Server) serveDistFile(w http.ResponseWriter, r *http.Request, name string) bool {
	if s.cfg.Data.DistDir == "" {
		return false
	}

	f, err := http.Dir(s.cfg.Data.DistDir).Open(path.Clean("/" + name))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logging.FromContext(r.Context()).Warn("open bundle file", "path", name, "error", err)
		}
		return false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		return false
	}

	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	return true
}
