package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/link-traffic-analyzer/internal/analysis"
	"github.com/JakeFAU/link-traffic-analyzer/internal/export"
	"github.com/JakeFAU/link-traffic-analyzer/internal/metrics"
)

const (
	maxBodyBytes        = 8 << 20
	screenshotCacheRule = "public, max-age=86400"
	imageFetchTimeout   = 15 * time.Second
)

type analyzeRequest struct {
	URLs []string `json:"urls"`
}

type analyzeResponse struct {
	Results []analysis.Result `json:"results"`
}

type exportRequest struct {
	Results []analysis.Result `json:"results"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

// splitURLs separates entries that parse as absolute URLs from the rest.
func splitURLs(raw []string) (valid, invalid []string) {
	for _, u := range raw {
		if _, err := analysis.ParseURL(u); err != nil {
			invalid = append(invalid, "Invalid URL: "+u)
			continue
		}
		valid = append(valid, strings.TrimSpace(u))
	}
	return valid, invalid
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(s.logger, w, http.StatusBadRequest, "Please provide an array of URLs")
		return
	}
	if len(req.URLs) == 0 {
		writeError(s.logger, w, http.StatusBadRequest, "Please provide an array of URLs")
		return
	}
	valid, invalid := splitURLs(req.URLs)
	if len(valid) == 0 {
		writeError(s.logger, w, http.StatusBadRequest, "No valid URLs provided", invalid...)
		return
	}
	if len(invalid) > 0 {
		s.logger.Info("skipping invalid urls",
			zap.String("request_id", RequestID(r.Context())),
			zap.Strings("invalid", invalid),
		)
	}

	results := s.analyzer.AnalyzeURLs(r.Context(), valid)
	writeJSON(s.logger, w, http.StatusOK, analyzeResponse{Results: results})
}

// readExportRequest decodes the shared export body, writing a 400 when it
// carries no results.
func (s *Server) readExportRequest(w http.ResponseWriter, r *http.Request) ([]analysis.Result, bool) {
	var req exportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(s.logger, w, http.StatusBadRequest, "Invalid export request", err.Error())
		return nil, false
	}
	if len(req.Results) == 0 {
		writeError(s.logger, w, http.StatusBadRequest, "No results to export")
		return nil, false
	}
	return req.Results, true
}

func writeAttachment(logger *zap.Logger, w http.ResponseWriter, contentType, filename string, body *bytes.Buffer) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", fmt.Sprint(body.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := body.WriteTo(w); err != nil {
		logger.Debug("write attachment failed", zap.Error(err))
	}
}

func (s *Server) exportExcel(w http.ResponseWriter, r *http.Request) {
	results, ok := s.readExportRequest(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := export.WriteExcel(&buf, results, time.UTC); err != nil {
		s.logger.Error("excel export failed", zap.Error(err))
		writeError(s.logger, w, http.StatusInternalServerError, "Failed to generate Excel file")
		return
	}
	metrics.ObserveExport("excel")
	writeAttachment(s.logger, w, export.ExcelContentType, export.ExcelFilename(s.clock.Now()), &buf)
}

func (s *Server) exportPDF(w http.ResponseWriter, r *http.Request) {
	results, ok := s.readExportRequest(w, r)
	if !ok {
		return
	}
	writer := export.NewPDFWriter(s.imageLoader(r), s.logger.Named("pdf"))
	now := s.clock.Now()
	var buf bytes.Buffer
	if err := writer.Write(r.Context(), &buf, results, now); err != nil {
		s.logger.Error("pdf export failed", zap.Error(err))
		writeError(s.logger, w, http.StatusInternalServerError, "Failed to generate PDF")
		return
	}
	metrics.ObserveExport("pdf")
	writeAttachment(s.logger, w, export.PDFContentType, export.PDFFilename(now), &buf)
}

// imageLoader fetches screenshots back through the proxy route, resolving
// relative references against server.base_url or the incoming request.
func (s *Server) imageLoader(r *http.Request) export.ImageLoader {
	if s.images != nil {
		return s.images
	}
	base, err := url.Parse(s.cfg.Server.BaseURL)
	if s.cfg.Server.BaseURL == "" || err != nil {
		base = requestBase(r)
	}
	loader := export.HTTPImageLoader{
		Base:   base,
		Client: &http.Client{Timeout: imageFetchTimeout},
	}
	if s.cfg.Auth.Enabled {
		loader.Header = http.Header{"X-API-Key": {s.cfg.Auth.APIKey}}
	}
	return loader
}

func requestBase(r *http.Request) *url.URL {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}
	return &url.URL{Scheme: scheme, Host: r.Host}
}

func (s *Server) screenshot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil || s.screenshots == nil {
		writeError(s.logger, w, http.StatusNotFound, "Screenshot not found")
		return
	}
	data, err := s.screenshots.Screenshot(r.Context(), id)
	if err != nil {
		s.logger.Debug("screenshot unavailable", zap.String("scan_id", id), zap.Error(err))
		writeError(s.logger, w, http.StatusNotFound, "Screenshot not found")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", screenshotCacheRule)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Debug("write screenshot failed", zap.String("scan_id", id), zap.Error(err))
	}
}
