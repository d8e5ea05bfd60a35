package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/patrickmn/go-cache"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	apperrors "ipo_applier/internal/errors"
	"ipo_applier/internal/models"
)

const (
	latestCacheKey = "reports:latest"
	qrSize         = 256
)

// ReportsHandler serves account reports.
type ReportsHandler struct {
	reports ReportIndex
	files   ReportFiles
	cache   *cache.Cache
	logger  *zap.Logger
}

// NewReportsHandler creates a new ReportsHandler. Latest reports are cached for ttl.
func NewReportsHandler(deps *Dependencies, ttl time.Duration) *ReportsHandler {
	return &ReportsHandler{
		reports: deps.Reports,
		files:   deps.Files,
		cache:   cache.New(ttl, 2*ttl),
		logger:  deps.Logger.Named("reports"),
	}
}

// Invalidate drops cached reports. Called after every run.
func (h *ReportsHandler) Invalidate() {
	h.cache.Flush()
}

// Latest returns the most recent report of every account.
func (h *ReportsHandler) Latest(w http.ResponseWriter, r *http.Request) {
	if cached, found := h.cache.Get(latestCacheKey); found {
		respondJSON(w, http.StatusOK, cached.([]*models.AccountReport))
		return
	}

	reports, err := h.reports.Latest(r.Context())
	if err != nil {
		respondError(w, h.logger, apperrors.Internal("loading reports", err))
		return
	}

	h.cache.SetDefault(latestCacheKey, reports)
	respondJSON(w, http.StatusOK, reports)
}

// Get returns the report file of one account, falling back to run history.
func (h *ReportsHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "account")

	report, err := h.files.Load(name)
	if err == nil {
		respondJSON(w, http.StatusOK, report)
		return
	}
	if !apperrors.IsNotFound(err) {
		respondError(w, h.logger, apperrors.Internal("reading report", err))
		return
	}

	report, err = h.reports.LatestForAccount(r.Context(), name)
	if err != nil {
		respondError(w, h.logger, apperrors.Internal("loading report", err))
		return
	}
	if report == nil {
		respondError(w, h.logger, apperrors.NotFoundf("no report for %s", name))
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// QR returns a PNG QR code linking to the account's report.
func (h *ReportsHandler) QR(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "account")

	png, err := qrcode.Encode(reportURL(r, name), qrcode.Medium, qrSize)
	if err != nil {
		respondError(w, h.logger, apperrors.Internal("encoding QR code", err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// reportURL builds the absolute report URL as seen by the client.
func reportURL(r *http.Request, accountName string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "https" || proto == "http" {
		scheme = proto
	}
	return fmt.Sprintf("%s://%s/api/reports/%s", scheme, r.Host, url.PathEscape(accountName))
}
