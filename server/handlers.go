package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"optihome/models"
	"optihome/services"
)

const (
	defaultPageLimit = 100
	maxPageLimit     = 500
	maxScrapePages   = 50
)

type propertiesResponse struct {
	Items []*models.Property `json:"items"`
	Total int                `json:"total"`
}

type binSelectRequest struct {
	RangeStart float64 `json:"rangeStart"`
	RangeEnd   float64 `json:"rangeEnd"`
	// Apply requests the filter delta; without it the selection is
	// display-only.
	Apply bool `json:"apply"`
}

type binSelectResponse struct {
	Bin        models.HistogramBin `json:"bin"`
	Properties []*models.Property  `json:"properties"`
	Total      int                 `json:"total"`
	Filter     *models.Filter      `json:"filter,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleListProperties serves the filtered, paginated listing.
func (s *Server) handleListProperties(w http.ResponseWriter, r *http.Request) {
	f, offset, limit, err := parseListQuery(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, total, err := s.store.FetchFiltered(f, offset, limit)
	if err != nil {
		s.logger.Error("[server] List properties failed: %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to fetch properties")
		return
	}
	if items == nil {
		items = []*models.Property{}
	}

	s.writeJSON(w, http.StatusOK, propertiesResponse{Items: items, Total: total})
}

// handleStats serves per-attribute statistics over the full dataset.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	props, err := s.store.FetchAll()
	if err != nil {
		s.logger.Error("[server] Stats fetch failed: %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to fetch properties")
		return
	}

	s.writeJSON(w, http.StatusOK, s.stats.Compute(props, s.store.Version()))
}

// handleSelectBin resolves a bin selection to the matching property subset
// and, when requested, the translated filter delta.
func (s *Server) handleSelectBin(w http.ResponseWriter, r *http.Request) {
	attr := models.Attribute(chi.URLParam(r, "attribute"))
	if !attr.Valid() {
		s.writeError(w, http.StatusBadRequest, "unknown attribute")
		return
	}

	var req binSelectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	props, err := s.store.FetchAll()
	if err != nil {
		s.logger.Error("[server] Bin select fetch failed: %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to fetch properties")
		return
	}

	bins := s.stats.Compute(props, s.store.Version())[attr].Histogram
	idx := services.LocateBin(bins, req.RangeStart)
	if idx < 0 {
		s.writeError(w, http.StatusNotFound, "no histogram available for attribute")
		return
	}

	subset := services.PropertiesInBin(props, attr, bins, idx)

	var filter *models.Filter
	if req.Apply {
		filter = s.translator.Translate(attr, bins[idx], props)
	}

	s.writeJSON(w, http.StatusOK, binSelectResponse{
		Bin:        bins[idx],
		Properties: subset,
		Total:      len(subset),
		Filter:     filter,
	})
}

// handleScrapeRun launches an asynchronous scrape run.
func (s *Server) handleScrapeRun(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	if kind == "" {
		kind = "flat"
	}
	if kind != "flat" && kind != "house" {
		s.writeError(w, http.StatusBadRequest, "kind must be flat or house")
		return
	}

	pages := s.cfg.PagesPerRun
	if raw := r.URL.Query().Get("pages"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxScrapePages {
			s.writeError(w, http.StatusBadRequest, "pages must be in 1..50")
			return
		}
		pages = n
	}

	runID, err := s.pipeline.Start(kind, pages)
	if err != nil {
		if errors.Is(err, services.ErrRunInProgress) {
			s.writeError(w, http.StatusConflict, err.Error())
			return
		}
		s.logger.Error("[server] Scrape start failed: %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to start scrape")
		return
	}

	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "started", "runId": runID})
}

// handleScrapeStatus serves the status tracker snapshot.
func (s *Server) handleScrapeStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.status.Snapshot())
}

// parseListQuery reads the filter and pagination query parameters.
func parseListQuery(r *http.Request) (*models.Filter, int, int, error) {
	q := r.URL.Query()
	f := &models.Filter{}

	if kind := q.Get("kind"); kind != "" {
		if kind != "flat" && kind != "house" {
			return nil, 0, 0, errors.New("kind must be flat or house")
		}
		f.Kind = kind
	}

	var err error
	parseF := func(key string, dst **float64) {
		if err != nil {
			return
		}
		if raw := q.Get(key); raw != "" {
			v, perr := strconv.ParseFloat(raw, 64)
			if perr != nil {
				err = errors.New(key + " must be a number")
				return
			}
			*dst = &v
		}
	}
	parseI := func(key string, dst **int) {
		if err != nil {
			return
		}
		if raw := q.Get(key); raw != "" {
			v, perr := strconv.Atoi(raw)
			if perr != nil {
				err = errors.New(key + " must be an integer")
				return
			}
			*dst = &v
		}
	}

	parseF("minPrice", &f.MinPrice)
	parseF("maxPrice", &f.MaxPrice)
	parseF("minArea", &f.MinArea)
	parseF("maxArea", &f.MaxArea)
	parseI("minRooms", &f.MinRooms)
	parseI("maxRooms", &f.MaxRooms)
	parseI("minYear", &f.MinYear)
	parseI("maxYear", &f.MaxYear)
	if err != nil {
		return nil, 0, 0, err
	}

	offset := 0
	if raw := q.Get("offset"); raw != "" {
		v, perr := strconv.Atoi(raw)
		if perr != nil || v < 0 {
			return nil, 0, 0, errors.New("offset must be a non-negative integer")
		}
		offset = v
	}

	limit := defaultPageLimit
	if raw := q.Get("limit"); raw != "" {
		v, perr := strconv.Atoi(raw)
		if perr != nil || v < 1 || v > maxPageLimit {
			return nil, 0, 0, errors.New("limit must be in 1..500")
		}
		limit = v
	}

	return f, offset, limit, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("[server] Encoding response failed: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}
