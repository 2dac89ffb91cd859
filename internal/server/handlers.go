package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/skyyyyy916/my-cyber-dashboard/internal/chart"
	"github.com/skyyyyy916/my-cyber-dashboard/internal/engine"
	"github.com/skyyyyy916/my-cyber-dashboard/internal/storage"
)

const multipartOverhead = 1 << 20

type statusResponse struct {
	Source         string          `json:"source"`
	Dataset        *engine.Dataset `json:"dataset,omitempty"`
	Rows           int             `json:"rows"`
	Columns        []string        `json:"columns"`
	ProtocolFilter bool            `json:"protocol_filter"`
	Error          string          `json:"error,omitempty"`
}

// handleStatus reports which dataset is displayed. It answers 200 even
// without data so the UI can show its empty state.
func (s *DashboardServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	resp := statusResponse{
		Source:         "none",
		Columns:        []string{},
		ProtocolFilter: len(s.dashboard.FilterColumns()) > 1,
	}

	ds, err := s.dashboard.Active()
	switch {
	case err == nil:
		resp.Source = string(ds.Source)
		resp.Dataset = ds
		resp.Rows = ds.Table.NumRows()
		resp.Columns = ds.Table.Columns()
	case errors.Is(err, engine.ErrNoData):
		resp.Error = engine.ErrNoData.Error()
	default:
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleUpload replaces (POST) or forgets (DELETE) the session's uploaded file.
func (s *DashboardServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.upload(w, r)
	case http.MethodDelete:
		s.dashboard.ClearUpload()
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *DashboardServer) upload(w http.ResponseWriter, r *http.Request) {
	limit := s.opts.MaxUploadBytes
	if limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	}

	name := r.URL.Query().Get("name")
	var src io.Reader = r.Body

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		file, hdr, err := r.FormFile("file")
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				s.writeFailure(w, r, err)
				return
			}
			writeError(w, http.StatusBadRequest, "multipart field \"file\" is required")
			return
		}
		defer file.Close()
		src = file
		if name == "" {
			name = hdr.Filename
		}
	}
	if name == "" {
		name = "upload.csv"
	}

	ds, err := s.dashboard.Upload(name, src)
	if err != nil {
		slog.Warn("upload rejected", "name", name, "error", err, "request_id", RequestID(r.Context()))
		s.writeFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"dataset": ds,
		"rows":    ds.Table.NumRows(),
		"columns": ds.Table.Columns(),
		// an upload without usable rows leaves the sample on display
		"empty": ds.Table.NumRows() == 0,
	})
}

func (s *DashboardServer) handleFilters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ds, opts, err := s.dashboard.Filters()
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"dataset": ds,
		"filters": opts,
	})
}

// query parses the selection and evaluates it; on failure the response has
// already been written and ok is false.
func (s *DashboardServer) query(w http.ResponseWriter, r *http.Request) (*engine.Dataset, *engine.Result, page, bool) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return nil, nil, page{}, false
	}

	sel, p, err := s.parseSelection(r)
	if err != nil {
		s.writeFailure(w, r, err)
		return nil, nil, p, false
	}

	ds, res, err := s.dashboard.Query(sel)
	if err != nil {
		s.writeFailure(w, r, err)
		return nil, nil, p, false
	}
	s.metrics.QueriesTotal.Inc()
	return ds, res, p, true
}

type dashboardResponse struct {
	Dataset *engine.Dataset `json:"dataset"`
	Matched int             `json:"matched"`
	*engine.Result
}

func (s *DashboardServer) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ds, res, _, ok := s.query(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, dashboardResponse{
		Dataset: ds,
		Matched: res.View.Len(),
		Result:  res,
	})
}

type rowsResponse struct {
	Total   int         `json:"total"`
	Offset  int         `json:"offset"`
	Limit   int         `json:"limit"`
	Columns []string    `json:"columns"`
	Rows    [][]*string `json:"rows"`
}

// handleRows serves the detailed event table. Missing cells encode as null.
func (s *DashboardServer) handleRows(w http.ResponseWriter, r *http.Request) {
	ds, res, p, ok := s.query(w, r)
	if !ok {
		return
	}

	cols := ds.Table.Columns()
	view := res.View.Slice(p.Offset, p.Limit)
	rows := make([][]*string, view.Len())
	for i := range rows {
		row := make([]*string, len(cols))
		for j, c := range cols {
			if v, present := view.Value(i, c); present {
				row[j] = &v
			}
		}
		rows[i] = row
	}

	writeJSON(w, http.StatusOK, rowsResponse{
		Total:   res.View.Len(),
		Offset:  p.Offset,
		Limit:   p.Limit,
		Columns: cols,
		Rows:    rows,
	})
}

func (s *DashboardServer) handleAttackTypeChart(w http.ResponseWriter, r *http.Request) {
	_, res, _, ok := s.query(w, r)
	if !ok {
		return
	}
	s.writeChart(w, r, func(buf *bytes.Buffer) error {
		return chart.RenderShares(buf, res.AttackTypes)
	})
}

func (s *DashboardServer) handleTopPortsChart(w http.ResponseWriter, r *http.Request) {
	_, res, _, ok := s.query(w, r)
	if !ok {
		return
	}
	s.writeChart(w, r, func(buf *bytes.Buffer) error {
		return chart.RenderPorts(buf, res.TopPorts)
	})
}

// writeChart renders into memory so a failure can still set the status.
// An empty breakdown answers 204: the chart is not rendered.
func (s *DashboardServer) writeChart(w http.ResponseWriter, r *http.Request, render func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		if errors.Is(err, chart.ErrNoValues) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		s.writeFailure(w, r, fmt.Errorf("render chart: %w", err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}

// handleExport downloads the filtered view as csv, csv.zst or xlsx.
func (s *DashboardServer) handleExport(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = storage.FormatCSV
	}
	contentType, ext, known := storage.ContentType(format)
	if !known {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported export format %q", format))
		return
	}

	_, res, _, ok := s.query(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := s.exporter.Write(&buf, res.View, format); err != nil {
		s.writeFailure(w, r, fmt.Errorf("export %s: %w", format, err))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "security-events"+ext))
	w.Write(buf.Bytes())
}
