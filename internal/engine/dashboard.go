package engine

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/skyyyyy916/my-cyber-dashboard/internal/model"
)

// LoadInfo describes how a table was produced by the loader.
type LoadInfo struct {
	ID           string `json:"id"`            // content hash of the source bytes
	RowsRead     int    `json:"rows_read"`     // data rows in the file
	DroppedEmpty int    `json:"dropped_empty"` // rows with every field missing
	DroppedNoAT  int    `json:"dropped_no_attack_type"`
	Cached       bool   `json:"cached"`
}

// LoadFunc parses CSV content into a table.
// This allows the engine package to not depend on storage package directly.
type LoadFunc func(r io.Reader) (*Table, LoadInfo, error)

// LoadFileFunc parses a CSV file on disk into a table.
type LoadFileFunc func(path string) (*Table, LoadInfo, error)

// Source tells where the active dataset came from.
type Source string

const (
	SourceUpload Source = "upload"
	SourceSample Source = "sample"
)

// Dataset is a loaded table with its provenance.
type Dataset struct {
	Name   string   `json:"name"`
	Source Source   `json:"source"`
	Info   LoadInfo `json:"info"`
	Table  *Table   `json:"-"`
}

// Options configure a Dashboard.
type Options struct {
	SamplePath     string // bundled fallback file; empty disables the fallback
	ProtocolFilter bool   // offer and apply the protocol multi-select
	TopPorts       int
}

// Dashboard is the single session behind the web UI: the uploaded file, if
// any, and the fallback to the sample dataset.
type Dashboard struct {
	load     LoadFunc
	loadFile LoadFileFunc
	opts     Options

	// mu protects upload
	mu     sync.RWMutex
	upload *Dataset
}

// NewDashboard creates a dashboard using the given loader functions.
func NewDashboard(load LoadFunc, loadFile LoadFileFunc, opts Options) *Dashboard {
	if opts.TopPorts <= 0 {
		opts.TopPorts = DefaultTopPorts
	}
	return &Dashboard{
		load:     load,
		loadFile: loadFile,
		opts:     opts,
	}
}

// FilterColumns returns the filterable columns this dashboard applies.
func (d *Dashboard) FilterColumns() []string {
	return model.FilterColumns(d.opts.ProtocolFilter)
}

// Upload parses r and makes it the session's dataset.
// On error the previous upload is kept and the error is returned unchanged.
func (d *Dashboard) Upload(name string, r io.Reader) (*Dataset, error) {
	t, info, err := d.load(r)
	if err != nil {
		return nil, err
	}

	ds := &Dataset{Name: name, Source: SourceUpload, Info: info, Table: t}

	d.mu.Lock()
	d.upload = ds
	d.mu.Unlock()

	slog.Info("dataset uploaded",
		"name", name,
		"id", info.ID,
		"rows", t.NumRows(),
		"dropped_empty", info.DroppedEmpty,
		"dropped_no_attack_type", info.DroppedNoAT,
		"cached", info.Cached)
	return ds, nil
}

// ClearUpload forgets the uploaded file so the sample dataset is used again.
func (d *Dashboard) ClearUpload() {
	d.mu.Lock()
	d.upload = nil
	d.mu.Unlock()
}

// Active returns the dataset to display: a non-empty upload first, then the
// sample file. When neither has rows it returns ErrNoData.
func (d *Dashboard) Active() (*Dataset, error) {
	d.mu.RLock()
	up := d.upload
	d.mu.RUnlock()

	if up != nil && up.Table.NumRows() > 0 {
		return up, nil
	}

	if d.opts.SamplePath == "" || d.loadFile == nil {
		return nil, ErrNoData
	}

	t, info, err := d.loadFile(d.opts.SamplePath)
	if err != nil {
		slog.Warn("sample dataset unavailable", "path", d.opts.SamplePath, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrNoData, err)
	}
	if t.NumRows() == 0 {
		return nil, ErrNoData
	}

	return &Dataset{Name: d.opts.SamplePath, Source: SourceSample, Info: info, Table: t}, nil
}

// Filters returns the multi-select options of the active dataset.
func (d *Dashboard) Filters() (*Dataset, []FilterOption, error) {
	ds, err := d.Active()
	if err != nil {
		return nil, nil, err
	}
	return ds, FilterOptions(ds.Table, d.FilterColumns()), nil
}

// Query evaluates sel against the active dataset.
// Restrictions on columns that are not filterable here are dropped.
func (d *Dashboard) Query(sel Selection) (*Dataset, *Result, error) {
	ds, err := d.Active()
	if err != nil {
		return nil, nil, err
	}

	res, err := Evaluate(ds.Table, d.sanitize(sel), d.opts.TopPorts)
	if err != nil {
		return nil, nil, err
	}
	return ds, res, nil
}

func (d *Dashboard) sanitize(sel Selection) Selection {
	allowed := make(map[string]bool)
	for _, c := range d.FilterColumns() {
		allowed[c] = true
	}
	for col := range sel.Values {
		if !allowed[col] {
			sel = sel.Without(col)
		}
	}
	return sel
}
