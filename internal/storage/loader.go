package storage

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/skyyyyy916/my-cyber-dashboard/internal/cache"
	"github.com/skyyyyy916/my-cyber-dashboard/internal/engine"
	"github.com/skyyyyy916/my-cyber-dashboard/internal/metrics"
	"github.com/skyyyyy916/my-cyber-dashboard/internal/model"
)

var (
	zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}
	utf8BOM   = []byte{0xEF, 0xBB, 0xBF}
)

// naValues are the cell spellings read as missing, matching the defaults of
// common dataframe CSV readers.
var naValues = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

// Loader parses CSV event files into tables, memoized by content.
type Loader struct {
	decoder  *zstd.Decoder
	cache    *cache.Store
	metrics  *metrics.Metrics
	maxBytes int64
}

// NewLoader creates a loader. maxBytes bounds both the raw input and the
// decompressed size of zstd input.
func NewLoader(c *cache.Store, m *metrics.Metrics, maxBytes int64) (*Loader, error) {
	dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(uint64(maxBytes)))
	if err != nil {
		return nil, err
	}
	return &Loader{decoder: dec, cache: c, metrics: m, maxBytes: maxBytes}, nil
}

// Close releases the zstd decoder.
func (l *Loader) Close() {
	l.decoder.Close()
}

// Load reads CSV (optionally zstd-compressed) content from r.
func (l *Loader) Load(r io.Reader) (*engine.Table, engine.LoadInfo, error) {
	raw, err := io.ReadAll(io.LimitReader(r, l.maxBytes+1))
	if err != nil {
		l.metrics.LoadErrorsTotal.WithLabelValues("read").Inc()
		return nil, engine.LoadInfo{}, fmt.Errorf("read upload: %w", err)
	}
	return l.loadBytes(raw, "upload")
}

// LoadFile reads a CSV file from disk, e.g. the bundled sample dataset.
func (l *Loader) LoadFile(path string) (*engine.Table, engine.LoadInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		l.metrics.LoadErrorsTotal.WithLabelValues("read").Inc()
		return nil, engine.LoadInfo{}, err
	}
	defer f.Close()

	raw, err := io.ReadAll(io.LimitReader(f, l.maxBytes+1))
	if err != nil {
		l.metrics.LoadErrorsTotal.WithLabelValues("read").Inc()
		return nil, engine.LoadInfo{}, fmt.Errorf("read %s: %w", path, err)
	}
	return l.loadBytes(raw, "file")
}

func (l *Loader) loadBytes(raw []byte, source string) (*engine.Table, engine.LoadInfo, error) {
	if int64(len(raw)) > l.maxBytes {
		l.metrics.LoadErrorsTotal.WithLabelValues("too_large").Inc()
		return nil, engine.LoadInfo{}, ErrTooLarge
	}

	key := cache.Key(raw)
	if t, info, ok := l.cache.Get(key); ok {
		l.metrics.CacheHitsTotal.Inc()
		info.Cached = true
		return t, info, nil
	}
	l.metrics.CacheMissesTotal.Inc()

	data := raw
	if bytes.HasPrefix(raw, zstdMagic) {
		decoded, err := l.decoder.DecodeAll(raw, nil)
		if err != nil {
			l.metrics.LoadErrorsTotal.WithLabelValues("parse").Inc()
			return nil, engine.LoadInfo{}, &ParseError{Err: fmt.Errorf("zstd: %w", err)}
		}
		data = decoded
	}

	t, info, err := ParseCSV(data)
	if err != nil {
		var se *SchemaError
		if errors.As(err, &se) {
			l.metrics.LoadErrorsTotal.WithLabelValues("schema").Inc()
		} else {
			l.metrics.LoadErrorsTotal.WithLabelValues("parse").Inc()
		}
		return nil, engine.LoadInfo{}, err
	}
	info.ID = key

	l.cache.Put(key, t, info)
	l.metrics.LoadsTotal.WithLabelValues(source).Inc()
	l.metrics.CacheEntries.Set(float64(l.cache.Len()))
	l.metrics.RowsLoaded.Set(float64(t.NumRows()))
	l.metrics.RowsDroppedTotal.WithLabelValues("empty").Add(float64(info.DroppedEmpty))
	l.metrics.RowsDroppedTotal.WithLabelValues("missing_attack_type").Add(float64(info.DroppedNoAT))
	return t, info, nil
}

// ParseCSV turns decoded CSV bytes into a table.
//
// The first record is the header. Rows shorter than the header are padded
// with missing cells; longer rows are a ParseError. Rows whose cells are all
// missing and rows without an attack_type are dropped.
func ParseCSV(data []byte) (*engine.Table, engine.LoadInfo, error) {
	var info engine.LoadInfo

	data = bytes.TrimPrefix(data, utf8BOM)
	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, info, &ParseError{Err: errors.New("no columns to parse from file")}
	}
	if err != nil {
		return nil, info, csvError(err)
	}
	header = normalizeHeader(header)

	atIdx := -1
	for i, name := range header {
		if name == model.ColAttackType {
			atIdx = i
			break
		}
	}
	if atIdx < 0 {
		return nil, info, &SchemaError{Column: model.ColAttackType}
	}

	var rows [][]engine.Cell
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, info, csvError(err)
		}
		info.RowsRead++

		if len(rec) > len(header) {
			line, _ := cr.FieldPos(0)
			return nil, info, &ParseError{
				Line: line,
				Err:  fmt.Errorf("expected %d fields, saw %d", len(header), len(rec)),
			}
		}

		cells := make([]engine.Cell, len(header))
		empty := true
		for i := range cells {
			if i < len(rec) && !isNA(rec[i]) {
				cells[i] = engine.Cell{Value: rec[i]}
				empty = false
			} else {
				cells[i] = engine.Cell{Missing: true}
			}
		}

		if empty {
			info.DroppedEmpty++
			continue
		}
		if cells[atIdx].Missing {
			info.DroppedNoAT++
			continue
		}
		rows = append(rows, cells)
	}

	t, err := engine.NewTable(header, rows)
	if err != nil {
		return nil, info, &ParseError{Err: err}
	}
	return t, info, nil
}

func isNA(v string) bool {
	_, ok := naValues[v]
	return ok
}

// normalizeHeader trims column names, names blank ones "Unnamed: i" and
// suffixes duplicates with ".1", ".2", ...
func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		base := name
		for {
			if _, dup := seen[name]; !dup {
				break
			}
			seen[base]++
			name = base + "." + strconv.Itoa(seen[base])
		}
		seen[name] = 0
		out[i] = name
	}
	return out
}

func csvError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &ParseError{Line: pe.Line, Err: pe.Err}
	}
	return &ParseError{Err: err}
}
