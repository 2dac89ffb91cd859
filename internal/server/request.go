package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/valyala/fastjson"

	"github.com/skyyyyy916/my-cyber-dashboard/internal/engine"
)

var errBadRequest = errors.New("bad request")

const maxSelectionBody = 1 << 20

// page is the slice of the filtered view a rows request asks for.
type page struct {
	Offset int
	Limit  int // <= 0 means every row
}

// parseQuery reads a selection from URL parameters. Each filterable column
// may be repeated (attack_type=DDoS&attack_type=Benign); an empty value
// selects missing cells. A column without a parameter is unrestricted.
func (s *DashboardServer) parseQuery(r *http.Request) (engine.Selection, page, error) {
	q := r.URL.Query()

	var sel engine.Selection
	for _, col := range s.dashboard.FilterColumns() {
		if vals, ok := q[col]; ok {
			sel.Set(col, vals...)
		}
	}
	sel.Query = q.Get("q")

	p := page{Limit: s.opts.DefaultRowLimit}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return sel, p, fmt.Errorf("%w: invalid limit %q", errBadRequest, v)
		}
		p.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return sel, p, fmt.Errorf("%w: invalid offset %q", errBadRequest, v)
		}
		p.Offset = n
	}
	return sel, p, nil
}

// parseBody reads a selection from a JSON body:
//
//	{"filters": {"attack_type": ["DDoS"], "protocol": []}, "q": "...", "limit": 50, "offset": 0}
//
// A column with an empty array admits no rows; null elements select missing cells.
func (s *DashboardServer) parseBody(r *http.Request) (engine.Selection, page, error) {
	p := page{Limit: s.opts.DefaultRowLimit}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxSelectionBody))
	if err != nil {
		return engine.Selection{}, p, fmt.Errorf("read body: %w", err)
	}
	defer r.Body.Close()

	parser := s.parser.Get()
	defer s.parser.Put(parser)

	v, err := parser.ParseBytes(body)
	if err != nil {
		return engine.Selection{}, p, fmt.Errorf("%w: invalid JSON: %v", errBadRequest, err)
	}
	if v.Type() != fastjson.TypeObject {
		return engine.Selection{}, p, fmt.Errorf("%w: body must be a JSON object", errBadRequest)
	}

	var sel engine.Selection
	sel.Query = string(v.GetStringBytes("q"))

	if f := v.Get("filters"); f != nil && f.Type() != fastjson.TypeNull {
		obj, err := f.Object()
		if err != nil {
			return sel, p, fmt.Errorf("%w: filters must be an object", errBadRequest)
		}
		var visitErr error
		obj.Visit(func(key []byte, val *fastjson.Value) {
			if visitErr != nil {
				return
			}
			values, err := selectionValues(val)
			if err != nil {
				visitErr = fmt.Errorf("%w: filters.%s: %v", errBadRequest, key, err)
				return
			}
			sel.Set(string(key), values...)
		})
		if visitErr != nil {
			return sel, p, visitErr
		}
	}

	if v.Exists("limit") {
		p.Limit = v.GetInt("limit")
	}
	if v.Exists("offset") {
		if p.Offset = v.GetInt("offset"); p.Offset < 0 {
			return sel, p, fmt.Errorf("%w: offset must not be negative", errBadRequest)
		}
	}
	return sel, p, nil
}

func selectionValues(val *fastjson.Value) ([]string, error) {
	arr, err := val.Array()
	if err != nil {
		return nil, errors.New("expected an array")
	}
	out := make([]string, 0, len(arr))
	for _, el := range arr {
		switch el.Type() {
		case fastjson.TypeString:
			out = append(out, string(el.GetStringBytes()))
		case fastjson.TypeNull:
			out = append(out, "")
		case fastjson.TypeNumber, fastjson.TypeTrue, fastjson.TypeFalse:
			out = append(out, el.String())
		default:
			return nil, errors.New("values must be scalars")
		}
	}
	return out, nil
}

// parseSelection dispatches on method: POST carries a JSON body, GET uses
// URL parameters.
func (s *DashboardServer) parseSelection(r *http.Request) (engine.Selection, page, error) {
	if r.Method == http.MethodPost {
		return s.parseBody(r)
	}
	return s.parseQuery(r)
}
