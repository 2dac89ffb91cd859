package engine

import (
	"errors"
	"io"
	"math"
	"reflect"
	"strconv"
	"strings"
	"testing"
)

// buildTable creates a table from string rows; "" marks a missing cell.
func buildTable(t *testing.T, header []string, rows ...[]string) *Table {
	t.Helper()
	cells := make([][]Cell, len(rows))
	for i, r := range rows {
		cells[i] = make([]Cell, len(r))
		for j, v := range r {
			cells[i][j] = Cell{Value: v, Missing: v == ""}
		}
	}
	tbl, err := NewTable(header, cells)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return tbl
}

var fullHeader = []string{"attack_type", "protocol", "label", "src_ip", "dst_port", "bytes_sent"}

func scenarioTable(t *testing.T) *Table {
	return buildTable(t, fullHeader,
		[]string{"DDoS", "TCP", "1", "1.1.1.1", "80", "100"},
		[]string{"Benign", "UDP", "0", "2.2.2.2", "80", "50"},
	)
}

func TestEvaluate_Scenario(t *testing.T) {
	tbl := scenarioTable(t)

	var sel Selection
	sel.Set("attack_type", "DDoS")

	res, err := Evaluate(tbl, sel, 10)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if res.View.Len() != 1 {
		t.Fatalf("expected 1 row, got %d", res.View.Len())
	}
	want := Metrics{TotalEvents: 1, MaliciousEvents: 1, UniqueSrcIPs: 1, AvgBytesSent: 100}
	if !reflect.DeepEqual(res.Metrics, want) {
		t.Errorf("metrics = %+v, want %+v", res.Metrics, want)
	}
	if !reflect.DeepEqual(res.TopPorts, []PortCount{{Port: "80", Count: 1}}) {
		t.Errorf("top ports = %+v", res.TopPorts)
	}
	if len(res.AttackTypes) != 1 || res.AttackTypes[0].AttackType != "DDoS" || res.AttackTypes[0].Share != 1 {
		t.Errorf("attack types = %+v", res.AttackTypes)
	}
}

func TestApply_DefaultSelectionIsIdentity(t *testing.T) {
	tbl := buildTable(t, fullHeader,
		[]string{"DDoS", "TCP", "1", "1.1.1.1", "80", "100"},
		[]string{"Benign", "", "0", "2.2.2.2", "443", "50"},
		[]string{"PortScan", "ICMP", "", "", "", ""},
	)

	sel := DefaultSelection(tbl, []string{"attack_type", "protocol"})
	view, err := Apply(tbl, sel)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if view.Len() != tbl.NumRows() {
		t.Fatalf("expected %d rows, got %d", tbl.NumRows(), view.Len())
	}
	for i := 0; i < view.Len(); i++ {
		if view.RowIndex(i) != i {
			t.Errorf("row %d maps to %d", i, view.RowIndex(i))
		}
	}

	unrestricted, _ := Apply(tbl, Selection{})
	if unrestricted.Len() != tbl.NumRows() {
		t.Errorf("empty selection should not filter, got %d rows", unrestricted.Len())
	}
}

func TestApply_EmptySetYieldsEmptyView(t *testing.T) {
	tbl := scenarioTable(t)

	tests := []struct {
		name string
		sel  Selection
	}{
		{"attack_type empty", Selection{Values: map[string][]string{"attack_type": {}}}},
		{"attack_type nil", Selection{Values: map[string][]string{"attack_type": nil}}},
		{"protocol empty", Selection{Values: map[string][]string{"attack_type": {"DDoS", "Benign"}, "protocol": {}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Evaluate(tbl, tt.sel, 10)
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if res.View.Len() != 0 || res.Metrics.TotalEvents != 0 {
				t.Errorf("expected empty view, got %d rows", res.View.Len())
			}
			if res.Metrics.AvgBytesSent != 0 {
				t.Errorf("avg over empty view = %d, want 0", res.Metrics.AvgBytesSent)
			}
			if len(res.AttackTypes) != 0 || len(res.TopPorts) != 0 {
				t.Errorf("expected empty breakdowns, got %+v %+v", res.AttackTypes, res.TopPorts)
			}
		})
	}
}

func TestApply_UnknownValuesAreNotErrors(t *testing.T) {
	tbl := scenarioTable(t)
	var sel Selection
	sel.Set("attack_type", "Ransomware", "DDoS")

	view, err := Apply(tbl, sel)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if view.Len() != 1 {
		t.Errorf("expected only the DDoS row, got %d", view.Len())
	}
}

func TestApply_ProtocolAndAttackTypeCombine(t *testing.T) {
	tbl := buildTable(t, fullHeader,
		[]string{"DDoS", "TCP", "1", "1.1.1.1", "80", "100"},
		[]string{"DDoS", "UDP", "1", "1.1.1.2", "53", "10"},
		[]string{"Benign", "TCP", "0", "2.2.2.2", "443", "50"},
	)
	var sel Selection
	sel.Set("attack_type", "DDoS")
	sel.Set("protocol", "TCP")

	view, _ := Apply(tbl, sel)
	if view.Len() != 1 || view.RowIndex(0) != 0 {
		t.Errorf("expected row 0 only, got %d rows", view.Len())
	}
}

func TestApply_RestrictionOnAbsentColumnIgnored(t *testing.T) {
	tbl := buildTable(t, []string{"attack_type"}, []string{"DDoS"}, []string{"Benign"})
	var sel Selection
	sel.Set("protocol", "TCP")

	view, _ := Apply(tbl, sel)
	if view.Len() != 2 {
		t.Errorf("expected protocol filter to be inactive, got %d rows", view.Len())
	}
}

func TestApply_Query(t *testing.T) {
	tbl := buildTable(t, fullHeader,
		[]string{"DDoS", "TCP", "1", "1.1.1.1", "80", "100"},
		[]string{"DDoS", "UDP", "1", "1.1.1.2", "53", "10"},
		[]string{"Benign", "TCP", "0", "2.2.2.2", "443", "50"},
	)

	view, err := Apply(tbl, Selection{Query: "protocol:TCP AND NOT label:0"})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if view.Len() != 1 || view.RowIndex(0) != 0 {
		t.Errorf("expected row 0 only, got %d rows", view.Len())
	}

	_, err = Apply(tbl, Selection{Query: "(protocol:TCP"})
	if !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("expected ErrInvalidQuery, got %v", err)
	}
}

func TestComputeMetrics_Invariants(t *testing.T) {
	tbl := buildTable(t, fullHeader,
		[]string{"DDoS", "TCP", "1", "1.1.1.1", "80", "100"},
		[]string{"DDoS", "TCP", "1.0", "1.1.1.1", "80", "51"},
		[]string{"Benign", "UDP", "0", "", "443", ""},
		[]string{"Benign", "UDP", "", "3.3.3.3", "443", "abc"},
	)
	view, _ := Apply(tbl, Selection{})
	m := ComputeMetrics(view)

	if m.TotalEvents != view.Len() {
		t.Errorf("total %d != view len %d", m.TotalEvents, view.Len())
	}
	if m.MaliciousEvents != 2 {
		t.Errorf("malicious = %d, want 2", m.MaliciousEvents)
	}
	if m.MaliciousEvents > m.TotalEvents {
		t.Error("malicious exceeds total")
	}
	if m.UniqueSrcIPs != 2 {
		t.Errorf("unique src ips = %d, want 2", m.UniqueSrcIPs)
	}
	// (100 + 51) / 2 = 75.5 -> 76
	if m.AvgBytesSent != 76 {
		t.Errorf("avg bytes = %d, want 76", m.AvgBytesSent)
	}
	if len(m.Omitted) != 0 {
		t.Errorf("nothing should be omitted, got %v", m.Omitted)
	}
}

func TestComputeMetrics_MissingOptionalColumns(t *testing.T) {
	tbl := buildTable(t, []string{"attack_type", "protocol"},
		[]string{"DDoS", "TCP"},
		[]string{"Benign", "UDP"},
	)
	res, err := Evaluate(tbl, Selection{}, 10)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	m := res.Metrics
	if m.TotalEvents != 2 || m.MaliciousEvents != 0 || m.UniqueSrcIPs != 0 || m.AvgBytesSent != 0 {
		t.Errorf("unexpected metrics %+v", m)
	}
	want := []string{"label", "src_ip", "bytes_sent", "top_ports"}
	if !reflect.DeepEqual(m.Omitted, want) {
		t.Errorf("omitted = %v, want %v", m.Omitted, want)
	}
	if res.TopPorts == nil || len(res.TopPorts) != 0 {
		t.Errorf("top ports should be an empty list, got %#v", res.TopPorts)
	}
}

func TestMetricsDisplay(t *testing.T) {
	d := Metrics{TotalEvents: 1234567, MaliciousEvents: 12, UniqueSrcIPs: 1000, AvgBytesSent: 0}.Display()
	if d.TotalEvents != "1,234,567" || d.MaliciousEvents != "12" || d.UniqueSrcIPs != "1,000" || d.AvgBytesSent != "0" {
		t.Errorf("unexpected display %+v", d)
	}
}

func TestTopPorts(t *testing.T) {
	rows := [][]string{}
	// ports 1..12 appear once, then 443 three times and 80 twice (once spelled 80.0)
	for p := 1; p <= 12; p++ {
		rows = append(rows, []string{"Scan", strconv.Itoa(p)})
	}
	rows = append(rows,
		[]string{"DDoS", "443"}, []string{"DDoS", "443"}, []string{"DDoS", "443"},
		[]string{"DDoS", "80"}, []string{"DDoS", "80.0"},
		[]string{"DDoS", ""},
	)
	tbl := buildTable(t, []string{"attack_type", "dst_port"}, rows...)
	view, _ := Apply(tbl, Selection{})

	ports := TopPorts(view, 10)
	if len(ports) != 10 {
		t.Fatalf("expected 10 ports, got %d", len(ports))
	}
	want := []PortCount{
		{"443", 3}, {"80", 2},
		{"1", 1}, {"2", 1}, {"3", 1}, {"4", 1}, {"5", 1}, {"6", 1}, {"7", 1}, {"8", 1},
	}
	if !reflect.DeepEqual(ports, want) {
		t.Errorf("ports = %+v\nwant %+v", ports, want)
	}

	// Every returned count is >= any count left out.
	minIn := ports[len(ports)-1].Count
	all := TopPorts(view, 100)
	for _, p := range all[len(ports):] {
		if p.Count > minIn {
			t.Errorf("port %s (%d) excluded but beats %d", p.Port, p.Count, minIn)
		}
	}
}

func TestAttackTypeShares(t *testing.T) {
	tbl := buildTable(t, []string{"attack_type"},
		[]string{"Benign"}, []string{"DDoS"}, []string{"DDoS"}, []string{"PortScan"},
	)
	view, _ := Apply(tbl, Selection{})
	shares := AttackTypeShares(view)

	want := []Share{
		{AttackType: "DDoS", Count: 2, Share: 0.5},
		{AttackType: "Benign", Count: 1, Share: 0.25},
		{AttackType: "PortScan", Count: 1, Share: 0.25},
	}
	if !reflect.DeepEqual(shares, want) {
		t.Errorf("shares = %+v", shares)
	}

	var sum float64
	for _, s := range shares {
		sum += s.Share
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("shares sum to %v", sum)
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	tbl := buildTable(t, fullHeader,
		[]string{"DDoS", "TCP", "1", "1.1.1.1", "80", "100"},
		[]string{"Benign", "UDP", "0", "2.2.2.2", "53", "50"},
		[]string{"Scan", "TCP", "1", "3.3.3.3", "22", "10"},
		[]string{"Scan", "TCP", "1", "3.3.3.3", "23", "10"},
	)
	var sel Selection
	sel.Set("attack_type", "Scan", "DDoS")

	a, _ := Evaluate(tbl, sel, 10)
	b, _ := Evaluate(tbl, sel, 10)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("results differ:\n%+v\n%+v", a, b)
	}
}

func TestFilterOptions(t *testing.T) {
	tbl := buildTable(t, []string{"attack_type", "protocol"},
		[]string{"Scan", "UDP"},
		[]string{"DDoS", "TCP"},
		[]string{"Benign", "UDP"},
		[]string{"DDoS", ""},
	)

	opts := FilterOptions(tbl, []string{"attack_type", "protocol"})
	want := []FilterOption{
		{Column: "attack_type", Values: []string{"Benign", "DDoS", "Scan"}},
		{Column: "protocol", Values: []string{"UDP", "TCP", ""}},
	}
	if !reflect.DeepEqual(opts, want) {
		t.Errorf("options = %+v", opts)
	}

	noProto := buildTable(t, []string{"attack_type"}, []string{"DDoS"})
	if got := FilterOptions(noProto, []string{"attack_type", "protocol"}); len(got) != 1 {
		t.Errorf("expected only attack_type options, got %+v", got)
	}
}

func TestView_Slice(t *testing.T) {
	tbl := buildTable(t, []string{"attack_type"}, []string{"a"}, []string{"b"}, []string{"c"})
	view, _ := Apply(tbl, Selection{})

	tests := []struct {
		offset, limit int
		want          []string
	}{
		{0, 0, []string{"a", "b", "c"}},
		{1, 1, []string{"b"}},
		{2, 10, []string{"c"}},
		{5, 1, nil},
		{1, math.MaxInt, []string{"b", "c"}},
	}
	for _, tt := range tests {
		s := view.Slice(tt.offset, tt.limit)
		var got []string
		for i := 0; i < s.Len(); i++ {
			v, _ := s.Value(i, "attack_type")
			got = append(got, v)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Slice(%d,%d) = %v, want %v", tt.offset, tt.limit, got, tt.want)
		}
	}
}

func TestNewTable_Errors(t *testing.T) {
	if _, err := NewTable([]string{"a", "a"}, nil); err == nil {
		t.Error("expected duplicate column error")
	}
	if _, err := NewTable([]string{"a"}, [][]Cell{{{Value: "x"}, {Value: "y"}}}); err == nil {
		t.Error("expected width mismatch error")
	}
}

func fakeLoader(tables map[string]*Table) (LoadFunc, LoadFileFunc) {
	load := func(r io.Reader) (*Table, LoadInfo, error) {
		b, err := io.ReadAll(r)
		if err != nil {
			return nil, LoadInfo{}, err
		}
		tbl, ok := tables[string(b)]
		if !ok {
			return nil, LoadInfo{}, errors.New("bad content")
		}
		return tbl, LoadInfo{ID: string(b)}, nil
	}
	loadFile := func(path string) (*Table, LoadInfo, error) {
		tbl, ok := tables[path]
		if !ok {
			return nil, LoadInfo{}, errors.New("no such file")
		}
		return tbl, LoadInfo{ID: path}, nil
	}
	return load, loadFile
}

func TestDashboard_Fallback(t *testing.T) {
	sample := buildTable(t, []string{"attack_type"}, []string{"Sample"})
	uploaded := scenarioTable(t)
	empty := buildTable(t, []string{"attack_type"})

	load, loadFile := fakeLoader(map[string]*Table{
		"sample.csv": sample,
		"upload":     uploaded,
		"empty":      empty,
	})
	d := NewDashboard(load, loadFile, Options{SamplePath: "sample.csv", ProtocolFilter: true})

	ds, err := d.Active()
	if err != nil || ds.Source != SourceSample {
		t.Fatalf("expected sample dataset, got %+v, %v", ds, err)
	}

	if _, err := d.Upload("a.csv", strings.NewReader("upload")); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	ds, _ = d.Active()
	if ds.Source != SourceUpload || ds.Table != uploaded {
		t.Errorf("expected upload to be active, got %+v", ds)
	}

	// A failed upload keeps the previous one.
	if _, err := d.Upload("bad.csv", strings.NewReader("garbage")); err == nil {
		t.Error("expected load error")
	}
	ds, _ = d.Active()
	if ds.Table != uploaded {
		t.Error("failed upload replaced the dataset")
	}

	// An upload that yields no rows falls back to the sample.
	if _, err := d.Upload("empty.csv", strings.NewReader("empty")); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	ds, _ = d.Active()
	if ds.Source != SourceSample {
		t.Errorf("expected sample after empty upload, got %s", ds.Source)
	}

	d.ClearUpload()
	ds, _ = d.Active()
	if ds.Source != SourceSample {
		t.Errorf("expected sample after clear, got %s", ds.Source)
	}
}

func TestDashboard_NoData(t *testing.T) {
	empty := buildTable(t, []string{"attack_type"})
	load, loadFile := fakeLoader(map[string]*Table{"empty.csv": empty})

	tests := []struct {
		name string
		opts Options
	}{
		{"no sample configured", Options{}},
		{"sample missing", Options{SamplePath: "missing.csv"}},
		{"sample empty", Options{SamplePath: "empty.csv"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDashboard(load, loadFile, tt.opts)
			if _, err := d.Active(); !errors.Is(err, ErrNoData) {
				t.Errorf("Active: expected ErrNoData, got %v", err)
			}
			if _, _, err := d.Query(Selection{}); !errors.Is(err, ErrNoData) {
				t.Errorf("Query: expected ErrNoData, got %v", err)
			}
			if _, _, err := d.Filters(); !errors.Is(err, ErrNoData) {
				t.Errorf("Filters: expected ErrNoData, got %v", err)
			}
		})
	}
}

func TestDashboard_ProtocolFilterDisabled(t *testing.T) {
	load, loadFile := fakeLoader(map[string]*Table{"s.csv": scenarioTable(t)})
	d := NewDashboard(load, loadFile, Options{SamplePath: "s.csv"})

	var sel Selection
	sel.Set("protocol", "TCP")
	_, res, err := d.Query(sel)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if res.Metrics.TotalEvents != 2 {
		t.Errorf("protocol restriction should be ignored, got %d rows", res.Metrics.TotalEvents)
	}

	_, opts, _ := d.Filters()
	if len(opts) != 1 || opts[0].Column != "attack_type" {
		t.Errorf("expected attack_type options only, got %+v", opts)
	}
}
