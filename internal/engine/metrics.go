package engine

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/skyyyyy916/my-cyber-dashboard/internal/model"
)

// Metrics are the four scalar figures shown above the charts.
type Metrics struct {
	TotalEvents     int   `json:"total_events"`
	MaliciousEvents int   `json:"malicious_events"`
	UniqueSrcIPs    int   `json:"unique_src_ips"`
	AvgBytesSent    int64 `json:"avg_bytes_sent"`

	// Omitted lists metrics whose source column the table lacks.
	Omitted []string `json:"omitted,omitempty"`
}

// MetricsDisplay holds the metrics formatted with thousands separators.
type MetricsDisplay struct {
	TotalEvents     string `json:"total_events"`
	MaliciousEvents string `json:"malicious_events"`
	UniqueSrcIPs    string `json:"unique_src_ips"`
	AvgBytesSent    string `json:"avg_bytes_sent"`
}

var displayPrinter = message.NewPrinter(language.English)

// Display formats the metrics for presentation, e.g. 12345 -> "12,345".
func (m Metrics) Display() MetricsDisplay {
	return MetricsDisplay{
		TotalEvents:     displayPrinter.Sprintf("%d", m.TotalEvents),
		MaliciousEvents: displayPrinter.Sprintf("%d", m.MaliciousEvents),
		UniqueSrcIPs:    displayPrinter.Sprintf("%d", m.UniqueSrcIPs),
		AvgBytesSent:    displayPrinter.Sprintf("%d", m.AvgBytesSent),
	}
}

// ComputeMetrics aggregates a view. Absent optional columns degrade to zero.
func ComputeMetrics(v View) Metrics {
	m := Metrics{TotalEvents: v.Len()}
	t := v.Table()

	if t.HasColumn(model.ColLabel) {
		for i := 0; i < v.Len(); i++ {
			if raw, ok := v.Value(i, model.ColLabel); ok {
				if f, ok := parseNumber(raw); ok && f == model.LabelMalicious {
					m.MaliciousEvents++
				}
			}
		}
	} else {
		m.Omitted = append(m.Omitted, model.ColLabel)
	}

	if t.HasColumn(model.ColSrcIP) {
		seen := make(map[string]struct{})
		for i := 0; i < v.Len(); i++ {
			if ip, ok := v.Value(i, model.ColSrcIP); ok {
				seen[ip] = struct{}{}
			}
		}
		m.UniqueSrcIPs = len(seen)
	} else {
		m.Omitted = append(m.Omitted, model.ColSrcIP)
	}

	if t.HasColumn(model.ColBytesSent) {
		m.AvgBytesSent = averageBytes(v)
	} else {
		m.Omitted = append(m.Omitted, model.ColBytesSent)
	}

	return m
}

// averageBytes is the mean of the present numeric bytes_sent cells, rounded
// half to even as fixed-point formatting does.
// An empty sample yields 0, never NaN.
func averageBytes(v View) int64 {
	var sum float64
	var n int
	for i := 0; i < v.Len(); i++ {
		raw, ok := v.Value(i, model.ColBytesSent)
		if !ok {
			continue
		}
		if f, ok := parseNumber(raw); ok {
			sum += f
			n++
		}
	}
	if n == 0 {
		return 0
	}
	mean := math.RoundToEven(sum / float64(n))
	if math.IsNaN(mean) || math.IsInf(mean, 0) || mean < 0 {
		return 0
	}
	return int64(mean)
}

// parseNumber parses a finite decimal number, tolerating surrounding spaces.
func parseNumber(raw string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
