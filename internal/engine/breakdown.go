package engine

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/skyyyyy916/my-cyber-dashboard/internal/model"
)

// DefaultTopPorts is the number of ports in the ranked port breakdown.
const DefaultTopPorts = 10

// Share is one slice of the attack-type proportion chart.
type Share struct {
	AttackType string  `json:"attack_type"`
	Count      int     `json:"count"`
	Share      float64 `json:"share"`
}

// PortCount is one bar of the top-ports chart.
type PortCount struct {
	Port  string `json:"port"`
	Count int    `json:"count"`
}

// counter counts values and remembers first-appearance order for tie-breaks.
type counter struct {
	order  []string
	counts map[string]int
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) add(v string) {
	if _, ok := c.counts[v]; !ok {
		c.order = append(c.order, v)
	}
	c.counts[v]++
}

// ranked returns values by descending count; equal counts keep first-appearance order.
func (c *counter) ranked() []string {
	out := append([]string(nil), c.order...)
	sort.SliceStable(out, func(i, j int) bool {
		return c.counts[out[i]] > c.counts[out[j]]
	})
	return out
}

// AttackTypeShares groups the view by attack_type.
func AttackTypeShares(v View) []Share {
	c := newCounter()
	for i := 0; i < v.Len(); i++ {
		if at, ok := v.Value(i, model.ColAttackType); ok {
			c.add(at)
		}
	}

	total := v.Len()
	shares := make([]Share, 0, len(c.order))
	for _, at := range c.ranked() {
		n := c.counts[at]
		s := Share{AttackType: at, Count: n}
		if total > 0 {
			s.Share = float64(n) / float64(total)
		}
		shares = append(shares, s)
	}
	return shares
}

// TopPorts returns the n most frequent dst_port values of the view.
// Missing ports are not counted. A table without dst_port yields nil.
func TopPorts(v View, n int) []PortCount {
	if !v.Table().HasColumn(model.ColDstPort) {
		return nil
	}
	if n <= 0 {
		n = DefaultTopPorts
	}

	c := newCounter()
	for i := 0; i < v.Len(); i++ {
		if raw, ok := v.Value(i, model.ColDstPort); ok {
			c.add(normalizePort(raw))
		}
	}

	ranked := c.ranked()
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	ports := make([]PortCount, 0, len(ranked))
	for _, p := range ranked {
		ports = append(ports, PortCount{Port: p, Count: c.counts[p]})
	}
	return ports
}

// normalizePort folds integral numeric spellings ("80", "80.0", " 80 ") to one key.
func normalizePort(raw string) string {
	s := strings.TrimSpace(raw)
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return strconv.FormatInt(int64(f), 10)
	}
	return s
}
