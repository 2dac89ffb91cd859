package engine

// Result is everything the dashboard renders for one selection.
type Result struct {
	View        View           `json:"-"`
	Metrics     Metrics        `json:"metrics"`
	Display     MetricsDisplay `json:"display"`
	AttackTypes []Share        `json:"attack_types"`
	TopPorts    []PortCount    `json:"top_ports"`
}

// Evaluate filters t by sel and computes the metrics and both breakdowns.
// It is a pure function of its inputs and is recomputed in full on every call.
func Evaluate(t *Table, sel Selection, topN int) (*Result, error) {
	view, err := Apply(t, sel)
	if err != nil {
		return nil, err
	}

	m := ComputeMetrics(view)
	ports := TopPorts(view, topN)
	if ports == nil {
		m.Omitted = append(m.Omitted, "top_ports")
		ports = []PortCount{}
	}

	return &Result{
		View:        view,
		Metrics:     m,
		Display:     m.Display(),
		AttackTypes: AttackTypeShares(view),
		TopPorts:    ports,
	}, nil
}
