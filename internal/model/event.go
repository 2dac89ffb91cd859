package model

// Column names recognised in uploaded event files.
// Only AttackType is mandatory; the rest are used when the file has them.
const (
	ColAttackType = "attack_type"
	ColProtocol   = "protocol"
	ColLabel      = "label"
	ColSrcIP      = "src_ip"
	ColDstPort    = "dst_port"
	ColBytesSent  = "bytes_sent"
)

// LabelMalicious is the label value marking a malicious event.
const LabelMalicious = 1

// FilterColumns returns the categorical columns exposed as multi-select filters.
// The protocol filter is optional and only offered when enabled.
func FilterColumns(protocolFilter bool) []string {
	if protocolFilter {
		return []string{ColAttackType, ColProtocol}
	}
	return []string{ColAttackType}
}
