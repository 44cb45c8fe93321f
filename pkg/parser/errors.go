package parser

import "fmt"

// ParseError reports output whose overall structure is unrecognizable. A pass
// that gets one cannot trust any record from that output.
type ParseError struct {
	Kind   string // "peer status" or "volume info"
	Line   int    // 1-based line number, 0 when not tied to a line
	Reason string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse %s output: line %d: %s", e.Kind, e.Line, e.Reason)
	}
	return fmt.Sprintf("parse %s output: %s", e.Kind, e.Reason)
}
