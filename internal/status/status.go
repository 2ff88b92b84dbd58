// Package status classifies a metric value against its configured ceiling.
package status

// Level is the three-tier classification shared by every view of a metric.
type Level int

const (
	OK Level = iota
	Warning
	Critical
)

// warningBand is how far below the ceiling the warning zone begins.
// It is deliberately not configurable.
const warningBand = 10

// Evaluate returns Critical when value has reached ceiling, Warning when it
// is within warningBand below it, and OK otherwise.
func Evaluate(value, ceiling int) Level {
	switch {
	case value >= ceiling:
		return Critical
	case value >= ceiling-warningBand:
		return Warning
	default:
		return OK
	}
}

func (l Level) String() string {
	switch l {
	case Warning:
		return "WARNING"
	case Critical:
		return "CRITICAL"
	default:
		return "OK"
	}
}
