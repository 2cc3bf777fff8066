package model

// Level grades an advisory finding.
type Level string

const (
	LevelPass  Level = "PASS"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// NoActionNeeded is the recommendation of findings that require nothing.
const NoActionNeeded = "N/A"

// InspectionResult is a single graded finding produced by an advisory rule.
type InspectionResult struct {
	Level          Level  `json:"level"`
	Category       string `json:"category"`
	Finding        string `json:"finding"`
	Evidence       any    `json:"evidence,omitempty"`
	Recommendation string `json:"recommendation"`
}
