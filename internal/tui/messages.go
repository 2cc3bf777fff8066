package tui

import (
	"time"

	"github.com/rbramwell/halin/internal/engine"
	"github.com/rbramwell/halin/internal/model"
	"github.com/rbramwell/halin/internal/security"
)

// PollMsg delivers one round of member observations.
type PollMsg struct {
	At           time.Time
	Observations []model.Observation
}

// FetchErrorMsg signals that no member answered a poll.
type FetchErrorMsg struct{ Err error }

// TickMsg triggers the next scheduled poll.
type TickMsg time.Time

// AdviceMsg carries a finished diagnostics run and its findings.
type AdviceMsg struct {
	At       time.Time
	Records  int
	Failed   int
	Findings []model.InspectionResult
}

// UsersMsg carries the user list or the reason it could not be read.
type UsersMsg struct {
	Users []security.User
	Err   error
}

// DeleteResultMsg reports the outcome of a user deletion.
type DeleteResultMsg struct {
	Username string
	Status   security.Status
}

// FeaturesMsg carries page cache and storage samples keyed by feature.
type FeaturesMsg struct {
	Samples map[string][]engine.Sample
	Errs    map[string]error
}
