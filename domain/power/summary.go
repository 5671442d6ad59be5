package power

import (
	"subpower/domain/core"
)

// PowerSummary is the persisted record for one (test family, replicate)
// pair. This is the truth source consumed by the later comparison stage -
// it is written once by the orchestrator and never mutated.
type PowerSummary struct {
	Family      core.FamilyName `json:"family"`
	Replicate   int             `json:"replicate"`
	RunID       core.RunID      `json:"run_id"`
	Alpha       float64         `json:"alpha"`
	Counts      CountsSchedule  `json:"counts"`
	Empirical   PowerCurve      `json:"empirical"`
	Traditional []float64       `json:"traditional,omitempty"`
	OriginalP   float64         `json:"original_p"`
	TotalObs    int             `json:"total_observations"`
	NumIter     int             `json:"num_iter"`
	NumRuns     int             `json:"num_runs"`
	Seed        int64           `json:"seed"`
	ConfigHash  core.ConfigHash `json:"config_hash"`
	CreatedAt   core.Timestamp  `json:"created_at"`
}

// NewPowerSummary assembles a summary record from one estimation
func NewPowerSummary(
	family core.FamilyName,
	replicate int,
	runID core.RunID,
	alpha float64,
	empirical PowerCurve,
	traditional []float64,
	originalP float64,
	totalObs int,
	numIter, numRuns int,
	seed int64,
) *PowerSummary {
	return &PowerSummary{
		Family:      family,
		Replicate:   replicate,
		RunID:       runID,
		Alpha:       alpha,
		Counts:      empirical.Counts,
		Empirical:   empirical,
		Traditional: traditional,
		OriginalP:   originalP,
		TotalObs:    totalObs,
		NumIter:     numIter,
		NumRuns:     numRuns,
		Seed:        seed,
		ConfigHash:  core.ComputeConfigHash(alpha, empirical.Counts, numIter, numRuns, seed),
		CreatedAt:   core.Now(),
	}
}

// Validate checks if the summary is complete and internally consistent
func (s *PowerSummary) Validate() error {
	if s.Family == "" {
		return core.NewValidationError("power_summary", "family cannot be empty")
	}
	if s.Replicate < 0 {
		return core.NewValidationError("power_summary", "replicate index cannot be negative")
	}
	if s.Alpha <= 0 || s.Alpha >= 1 {
		return core.NewValidationError("power_summary", "alpha must lie in (0,1)")
	}
	if err := s.Empirical.Validate(); err != nil {
		return err
	}
	if len(s.Counts) != len(s.Empirical.Counts) {
		return core.NewValidationError("power_summary", "counts do not match empirical curve")
	}
	if s.Traditional != nil && len(s.Traditional) != len(s.Counts) {
		return core.NewValidationError("power_summary", "traditional curve length does not match counts")
	}
	if s.OriginalP < 0 || s.OriginalP > 1 {
		return core.NewValidationError("power_summary", "original_p outside [0,1]")
	}
	if s.TotalObs <= 0 {
		return core.NewValidationError("power_summary", "total_observations must be positive")
	}
	return nil
}
