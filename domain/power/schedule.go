package power

import (
	"fmt"

	"subpower/domain/core"
)

// DefaultScheduleBuffer excludes the last possible subsample sizes from a
// generated schedule so repeated draws never exhaust the pool.
const DefaultScheduleBuffer = 10

// CountsSchedule is an ordered sequence of target subsample sizes per group.
// Counts are strictly increasing positive integers and must stay below the
// smallest group size so every draw strictly excludes at least one candidate.
type CountsSchedule []int

// Validate checks ordering and positivity of the schedule
func (s CountsSchedule) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("%w: schedule is empty", core.ErrInvalidSchedule)
	}
	prev := 0
	for i, c := range s {
		if c <= 0 {
			return fmt.Errorf("%w: count %d at position %d is not positive", core.ErrInvalidSchedule, c, i)
		}
		if c <= prev {
			return fmt.Errorf("%w: counts must be strictly increasing (%d after %d)", core.ErrInvalidSchedule, c, prev)
		}
		prev = c
	}
	return nil
}

// ValidateAgainst additionally bounds the schedule by the smallest group of
// the pool it will be applied to. The estimator does not auto-clip; an
// oversized schedule is a configuration bug.
func (s CountsSchedule) ValidateAgainst(minGroupSize int) error {
	if err := s.Validate(); err != nil {
		return err
	}
	max := s[len(s)-1]
	if max > minGroupSize-1 {
		return fmt.Errorf("%w: max count %d exceeds min group size %d - 1", core.ErrInvalidSchedule, max, minGroupSize)
	}
	return nil
}

// Max returns the largest count in the schedule
func (s CountsSchedule) Max() int {
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1]
}

// NewSchedule builds a schedule from start to the pool bound in fixed steps,
// reserving buffer sizes at the top (the reference policy excludes the last
// ten possible sizes). start and step must be positive.
func NewSchedule(minGroupSize, start, step, buffer int) (CountsSchedule, error) {
	if start <= 0 || step <= 0 {
		return nil, fmt.Errorf("%w: start and step must be positive", core.ErrInvalidSchedule)
	}
	if buffer < 1 {
		buffer = 1
	}
	limit := minGroupSize - buffer
	if start > limit {
		return nil, fmt.Errorf("%w: start %d exceeds usable bound %d (min group %d, buffer %d)",
			core.ErrInvalidSchedule, start, limit, minGroupSize, buffer)
	}
	var s CountsSchedule
	for c := start; c <= limit; c += step {
		s = append(s, c)
	}
	return s, nil
}
