package enums

import "fmt"

// LaneStatus tracks whether a pickup lane can accept an order.
type LaneStatus string

const (
	LaneStatusOpen   LaneStatus = "OPEN"
	LaneStatusBusy   LaneStatus = "BUSY"
	LaneStatusClosed LaneStatus = "CLOSED"
)

var validLaneStatuses = []LaneStatus{
	LaneStatusOpen,
	LaneStatusBusy,
	LaneStatusClosed,
}

// laneTransitions is the closed transition table for lane statuses.
// BUSY is only entered through order assignment and only left by
// clearing the lane; CLOSED is an administrative state.
var laneTransitions = map[LaneStatus][]LaneStatus{
	LaneStatusOpen:   {LaneStatusBusy, LaneStatusClosed},
	LaneStatusBusy:   {LaneStatusOpen, LaneStatusClosed},
	LaneStatusClosed: {LaneStatusOpen},
}

// String implements fmt.Stringer.
func (l LaneStatus) String() string {
	return string(l)
}

// IsValid reports whether the value is a known LaneStatus.
func (l LaneStatus) IsValid() bool {
	for _, candidate := range validLaneStatuses {
		if candidate == l {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the transition is in the allowed table.
func (l LaneStatus) CanTransitionTo(next LaneStatus) bool {
	for _, candidate := range laneTransitions[l] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseLaneStatus converts raw input into a LaneStatus.
func ParseLaneStatus(value string) (LaneStatus, error) {
	for _, candidate := range validLaneStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid lane status %q", value)
}
