package lane

import (
	"errors"
	"fmt"
)

// LaneClosedError is returned when submitting to a closed lane.
type LaneClosedError struct {
	LaneName string
}

func (e *LaneClosedError) Error() string {
	return fmt.Sprintf("lane %s is closed", e.LaneName)
}

// TaskDroppedError is returned when a full lane rejects a task.
type TaskDroppedError struct {
	LaneName string
	Capacity int
}

func (e *TaskDroppedError) Error() string {
	return fmt.Sprintf("task dropped in lane %s due to backpressure (capacity: %d)", e.LaneName, e.Capacity)
}

// LaneNotFoundError is returned when a lane is not registered.
type LaneNotFoundError struct {
	LaneName string
}

func (e *LaneNotFoundError) Error() string {
	return fmt.Sprintf("lane %s not found", e.LaneName)
}

// DuplicateLaneError is returned when registering a name twice.
type DuplicateLaneError struct {
	LaneName string
}

func (e *DuplicateLaneError) Error() string {
	return fmt.Sprintf("lane %s already exists", e.LaneName)
}

// IsLaneClosedError reports whether err is or wraps a LaneClosedError.
func IsLaneClosedError(err error) bool {
	var target *LaneClosedError
	return errors.As(err, &target)
}

// IsTaskDroppedError reports whether err is or wraps a TaskDroppedError.
func IsTaskDroppedError(err error) bool {
	var target *TaskDroppedError
	return errors.As(err, &target)
}

// IsLaneNotFoundError reports whether err is or wraps a LaneNotFoundError.
func IsLaneNotFoundError(err error) bool {
	var target *LaneNotFoundError
	return errors.As(err, &target)
}

// IsDuplicateLaneError reports whether err is or wraps a DuplicateLaneError.
func IsDuplicateLaneError(err error) bool {
	var target *DuplicateLaneError
	return errors.As(err, &target)
}
