package fleet

import (
	"errors"
	"fmt"
	"time"
)

// Core error constants. Flows wrap these into BusinessError codes; handlers
// map them onto HTTP statuses.
var (
	// ErrInvalidTransition is returned when an illegal campaign state change
	// is attempted; the campaign is left untouched.
	ErrInvalidTransition = errors.New("invalid campaign state transition")

	// ErrStaleVersion is returned when a transition carries a version that no
	// longer matches the campaign; sweeps treat this as "someone got there
	// first" and skip silently.
	ErrStaleVersion = errors.New("campaign version is stale")

	// ErrUnknownCampaign is returned for operations on campaign ids not in
	// the projection.
	ErrUnknownCampaign = errors.New("unknown campaign")

	// ErrUnknownScreen is returned for operations on screen ids not in the
	// projection.
	ErrUnknownScreen = errors.New("unknown screen")

	// ErrUnknownContent is returned for operations on content ids not in the
	// projection.
	ErrUnknownContent = errors.New("unknown content")
)

// CapacityError rejects an admission attempt against a full fleet. RetryAfter
// hints when a slot is likely to free up (expected churn, defaulting to the
// heartbeat window).
type CapacityError struct {
	Connected  int64
	Max        int64
	RetryAfter time.Duration
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("connection capacity exceeded (%d/%d), retry after %s",
		e.Connected, e.Max, e.RetryAfter)
}

// IsCapacityError reports whether err is a capacity rejection and returns it
func IsCapacityError(err error) (*CapacityError, bool) {
	var ce *CapacityError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
