package track

import "fmt"

// OracleError is returned when the oracle fails on a frame.  The run is
// aborted by default because skipping a frame silently breaks identity
// continuity for every object in flight.  LastProcessed is the index of
// the last frame processed successfully, -1 when none were, the
// accumulated state up to that frame remains valid and readable.
type OracleError struct {
	FrameNumber   int
	LastProcessed int
	Err           error
}

func (e *OracleError) Error() string {
	return fmt.Sprintf("oracle failed on frame %d (last processed %d): %v",
		e.FrameNumber, e.LastProcessed, e.Err)
}

func (e *OracleError) Unwrap() error {
	return e.Err
}

// OrderError is returned when a frame is submitted out of order.  Frame
// numbers must be strictly increasing within a run, out of order
// submission would corrupt every trajectory in flight.
type OrderError struct {
	FrameNumber   int
	LastProcessed int
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("frame %d submitted after frame %d, frame numbers "+
		"must be strictly increasing", e.FrameNumber, e.LastProcessed)
}

// InvariantError is returned when derived state fails a structural
// assertion, such as a trajectory whose entries are not ascending by
// frame number.  It signals an ingestion ordering bug upstream.
type InvariantError struct {
	ObjectID string
	Detail   string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violation for %s: %s", e.ObjectID, e.Detail)
}
