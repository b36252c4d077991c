package eventbus

// MetricsRecorder receives bus activity. Implementations must be safe for
// concurrent use.
type MetricsRecorder interface {
	RecordPosted(kind string)
	RecordDelivered(kind string, mode string)
	RecordSkipped(kind string, reason string)
	RecordHandlerPanic(kind string)
	SetSubscriptions(kind string, count int)
}

// Skip reasons reported to MetricsRecorder.RecordSkipped.
const (
	SkipObjectMismatch   = "object_mismatch"
	SkipRemoved          = "removed"
	SkipOwnerGone        = "owner_gone"
	SkipExecutorRejected = "executor_rejected"
)

type nopMetrics struct{}

func (nopMetrics) RecordPosted(string)            {}
func (nopMetrics) RecordDelivered(string, string) {}
func (nopMetrics) RecordSkipped(string, string)   {}
func (nopMetrics) RecordHandlerPanic(string)      {}
func (nopMetrics) SetSubscriptions(string, int)   {}
