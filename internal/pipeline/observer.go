package pipeline

import (
	"log/slog"

	"serialscan/internal/consensus"
	"serialscan/internal/logging"
	"serialscan/internal/validate"
)

// FrameEvent describes one processed frame.
type FrameEvent struct {
	SessionID     string
	FrameIndex    int
	Observations  int
	ValidCount    int
	RejectedCount int
	State         consensus.State
	StableText    string
	Confidence    float64
}

// RejectEvent describes one rejected candidate.
type RejectEvent struct {
	SessionID  string
	FrameIndex int
	Text       string
	Reason     validate.Reason
}

// StateEvent describes a stability state transition.
type StateEvent struct {
	SessionID  string
	FrameIndex int
	From       consensus.State
	To         consensus.State
}

// LockEvent describes a serial lock.
type LockEvent struct {
	SessionID  string
	FrameIndex int
	Serial     string
	Confidence float64
}

// Observer receives structured pipeline events. Implementations must be
// fast; they run inline on the frame path.
type Observer interface {
	FrameProcessed(FrameEvent)
	CandidateRejected(RejectEvent)
	StateChanged(StateEvent)
	SerialLocked(LockEvent)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) FrameProcessed(FrameEvent)     {}
func (NopObserver) CandidateRejected(RejectEvent) {}
func (NopObserver) StateChanged(StateEvent)       {}
func (NopObserver) SerialLocked(LockEvent)        {}

// NewSlogObserver adapts a structured logger into an Observer. Frame events
// log at debug to keep steady-state output quiet; transitions and locks log
// at info.
func NewSlogObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &slogObserver{logger: logging.NewComponentLogger(logger, "pipeline")}
}

type slogObserver struct {
	logger *slog.Logger
}

func (o *slogObserver) FrameProcessed(evt FrameEvent) {
	o.logger.Debug("frame processed",
		logging.String(logging.FieldSessionID, evt.SessionID),
		logging.Int(logging.FieldFrame, evt.FrameIndex),
		logging.Int("observations", evt.Observations),
		logging.Int("valid", evt.ValidCount),
		logging.Int("rejected", evt.RejectedCount),
		logging.String(logging.FieldState, string(evt.State)),
		logging.Float64("confidence", evt.Confidence),
	)
}

func (o *slogObserver) CandidateRejected(evt RejectEvent) {
	o.logger.Debug("candidate rejected",
		logging.String(logging.FieldSessionID, evt.SessionID),
		logging.Int(logging.FieldFrame, evt.FrameIndex),
		logging.String("text", evt.Text),
		logging.String("reason", string(evt.Reason)),
	)
}

func (o *slogObserver) StateChanged(evt StateEvent) {
	o.logger.Info("stability state changed",
		logging.String(logging.FieldSessionID, evt.SessionID),
		logging.Int(logging.FieldFrame, evt.FrameIndex),
		logging.String("from", string(evt.From)),
		logging.String("to", string(evt.To)),
	)
}

func (o *slogObserver) SerialLocked(evt LockEvent) {
	o.logger.Info("serial locked",
		logging.String(logging.FieldSessionID, evt.SessionID),
		logging.Int(logging.FieldFrame, evt.FrameIndex),
		logging.String(logging.FieldSerial, evt.Serial),
		logging.Float64("confidence", evt.Confidence),
	)
}
