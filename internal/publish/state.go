package publish

import (
	"encoding/json"
	"fmt"
	"log"
	"time"
)

// State is a phase of a publish attempt.
type State string

const (
	StateReconciling State = "reconciling"
	StateUploading   State = "uploading"
	StatePublishing  State = "publishing"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// next is the only forward transition allowed out of each state.
// Failed is reachable from every non-terminal state.
var next = map[State]State{
	StateReconciling: StateUploading,
	StateUploading:   StatePublishing,
	StatePublishing:  StateDone,
}

// IsTerminal returns true for Done and Failed.
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

// canTransition reports whether the attempt may move from one state to another.
func canTransition(from, to State) bool {
	if from.IsTerminal() {
		return false
	}
	if to == StateFailed {
		return true
	}
	return next[from] == to
}

// PhaseError reports which phase a failed attempt stopped in.
// The wrapped error is always a *fill.Error.
type PhaseError struct {
	Phase State
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("publish failed while %s: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

// logEvent writes a single JSON line describing an attempt event.
func logEvent(eventType string, data map[string]interface{}) {
	data["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	data["component"] = "publish"
	data["event_type"] = eventType

	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("[Publish] Failed to marshal log event: %v", err)
		return
	}

	log.Println(string(jsonData))
}
