package reconcile

// Action is what the engine will do with an event.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionCancel Action = "cancel"
	ActionIgnore Action = "ignore"
)

// Decision records how the outcome was arrived at. It is a provenance
// tag for the audit trail, not a commit gate.
type Decision string

const (
	DecisionAuto           Decision = "auto"
	DecisionManualApproved Decision = "manual_approved"
)

// Extractions at or above this confidence are tagged auto.
const autoConfidenceThreshold = 0.8

// classify maps an event to its action and decision tag. Unknown event
// types are ignored rather than rejected.
func classify(ev Event) (Action, Decision) {
	var action Action
	switch ev.Type {
	case EventNew:
		action = ActionCreate
	case EventModified:
		action = ActionUpdate
	case EventCancelled:
		action = ActionCancel
	default:
		action = ActionIgnore
	}

	decision := DecisionManualApproved
	if ev.Confidence >= autoConfidenceThreshold {
		decision = DecisionAuto
	}

	return action, decision
}
