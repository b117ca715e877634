package reconcile

import "testing"

func TestClassifyActions(t *testing.T) {
	cases := []struct {
		eventType EventType
		want      Action
	}{
		{EventNew, ActionCreate},
		{EventModified, ActionUpdate},
		{EventCancelled, ActionCancel},
		{EventType("payment_reminder"), ActionIgnore},
		{EventType(""), ActionIgnore},
	}
	for _, tc := range cases {
		action, _ := classify(Event{Type: tc.eventType, Confidence: 0.9})
		if action != tc.want {
			t.Errorf("classify(%q) action = %q, want %q", tc.eventType, action, tc.want)
		}
	}
}

func TestClassifyDecisionThreshold(t *testing.T) {
	cases := []struct {
		confidence float64
		want       Decision
	}{
		{0.95, DecisionAuto},
		{0.8, DecisionAuto},
		{0.79, DecisionManualApproved},
		{0.5, DecisionManualApproved},
		{0, DecisionManualApproved},
	}
	for _, tc := range cases {
		_, decision := classify(Event{Type: EventNew, Confidence: tc.confidence})
		if decision != tc.want {
			t.Errorf("confidence %.2f: decision = %q, want %q", tc.confidence, decision, tc.want)
		}
	}
}
