package reconcile

// Reason tags recorded in import_errors. Callers branch on these rather
// than on free-form strings.
type Reason string

const (
	ReasonMissingRequiredFields    Reason = "missing_required_fields"
	ReasonBookingNotFoundForModify Reason = "booking_not_found_for_modify"
	ReasonBookingNotFoundForCancel Reason = "booking_not_found_for_cancel"
	ReasonNotificationOnly         Reason = "notification_only"
)

// ImportError is the structured error payload stored on a ledger entry.
type ImportError struct {
	Reason Reason          `json:"reason"`
	Fields map[string]bool `json:"fields,omitempty"`
}

// Message renders a short human-readable form for preview responses.
func (e *ImportError) Message() string {
	if e == nil {
		return ""
	}
	switch e.Reason {
	case ReasonMissingRequiredFields:
		return "Required stay dates are missing"
	case ReasonBookingNotFoundForModify, ReasonBookingNotFoundForCancel:
		return "No matching booking found"
	case ReasonNotificationOnly:
		return "Notification-only message, nothing to import"
	default:
		return string(e.Reason)
	}
}

func missingFieldsError(ev Event) *ImportError {
	fields := map[string]bool{}
	if ev.CheckIn == nil {
		fields["check_in"] = true
	}
	if ev.CheckOut == nil {
		fields["check_out"] = true
	}
	return &ImportError{Reason: ReasonMissingRequiredFields, Fields: fields}
}
