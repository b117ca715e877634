package reconcile

import (
	"context"

	"innsync_backend/internal/bookings"

	"github.com/google/uuid"
)

// PreviewResult is a reviewable dry-run of one event: what the engine
// would do, against which booking, and with which field changes.
type PreviewResult struct {
	Action        Action                 `json:"action"`
	Decision      Decision               `json:"decision"`
	PropertyID    uuid.UUID              `json:"propertyId,omitempty"`
	Candidate     *bookings.Booking      `json:"candidateBooking,omitempty"`
	MatchedTier   string                 `json:"matchedTier,omitempty"`
	Proposed      bookings.UpdateParams  `json:"proposed"`
	Changes       []FieldChange          `json:"changes,omitempty"`
	MissingFields map[string]bool        `json:"missingFields,omitempty"`
	Reason        string                 `json:"reason,omitempty"`
	Platform      map[string]interface{} `json:"platformMetadata"`
}

// Preview runs the same resolution, matching, and diff logic as
// Reconcile but performs no writes. Safe to repeat; used to render a
// human-reviewable diff before acting on a manual_approved suggestion.
//
// propertyID overrides hint resolution when non-nil; messageID may be
// empty, which simply disables the thread-linkage tier.
func (s *Service) Preview(ctx context.Context, messageID string, ev Event, propertyID uuid.UUID) (PreviewResult, error) {
	action, decision := classify(ev)

	result := PreviewResult{
		Action:   action,
		Decision: decision,
		Platform: map[string]interface{}{
			"platform":   ev.OTAPlatform,
			"confidence": ev.Confidence,
			"reference":  ev.BookingReference,
		},
	}

	if s.isNotificationOnly(ev) {
		err := &ImportError{Reason: ReasonNotificationOnly}
		result.Reason = err.Message()
		return result, nil
	}

	if propertyID != uuid.Nil {
		result.PropertyID = propertyID
	} else {
		result.PropertyID = s.properties.Resolve(ctx, ev.PropertyHint)
	}

	candidate, tier := s.matcher.Match(ctx, messageID, ev, result.PropertyID)
	result.Candidate = candidate
	result.MatchedTier = tier

	proposed, changes := computeDiff(candidate, ev)
	result.Proposed = proposed
	result.Changes = changes

	switch action {
	case ActionCreate:
		if !ev.HasStayDates() {
			importErr := missingFieldsError(ev)
			result.MissingFields = importErr.Fields
			result.Reason = importErr.Message()
		}
	case ActionUpdate:
		if candidate == nil {
			result.Reason = (&ImportError{Reason: ReasonBookingNotFoundForModify}).Message()
		}
	case ActionCancel:
		if candidate == nil {
			result.Reason = (&ImportError{Reason: ReasonBookingNotFoundForCancel}).Message()
		}
	}

	return result, nil
}
