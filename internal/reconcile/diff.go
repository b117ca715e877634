package reconcile

import (
	"fmt"
	"strings"
	"time"

	"innsync_backend/internal/bookings"
	"innsync_backend/platform/sanitize"
)

// FieldChange is one observed difference between a candidate booking
// and the values an event proposes.
type FieldChange struct {
	Field string `json:"field"`
	From  string `json:"from"`
	To    string `json:"to"`
}

// computeDiff builds the partial update an event proposes and, when a
// candidate exists, the list of fields that would actually change.
//
// A field enters the proposal only when the event defines it; in
// particular a blank room number is omitted entirely so an event silent
// on room never clears an existing assignment.
func computeDiff(candidate *bookings.Booking, ev Event) (bookings.UpdateParams, []FieldChange) {
	var proposed bookings.UpdateParams
	var changes []FieldChange

	record := func(field, from, to string) {
		if candidate != nil && from != to {
			changes = append(changes, FieldChange{Field: field, From: from, To: to})
		}
	}

	if name := sanitize.Text(ev.GuestName); name != "" {
		proposed.GuestName = &name
		if candidate != nil {
			record("guest_name", candidate.GuestName, name)
		}
	}

	if room := strings.TrimSpace(ev.RoomNo); room != "" {
		proposed.RoomNo = &room
		if candidate != nil {
			record("room_no", candidate.RoomNo, room)
		}
	}

	if ev.CheckIn != nil {
		proposed.CheckIn = ev.CheckIn
		if candidate != nil {
			record("check_in", formatDate(candidate.CheckIn), formatDate(ev.CheckIn))
		}
	}
	if ev.CheckOut != nil {
		proposed.CheckOut = ev.CheckOut
		if candidate != nil {
			record("check_out", formatDate(candidate.CheckOut), formatDate(ev.CheckOut))
		}
	}

	if ev.NoOfPax > 0 {
		pax := ev.NoOfPax
		proposed.NoOfPax = &pax
		if candidate != nil {
			record("no_of_pax", fmt.Sprintf("%d", candidate.NoOfPax), fmt.Sprintf("%d", pax))
		}
	}

	if ac := strings.TrimSpace(ev.AdultChild); ac != "" {
		proposed.AdultChild = &ac
		if candidate != nil {
			record("adult_child", candidate.AdultChild, ac)
		}
	}

	if ev.TotalAmount != nil {
		proposed.TotalAmount = ev.TotalAmount
		if candidate != nil {
			record("total_amount", formatAmount(candidate.TotalAmount), formatAmount(ev.TotalAmount))
		}
	}

	if ps := strings.TrimSpace(ev.PaymentStatus); ps != "" {
		proposed.PaymentStatus = &ps
		if candidate != nil {
			record("payment_status", candidate.PaymentStatus, ps)
		}
	}

	if email := strings.TrimSpace(ev.Email); email != "" {
		proposed.Email = &email
		if candidate != nil {
			record("email", candidate.Email, email)
		}
	}
	if phone := strings.TrimSpace(ev.Phone); phone != "" {
		proposed.Phone = &phone
		if candidate != nil {
			record("phone", candidate.Phone, phone)
		}
	}

	if sr := sanitize.Text(ev.SpecialRequests); sr != "" {
		proposed.SpecialRequests = &sr
		if candidate != nil {
			record("special_requests", candidate.SpecialRequests, sr)
		}
	}

	return proposed, changes
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func formatAmount(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *v)
}
