package availability

import (
	"sort"
	"time"

	"github.com/yndnr/garagebook-go/internal/core/domain"
)

// Status colours used by calendar renderers.
const (
	ColorPending   = "#F59E0B"
	ColorConfirmed = "#10B981"
	ColorCompleted = "#6366F1"
	ColorCancelled = "#EF4444"
	ColorUnknown   = "#6B7280"
)

// defaultServiceTitle is used when an appointment has no embedded service type.
const defaultServiceTitle = "Service"

// Event is a calendar projection of an appointment.
type Event struct {
	ID      domain.ID                `json:"id"`
	Title   string                   `json:"title"`
	Start   time.Time                `json:"start"`
	End     time.Time                `json:"end"`
	Status  domain.AppointmentStatus `json:"status"`
	Email   string                   `json:"email"`
	Phone   string                   `json:"phone"`
	Vehicle string                   `json:"vehicle"`
	Color   string                   `json:"color"`
}

// StatusColor returns the display colour for a status.
func StatusColor(status domain.AppointmentStatus) string {
	switch status {
	case domain.StatusPending:
		return ColorPending
	case domain.StatusConfirmed:
		return ColorConfirmed
	case domain.StatusCompleted:
		return ColorCompleted
	case domain.StatusCancelled:
		return ColorCancelled
	default:
		return ColorUnknown
	}
}

// CalendarEvents projects appointments to one-hour calendar events, keeping input order.
func CalendarEvents(appointments []domain.Appointment) []Event {
	events := make([]Event, 0, len(appointments))
	for _, a := range appointments {
		service := a.ServiceName()
		if service == "" {
			service = defaultServiceTitle
		}
		start := a.AppointmentTime.Time
		events = append(events, Event{
			ID:      a.ID,
			Title:   a.Name + " - " + service,
			Start:   start,
			End:     start.Add(SlotDuration),
			Status:  a.Status,
			Email:   a.Email,
			Phone:   a.Phone,
			Vehicle: a.Vehicle,
			Color:   StatusColor(a.Status),
		})
	}
	return events
}

// GroupByDate buckets appointments by their local calendar date (YYYY-MM-DD).
// Order within a bucket follows the input order.
func GroupByDate(appointments []domain.Appointment) map[string][]domain.Appointment {
	grouped := make(map[string][]domain.Appointment)
	for _, a := range appointments {
		key := a.AppointmentTime.Local().Format(domain.DateLayout)
		grouped[key] = append(grouped[key], a)
	}
	return grouped
}

// Dates returns the keys of a GroupByDate result in ascending order.
func Dates(grouped map[string][]domain.Appointment) []string {
	dates := make([]string, 0, len(grouped))
	for d := range grouped {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}
