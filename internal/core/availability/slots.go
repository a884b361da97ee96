package availability

import (
	"fmt"
	"time"

	"github.com/yndnr/garagebook-go/internal/core/domain"
)

// Business calendar.
const (
	FirstHour     = 8
	LastHour      = 18
	LunchStart    = 12
	LunchEnd      = 13 // inclusive
	SlotsPerDay   = LastHour - FirstHour + 1
	SlotDuration  = time.Hour
	slotLabelForm = "%02d:00"
)

// IsLunchHour reports whether hour falls in the always-closed lunch break.
func IsLunchHour(hour int) bool {
	return hour >= LunchStart && hour <= LunchEnd
}

// ComputeSlots returns the SlotsPerDay hourly slots of date in order.
//
// The calendar day and every appointment hour are evaluated in date's
// location. A slot is unavailable when it is a lunch hour or when some
// booked appointment starts within that hour on that day; each appointment
// occupies exactly one hour whatever its service type.
func ComputeSlots(date time.Time, booked []domain.Appointment) []domain.TimeSlot {
	loc := date.Location()
	year, month, day := date.Date()

	taken := make(map[int]bool, len(booked))
	for _, a := range booked {
		if a.AppointmentTime.IsZero() {
			continue
		}
		at := a.AppointmentTime.In(loc)
		y, m, d := at.Date()
		if y != year || m != month || d != day {
			continue
		}
		taken[at.Hour()] = true
	}

	slots := make([]domain.TimeSlot, 0, SlotsPerDay)
	for hour := FirstHour; hour <= LastHour; hour++ {
		slots = append(slots, domain.TimeSlot{
			Time:      fmt.Sprintf(slotLabelForm, hour),
			Available: !IsLunchHour(hour) && !taken[hour],
		})
	}
	return slots
}

// ComputeSlotsForDate parses a YYYY-MM-DD date in local time and computes its slots.
func ComputeSlotsForDate(date string, booked []domain.Appointment) ([]domain.TimeSlot, error) {
	d, err := domain.ParseDate(date)
	if err != nil {
		return nil, err
	}
	return ComputeSlots(d, booked), nil
}

// FreeSlots filters slots down to the available ones.
func FreeSlots(slots []domain.TimeSlot) []domain.TimeSlot {
	free := make([]domain.TimeSlot, 0, len(slots))
	for _, s := range slots {
		if s.Available {
			free = append(free, s)
		}
	}
	return free
}
