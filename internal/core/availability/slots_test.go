package availability

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/garagebook-go/internal/core/domain"
)

func appointmentAt(t *testing.T, ts string) domain.Appointment {
	t.Helper()
	at, err := domain.ParseTimestamp(ts)
	require.NoError(t, err)
	return domain.Appointment{ID: domain.ID(ts), AppointmentTime: at, Status: domain.StatusPending}
}

func slotMap(slots []domain.TimeSlot) map[string]bool {
	m := make(map[string]bool, len(slots))
	for _, s := range slots {
		m[s.Time] = s.Available
	}
	return m
}

func TestComputeSlots_BookedHour(t *testing.T) {
	slots, err := ComputeSlotsForDate("2024-06-10", []domain.Appointment{
		appointmentAt(t, "2024-06-10T09:00:00"),
	})
	require.NoError(t, err)
	require.Len(t, slots, 11)

	m := slotMap(slots)
	assert.False(t, m["09:00"])
	assert.False(t, m["12:00"])
	assert.False(t, m["13:00"])
	for _, label := range []string{"08:00", "10:00", "11:00", "14:00", "15:00", "16:00", "17:00", "18:00"} {
		assert.True(t, m[label], label)
	}
}

func TestComputeSlots_OrderAndLabels(t *testing.T) {
	slots := ComputeSlots(time.Date(2024, 6, 10, 0, 0, 0, 0, time.Local), nil)

	want := []string{"08:00", "09:00", "10:00", "11:00", "12:00", "13:00", "14:00", "15:00", "16:00", "17:00", "18:00"}
	got := make([]string, 0, len(slots))
	for _, s := range slots {
		got = append(got, s.Time)
	}
	assert.Equal(t, want, got)
	assert.Len(t, FreeSlots(slots), 9)
}

func TestComputeSlots_OtherDaysIgnored(t *testing.T) {
	slots, err := ComputeSlotsForDate("2024-06-10", []domain.Appointment{
		appointmentAt(t, "2024-06-09T10:00:00"),
		appointmentAt(t, "2024-06-11T10:00:00"),
		appointmentAt(t, "2023-06-10T10:00:00"),
	})
	require.NoError(t, err)
	assert.True(t, slotMap(slots)["10:00"])
}

func TestComputeSlots_BookingWithinHour(t *testing.T) {
	slots, err := ComputeSlotsForDate("2024-06-10", []domain.Appointment{
		appointmentAt(t, "2024-06-10T15:45:00"),
	})
	require.NoError(t, err)
	assert.False(t, slotMap(slots)["15:00"])
	assert.True(t, slotMap(slots)["16:00"])
}

func TestComputeSlots_OutsideBusinessHoursIgnored(t *testing.T) {
	slots, err := ComputeSlotsForDate("2024-06-10", []domain.Appointment{
		appointmentAt(t, "2024-06-10T07:00:00"),
		appointmentAt(t, "2024-06-10T19:00:00"),
		{ID: "zero"},
	})
	require.NoError(t, err)
	assert.Len(t, FreeSlots(slots), 9)
}

func TestComputeSlots_ComparesInDateLocation(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Skip("tzdata not available")
	}
	// 08:00 UTC is 10:00 in Paris during summer time.
	booked := []domain.Appointment{{
		ID:              "utc",
		AppointmentTime: domain.NewTimestamp(time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)),
	}}

	slots := ComputeSlots(time.Date(2024, 6, 10, 0, 0, 0, 0, paris), booked)
	m := slotMap(slots)
	assert.False(t, m["10:00"])
	assert.True(t, m["08:00"])
}

func TestComputeSlots_LunchAlwaysClosed(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	day := time.Date(2024, 6, 10, 0, 0, 0, 0, time.Local)

	for i := 0; i < 200; i++ {
		var booked []domain.Appointment
		for n := r.Intn(12); n > 0; n-- {
			at := day.AddDate(0, 0, r.Intn(3)-1).Add(time.Duration(r.Intn(24*60)) * time.Minute)
			booked = append(booked, domain.Appointment{AppointmentTime: domain.NewTimestamp(at)})
		}

		slots := ComputeSlots(day, booked)
		require.Len(t, slots, SlotsPerDay)

		m := slotMap(slots)
		assert.False(t, m["12:00"])
		assert.False(t, m["13:00"])

		for _, a := range booked {
			at := a.AppointmentTime.Local()
			if at.Year() == 2024 && at.YearDay() == day.YearDay() && at.Hour() >= FirstHour && at.Hour() <= LastHour {
				assert.False(t, m[at.Format("15")+":00"])
			}
		}
	}
}

func TestComputeSlotsForDate_InvalidDate(t *testing.T) {
	_, err := ComputeSlotsForDate("June 10", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidDate)
}

func TestIsLunchHour(t *testing.T) {
	assert.True(t, IsLunchHour(12))
	assert.True(t, IsLunchHour(13))
	assert.False(t, IsLunchHour(11))
	assert.False(t, IsLunchHour(14))
}
