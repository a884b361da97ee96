// Package availability derives bookable time slots and calendar views from
// an already fetched set of appointments.
//
// Everything here is pure: no network access and no shared state. The
// business calendar is fixed: one slot per hour from 08:00 to 18:00, with
// the lunch hours 12:00 and 13:00 never bookable.
package availability
