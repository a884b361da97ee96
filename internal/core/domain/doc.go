// Package domain defines the core domain models for GarageBook.
//
// Domain models are pure value objects without any IO dependencies.
// This package contains:
//
//   - Identity: the persisted projection of the signed-in user
//   - Appointment: bookings, their status and create/update payloads
//   - ServiceType: bookable service kinds
//   - TimeSlot: derived hourly availability
//   - Errors: transport taxonomy and structured validation errors
package domain
