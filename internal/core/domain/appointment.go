package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// AppointmentStatus is the lifecycle state of an appointment.
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

// AppointmentStatuses lists every allowed status in display order.
var AppointmentStatuses = []AppointmentStatus{
	StatusPending,
	StatusConfirmed,
	StatusCompleted,
	StatusCancelled,
}

// ParseAppointmentStatus returns the status for s or ErrInvalidStatus.
func ParseAppointmentStatus(s string) (AppointmentStatus, error) {
	status := AppointmentStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", ErrInvalidStatus.WithDetails(fmt.Sprintf("%q", s))
	}
	return status, nil
}

// Valid reports whether the status is one of the four allowed values.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// UnmarshalJSON rejects any status outside the allowed set.
func (s *AppointmentStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return ErrInvalidStatus.WithCause(err)
	}
	status, err := ParseAppointmentStatus(raw)
	if err != nil {
		return err
	}
	*s = status
	return nil
}

// MarshalJSON refuses to emit an invalid status.
func (s AppointmentStatus) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return nil, ErrInvalidStatus.WithDetails(fmt.Sprintf("%q", string(s)))
	}
	return json.Marshal(string(s))
}

// Appointment is a booking as owned by the remote service.
type Appointment struct {
	ID              ID                `json:"id"`
	Name            string            `json:"name"`
	Email           string            `json:"email"`
	Phone           string            `json:"phone"`
	Vehicle         string            `json:"vehicle"`
	AppointmentTime Timestamp         `json:"appointment_time"`
	Status          AppointmentStatus `json:"status"`
	ServiceTypeID   ID                `json:"service_type_id"`
	ServiceType     *ServiceType      `json:"service_type,omitempty"`
	CreatedAt       *Timestamp        `json:"created_at,omitempty"`
	UpdatedAt       *Timestamp        `json:"updated_at,omitempty"`
}

// ServiceName returns the embedded service type name, or "" when absent.
func (a Appointment) ServiceName() string {
	if a.ServiceType == nil {
		return ""
	}
	return a.ServiceType.Name
}

// NewAppointment is the create payload: exactly the fields the server accepts.
type NewAppointment struct {
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone"`
	Vehicle         string    `json:"vehicle"`
	AppointmentTime Timestamp `json:"appointment_time"`
	ServiceTypeID   ID        `json:"service_type_id"`
}

// Sanitized returns a copy with surrounding whitespace removed.
func (n NewAppointment) Sanitized() NewAppointment {
	return NewAppointment{
		Name:            strings.TrimSpace(n.Name),
		Email:           strings.TrimSpace(n.Email),
		Phone:           strings.TrimSpace(n.Phone),
		Vehicle:         strings.TrimSpace(n.Vehicle),
		AppointmentTime: n.AppointmentTime,
		ServiceTypeID:   ID(strings.TrimSpace(string(n.ServiceTypeID))),
	}
}

// appointmentFields are the keys the create endpoint accepts.
var appointmentFields = []string{"name", "email", "phone", "vehicle", "appointment_time", "service_type_id"}

// SanitizeAppointment builds a create payload from loosely typed input,
// dropping every key the server does not accept.
func SanitizeAppointment(data map[string]any) (NewAppointment, error) {
	kept := make(map[string]any, len(appointmentFields))
	for _, key := range appointmentFields {
		if v, ok := data[key]; ok {
			kept[key] = v
		}
	}

	raw, err := json.Marshal(kept)
	if err != nil {
		return NewAppointment{}, ErrInvalidArgument.WithCause(err)
	}

	var n NewAppointment
	if err := json.Unmarshal(raw, &n); err != nil {
		return NewAppointment{}, ErrInvalidArgument.WithDetails("appointment payload").WithCause(err)
	}
	return n.Sanitized(), nil
}

// AppointmentUpdate is a partial update; nil fields are not sent.
type AppointmentUpdate struct {
	Name            *string            `json:"name,omitempty"`
	Email           *string            `json:"email,omitempty"`
	Phone           *string            `json:"phone,omitempty"`
	Vehicle         *string            `json:"vehicle,omitempty"`
	AppointmentTime *Timestamp         `json:"appointment_time,omitempty"`
	Status          *AppointmentStatus `json:"status,omitempty"`
	ServiceTypeID   *ID                `json:"service_type_id,omitempty"`
}

// IsEmpty reports whether the update carries no field.
func (u AppointmentUpdate) IsEmpty() bool {
	return u.Name == nil && u.Email == nil && u.Phone == nil && u.Vehicle == nil &&
		u.AppointmentTime == nil && u.Status == nil && u.ServiceTypeID == nil
}
