package domain

import "strings"

// ServiceType is a kind of service that can be booked.
type ServiceType struct {
	ID          ID     `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// NewServiceType is the create payload for a service type.
type NewServiceType struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Sanitized returns a copy with surrounding whitespace removed.
func (n NewServiceType) Sanitized() NewServiceType {
	return NewServiceType{
		Name:        strings.TrimSpace(n.Name),
		Description: strings.TrimSpace(n.Description),
	}
}

// ServiceTypeUpdate is a partial update; nil fields are not sent.
type ServiceTypeUpdate struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Apply returns st with the non-nil fields of u applied.
func (u ServiceTypeUpdate) Apply(st ServiceType) ServiceType {
	if u.Name != nil {
		st.Name = *u.Name
	}
	if u.Description != nil {
		st.Description = *u.Description
	}
	return st
}

// TimeSlot is a derived, bookable hour on a given day.
type TimeSlot struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}
