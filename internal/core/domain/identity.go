package domain

import (
	"encoding/json"
	"strings"
)

// Identity is the minimal projection of the authenticated user that is
// persisted between runs to restore the client state.
type Identity struct {
	ID    ID     `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// User is the identity payload returned by the remote /api/me endpoint.
// Only the projected fields are kept; everything else the server sends is dropped.
type User struct {
	ID    ID     `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Project normalizes the server user into the persisted projection.
func (u User) Project() Identity {
	return Identity{
		ID:    u.ID,
		Name:  strings.TrimSpace(u.Name),
		Email: strings.TrimSpace(u.Email),
	}
}

// Validate checks the projection is usable as an authenticated identity.
func (i Identity) Validate() error {
	if i.ID.IsZero() {
		return ErrInvalidArgument.WithDetails("identity id is required")
	}
	return nil
}

// MarshalIdentity serializes the projection for storage.
func MarshalIdentity(i Identity) ([]byte, error) {
	return json.Marshal(i)
}

// UnmarshalIdentity decodes a stored projection. Malformed or incomplete
// records return an error so callers can discard them.
func UnmarshalIdentity(data []byte) (Identity, error) {
	var i Identity
	if err := json.Unmarshal(data, &i); err != nil {
		return Identity{}, ErrInvalidArgument.WithDetails("malformed identity record").WithCause(err)
	}
	if err := i.Validate(); err != nil {
		return Identity{}, err
	}
	return i, nil
}
