package client

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound indicates the client does not exist.
	ErrNotFound = errors.New("client not found")
	// ErrInvalidInput indicates the client payload cannot be stored.
	ErrInvalidInput = errors.New("invalid input")
)

// Status marks whether a client is still billed.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Client is a billed customer.
type Client struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Matches reports whether the name or email contains the query, case-insensitively.
func (c Client) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(c.Name), q) || strings.Contains(strings.ToLower(c.Email), q)
}
