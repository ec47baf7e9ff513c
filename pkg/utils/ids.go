package utils

import "github.com/google/uuid"

// IDGenerator produces opaque unique identifiers.
type IDGenerator func() string

// NewID returns a random (version 4) UUID string. IDs carry no ordering.
func NewID() string {
	return uuid.NewString()
}
