// Package system provee el reloj y el generador de IDs de producción.
package system

import (
	"time"

	"github.com/google/uuid"
)

// Clock reloj de pared en UTC.
type Clock struct{}

// Now hora actual en UTC.
func (Clock) Now() time.Time { return time.Now().UTC() }

// UUIDGenerator genera UUID v4.
type UUIDGenerator struct{}

// NewID nuevo UUID como string.
func (UUIDGenerator) NewID() string { return uuid.New().String() }
