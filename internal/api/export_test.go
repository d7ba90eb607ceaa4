package api

import (
	"time"

	"github.com/alnah/go-ballot/internal/storage"
)

// NewPersistentJarWithClock exposes the clock-injected constructor for tests.
func NewPersistentJarWithClock(s storage.Storage, now func() time.Time) (*PersistentJar, error) {
	return newPersistentJar(s, now)
}

// MaxResponseSize is the response body cap.
const MaxResponseSize = maxResponseSize
