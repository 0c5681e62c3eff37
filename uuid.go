package txcore

import (
	"time"

	"github.com/google/uuid"
)

// UUID is a thin wrapper over github.com/google/uuid.UUID to keep txcore
// decoupled from the external package; used for resourcemanager/redislock's
// lock tokens.
type UUID uuid.UUID

// ParseUUID converts a string to a UUID. It returns an error if the input
// is not a valid UUID. Nothing in this module calls it.
func ParseUUID(id string) (UUID, error) {
	u, err := uuid.Parse(id)
	return UUID(u), err
}

// NewUUID returns a new randomly generated UUID, retrying on error with a
// 1ms backoff up to 10 times before giving up; generating one is assumed
// to never genuinely fail, so the final failure panics rather than
// threading an error return through every caller.
func NewUUID() UUID {
	var err error
	for i := 0; i < 10; i++ {
		var id uuid.UUID
		id, err = uuid.NewRandom()
		if err == nil {
			return UUID(id)
		}
		time.Sleep(time.Millisecond)
	}
	panic(err)
}

// String returns the canonical string representation of the UUID.
func (id UUID) String() string {
	return uuid.UUID(id).String()
}
