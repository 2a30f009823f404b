package clients

import (
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// IDGenerator returns a new client id.
type IDGenerator func() string

// TimestampID concatenates the unix time in milliseconds with a random suffix in [0, 1000).
// Uniqueness is best effort only: two ids created within the same millisecond collide
// with a 1/1000 chance. Fine for one trainer clicking one button at a time; the repo
// additionally retries when a fresh id is already taken.
func TimestampID() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10) + strconv.Itoa(rand.IntN(1000))
}

// UUIDID returns a random (v4) UUID.
func UUIDID() string {
	return uuid.NewString()
}

// IDGeneratorForScheme maps the config id scheme to a generator.
func IDGeneratorForScheme(scheme string) IDGenerator {
	if scheme == "uuid" {
		return UUIDID
	}
	return TimestampID
}
