// Package ulid generates lowercase, monotonic ULIDs. The command bridge tags
// every invocation with one so log lines and responses can be correlated.
package ulid

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Service generates ULIDs that sort in creation order, including within the
// same millisecond. Safe for concurrent use.
type Service struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

func New() *Service {
	return &Service{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

// Generate returns a new 26-character lowercase ULID.
func (s *Service) Generate() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := ulid.MustNew(ulid.Timestamp(s.now()), s.entropy)
	return strings.ToLower(id.String())
}

// Time extracts the timestamp encoded in id.
func Time(id string) (time.Time, error) {
	parsed, err := ulid.ParseStrict(strings.ToUpper(id))
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
