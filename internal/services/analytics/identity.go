package analytics

import "sync"

// IdentityStore holds the optional user-chosen distinct id alongside the device
// id. The device id never changes after construction. The lock covers single
// field reads and writes only.
type IdentityStore struct {
	mu           sync.RWMutex
	distinctID   *string
	deviceID     string
	autoIdentify bool
}

// NewIdentityStore creates a store with no distinct id set.
func NewIdentityStore(deviceID string, autoIdentify bool) *IdentityStore {
	return &IdentityStore{
		deviceID:     deviceID,
		autoIdentify: autoIdentify,
	}
}

// DistinctID returns the current override, if any.
func (s *IdentityStore) DistinctID() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.distinctID == nil {
		return "", false
	}
	return *s.distinctID, true
}

// Identify replaces the override unconditionally.
func (s *IdentityStore) Identify(id string) {
	s.mu.Lock()
	s.distinctID = &id
	s.mu.Unlock()
}

// Reset clears the override.
func (s *IdentityStore) Reset() {
	s.mu.Lock()
	s.distinctID = nil
	s.mu.Unlock()
}

// DeviceID returns the immutable device id.
func (s *IdentityStore) DeviceID() string {
	return s.deviceID
}

// AutoIdentifyEnabled reports whether the device-derived id is used as the
// fallback identity.
func (s *IdentityStore) AutoIdentifyEnabled() bool {
	return s.autoIdentify
}

// AutoID returns the device-derived distinct id.
func (s *IdentityStore) AutoID() string {
	return autoIDPrefix + s.deviceID
}

// EffectiveID returns the override, else the auto id when auto-identify is
// enabled, else the raw device id.
func (s *IdentityStore) EffectiveID() string {
	if id, ok := s.DistinctID(); ok {
		return id
	}
	if s.autoIdentify {
		return s.AutoID()
	}
	return s.deviceID
}

// RegenerateAutoID sets the override to the auto id. It does nothing when
// auto-identify is disabled and reports whether the override changed.
func (s *IdentityStore) RegenerateAutoID() bool {
	if !s.autoIdentify {
		return false
	}
	s.Identify(s.AutoID())
	return true
}
