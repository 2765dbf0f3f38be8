package analytics

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

// EventBuilder turns capture requests into outbound events using the current
// identity state. It never mutates that state.
type EventBuilder struct {
	identity *IdentityStore
	newUUID  func() string
}

// NewEventBuilder creates a builder reading identity from store.
func NewEventBuilder(store *IdentityStore) *EventBuilder {
	return &EventBuilder{
		identity: store,
		newUUID:  uuid.NewString,
	}
}

// Build maps req onto an Event.
//
// Anonymous requests get a throwaway distinct id and person processing turned
// off; the ingest API rejects events without one. Otherwise the distinct id is
// the request's, else the store's effective id. Caller properties are merged
// first and $device_id is written last so it always wins.
func (b *EventBuilder) Build(req CaptureRequest) (Event, error) {
	name := strings.TrimSpace(req.Event)
	if name == "" {
		return Event{}, newError(KindBuild, "build", ErrEmptyEventName)
	}

	event := Event{
		UUID:       b.newUUID(),
		Name:       name,
		Anonymous:  req.Anonymous,
		Properties: make(map[string]interface{}, len(req.Properties)+2),
	}

	if req.Anonymous {
		event.DistinctID = b.newUUID()
		event.Properties[PropProcessPersonProfile] = false
	} else {
		event.DistinctID = req.DistinctID
		if event.DistinctID == "" {
			event.DistinctID = b.identity.EffectiveID()
		}
	}

	// Sorted so the reported key is deterministic when several values are bad.
	keys := make([]string, 0, len(req.Properties))
	for k := range req.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := req.Properties[k]
		if _, err := json.Marshal(v); err != nil {
			return Event{}, newError(KindBuild, "build", fmt.Errorf("property %q is not serializable: %w", k, err))
		}
		event.Properties[k] = v
	}

	event.Properties[PropDeviceID] = b.identity.DeviceID()

	if len(req.Groups) > 0 {
		event.Groups = make(map[string]string, len(req.Groups))
		for groupType, groupID := range req.Groups {
			if groupType == "" || groupID == "" {
				return Event{}, newError(KindBuild, "build", fmt.Errorf("group %q: type and id must be non-empty", groupType))
			}
			event.Groups[groupType] = string(groupID)
		}
	}

	if req.Timestamp != nil {
		if req.Timestamp.IsZero() {
			return Event{}, newError(KindBuild, "build", fmt.Errorf("timestamp must not be the zero time"))
		}
		event.Timestamp = req.Timestamp.UTC()
	}

	return event, nil
}

// BuildAll builds every request or none: the first failure aborts and is
// returned with the index of the offending request.
func (b *EventBuilder) BuildAll(reqs []CaptureRequest) ([]Event, error) {
	events := make([]Event, 0, len(reqs))
	for i, req := range reqs {
		event, err := b.Build(req)
		if err != nil {
			cause := err
			var inner *Error
			if errors.As(err, &inner) {
				cause = inner.Err
			}
			return nil, newError(KindBuild, "build", fmt.Errorf("event %d (%s): %w", i, req.Event, cause))
		}
		events = append(events, event)
	}
	return events, nil
}
