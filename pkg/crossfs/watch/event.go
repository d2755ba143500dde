package watch

import "encoding/json"

// EventKind classifies a change notification. The set is closed: native
// notifications that fit no other kind are reported as KindOther.
type EventKind string

const (
	// KindError reports a condition in the event stream itself, such as a
	// queue overflow. Events may have been lost.
	KindError EventKind = "error"
	// KindAny is an unspecified change.
	KindAny EventKind = "any"
	// KindAccess reports that an entry was accessed or closed after writing.
	KindAccess EventKind = "access"
	// KindModify reports changed content or metadata.
	KindModify EventKind = "modify"
	// KindRemove reports a deleted entry.
	KindRemove EventKind = "remove"
	// KindRename reports an entry that appeared or moved. Creation is
	// reported with this kind.
	KindRename EventKind = "rename"
	// KindOther is any notification without a better match.
	KindOther EventKind = "other"
)

// String returns the kind name.
func (k EventKind) String() string {
	return string(k)
}

// Event is one normalized change notification.
type Event struct {
	Kind EventKind
	// Paths lists the affected entries. An empty string means the path is
	// unknown for that position.
	Paths []string
}

// Path returns the first path of the event, or "".
func (e Event) Path() string {
	if len(e.Paths) == 0 {
		return ""
	}
	return e.Paths[0]
}

// MarshalJSON encodes unknown paths as null.
func (e Event) MarshalJSON() ([]byte, error) {
	paths := make([]*string, len(e.Paths))
	for i := range e.Paths {
		if e.Paths[i] != "" {
			paths[i] = &e.Paths[i]
		}
	}
	return json.Marshal(struct {
		Kind  EventKind `json:"kind"`
		Paths []*string `json:"paths"`
	}{e.Kind, paths})
}
