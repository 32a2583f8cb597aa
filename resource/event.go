package resource

import (
	"github.com/meigma/slade/archive"
)

// EventKind identifies a Manager announcement.
type EventKind uint8

const (
	// EventResourcesUpdated is sent after the index changed.
	EventResourcesUpdated EventKind = iota + 1
)

// String returns the string representation of the kind.
func (k EventKind) String() string {
	if k == EventResourcesUpdated {
		return "resources updated"
	}
	return "unknown"
}

// Event is a Manager announcement. Archive is the archive whose change
// caused it; Entry is set when a single entry changed.
type Event struct {
	Kind    EventKind
	Archive *archive.Archive
	Entry   *archive.Entry
}

type subscription struct {
	id int
	fn func(Event)
}

// Subscribe registers fn for the Manager's announcements. Listeners run
// synchronously in subscription order. The returned function cancels the
// subscription.
func (m *Manager) Subscribe(fn func(Event)) (cancel func()) {
	m.nextSub++
	id := m.nextSub
	m.subs = append(m.subs, subscription{id: id, fn: fn})
	return func() {
		for i, s := range m.subs {
			if s.id == id {
				m.subs = append(m.subs[:i:i], m.subs[i+1:]...)
				return
			}
		}
	}
}

func (m *Manager) announce(ev Event) {
	for _, s := range append([]subscription(nil), m.subs...) {
		s.fn(ev)
	}
}
