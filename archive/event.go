package archive

// EventKind identifies an entry lifecycle announcement.
type EventKind uint8

const (
	// EventEntryAdded is sent after an entry joins the archive.
	EventEntryAdded EventKind = iota + 1
	// EventEntryRemoving is sent before an entry leaves the archive.
	EventEntryRemoving
	// EventEntryRenaming is sent before an entry's name changes.
	EventEntryRenaming
	// EventEntryStateChanged is sent after an entry's state or content changes.
	EventEntryStateChanged
)

// String returns the string representation of the kind.
func (k EventKind) String() string {
	switch k {
	case EventEntryAdded:
		return "entry added"
	case EventEntryRemoving:
		return "entry removing"
	case EventEntryRenaming:
		return "entry renaming"
	case EventEntryStateChanged:
		return "entry state changed"
	default:
		return "unknown"
	}
}

// Event is an entry lifecycle announcement.
type Event struct {
	Kind    EventKind
	Archive *Archive
	Entry   *Entry
	// NewName is the name being assigned, for EventEntryRenaming.
	NewName string
}

// Listener receives events synchronously. It must not retain the event's
// entry beyond the archive's lifetime.
type Listener func(Event)

type subscription struct {
	id int
	fn Listener
}

// Subscribe registers fn for the archive's events. Listeners run in
// subscription order and complete before the announcing operation returns.
// The returned function cancels the subscription.
func (a *Archive) Subscribe(fn Listener) (cancel func()) {
	a.nextSub++
	id := a.nextSub
	a.subs = append(a.subs, subscription{id: id, fn: fn})
	return func() {
		for i, s := range a.subs {
			if s.id == id {
				a.subs = append(a.subs[:i:i], a.subs[i+1:]...)
				return
			}
		}
	}
}

func (a *Archive) emit(ev Event) {
	if a.loading || a.closed || len(a.subs) == 0 {
		return
	}
	// Listeners may cancel subscriptions while we dispatch.
	for _, s := range append([]subscription(nil), a.subs...) {
		s.fn(ev)
	}
}
