package irc

import (
	"time"
)

// Room property names carried by RoomPropertyChange.
const (
	PropertySubject = "subject"
	PropertyMode    = "mode"
	PropertyKey     = "key"
	PropertyLimit   = "limit"
	PropertyBan     = "ban"
)

// PresenceKind is a remote member's presence transition.
type PresenceKind int

const (
	MemberJoined PresenceKind = iota + 1
	MemberLeft
	MemberKicked
	MemberQuit
)

func (k PresenceKind) String() string {
	switch k {
	case MemberJoined:
		return "joined"
	case MemberLeft:
		return "left"
	case MemberKicked:
		return "kicked"
	case MemberQuit:
		return "quit"
	}
	return "unknown"
}

// LocalPresenceKind is the local user's presence transition in a room.
type LocalPresenceKind int

const (
	LocalUserJoined LocalPresenceKind = iota + 1
	LocalUserLeft
	LocalUserKicked
	LocalUserDropped
	LocalUserJoinFailed
)

func (k LocalPresenceKind) String() string {
	switch k {
	case LocalUserJoined:
		return "local_joined"
	case LocalUserLeft:
		return "local_left"
	case LocalUserKicked:
		return "local_kicked"
	case LocalUserDropped:
		return "local_dropped"
	case LocalUserJoinFailed:
		return "local_join_failed"
	}
	return "unknown"
}

// MessageKind tags a received message.
type MessageKind int

const (
	ConversationMessage MessageKind = iota + 1
	ActionMessage
	SystemMessage
)

func (k MessageKind) String() string {
	switch k {
	case ConversationMessage:
		return "conversation"
	case ActionMessage:
		return "action"
	case SystemMessage:
		return "system"
	}
	return "unknown"
}

// Notification is an outward event for the rest of the application.
type Notification interface {
	notification()
}

type MemberPresence struct {
	Room   string
	Member Member
	Actor  *Member // nil when the member acted alone
	Kind   PresenceKind
	Reason string
}

type LocalUserPresence struct {
	Room   string
	Kind   LocalPresenceKind
	Reason string
}

type MemberRoleChange struct {
	Room    string
	Member  Member
	OldRole Role
	NewRole Role
}

// MemberPropertyChange reports a nickname change for a member of Room.
type MemberPropertyChange struct {
	Room     string
	Member   Member
	Property string
	Old      string
	New      string
}

type RoomPropertyChange struct {
	Room     string
	Property string
	Old      string
	New      string
	Actor    string
}

type MessageReceived struct {
	Room   string
	Sender Member
	Text   string
	Time   time.Time
	Kind   MessageKind
}

type InvitationReceived struct {
	Room    string
	Inviter string
}

func (MemberPresence) notification()       {}
func (LocalUserPresence) notification()    {}
func (MemberRoleChange) notification()     {}
func (MemberPropertyChange) notification() {}
func (RoomPropertyChange) notification()   {}
func (MessageReceived) notification()      {}
func (InvitationReceived) notification()   {}

// Listener receives notifications. It is called from the transport's event
// goroutine and from join timers, so implementations must be safe for
// concurrent use.
type Listener interface {
	Notify(Notification)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(Notification)

func (f ListenerFunc) Notify(n Notification) { f(n) }

// outbox collects notifications and follow-up work while the adapter lock
// is held; both are run once it is released.
type outbox struct {
	notes []Notification
	after []func()
}

func (o *outbox) emit(n Notification) {
	o.notes = append(o.notes, n)
}

func (o *outbox) then(fn func()) {
	o.after = append(o.after, fn)
}
