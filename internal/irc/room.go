package irc

import (
	"sort"
	"strings"
)

// Role is a member's privilege level within a room.
type Role int

const (
	RoleGuest Role = iota
	RoleSilentMember
	RoleMember
	RoleModerator
	RoleAdministrator
)

func (r Role) String() string {
	switch r {
	case RoleGuest:
		return "guest"
	case RoleSilentMember:
		return "silent_member"
	case RoleMember:
		return "member"
	case RoleModerator:
		return "moderator"
	case RoleAdministrator:
		return "administrator"
	}
	return "unknown"
}

// namesPrefixes are the membership prefixes servers put in NAMES replies.
const namesPrefixes = "~&@%+"

// RoleForPrefix maps a NAMES prefix character to a role. Only the first
// prefix of a multi-prefix entry is considered.
func RoleForPrefix(prefix string) Role {
	if prefix == "" {
		return RoleGuest
	}
	switch prefix[0] {
	case '@':
		return RoleAdministrator
	case '%':
		return RoleModerator
	case '+':
		return RoleMember
	}
	return RoleGuest
}

// splitNamesEntry separates "@+alice" into ("@+", "alice").
func splitNamesEntry(entry string) (prefix, nick string) {
	i := 0
	for i < len(entry) && strings.IndexByte(namesPrefixes, entry[i]) >= 0 {
		i++
	}
	// userhost-in-names
	nick = entry[i:]
	if bang := strings.IndexByte(nick, '!'); bang >= 0 {
		nick = nick[:bang]
	}
	return entry[:i], nick
}

// Member is one participant of a ChatRoom.
type Member struct {
	Nick     string
	Login    string
	Hostname string
	Role     Role
}

// ChatRoom is a channel, a private conversation, or the system room that
// collects server chatter.
type ChatRoom struct {
	Name    string
	Joined  bool
	Private bool
	System  bool
	Topic   string
	Modes   ChannelModes

	roster map[string]*Member
}

func newChatRoom(name string) *ChatRoom {
	return &ChatRoom{
		Name:   name,
		Modes:  newChannelModes(),
		roster: make(map[string]*Member),
	}
}

// Member returns the roster entry for nick, or nil.
func (r *ChatRoom) Member(nick string) *Member {
	return r.roster[foldName(nick)]
}

// Members returns a snapshot of the roster sorted by nickname.
func (r *ChatRoom) Members() []Member {
	out := make([]Member, 0, len(r.roster))
	for _, m := range r.roster {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return foldName(out[i].Nick) < foldName(out[j].Nick) })
	return out
}

func (r *ChatRoom) addMember(m *Member) {
	r.roster[foldName(m.Nick)] = m
}

func (r *ChatRoom) removeMember(nick string) *Member {
	key := foldName(nick)
	m := r.roster[key]
	delete(r.roster, key)
	return m
}

func (r *ChatRoom) renameMember(oldNick, newNick string) *Member {
	m := r.removeMember(oldNick)
	if m == nil {
		return nil
	}
	m.Nick = newNick
	r.addMember(m)
	return m
}

func (r *ChatRoom) setRole(nick string, role Role) (m *Member, old Role) {
	m = r.Member(nick)
	if m == nil {
		return nil, RoleGuest
	}
	old = m.Role
	m.Role = role
	return m, old
}

func (r *ChatRoom) clearRoster() {
	r.roster = make(map[string]*Member)
}

// markLeft is the common exit path for part, kick, quit and disconnect.
func (r *ChatRoom) markLeft() {
	r.Joined = false
	r.clearRoster()
	r.Modes = newChannelModes()
}

// applyNames replaces the roster with a NAMES listing and returns the new
// members in listing order.
func (r *ChatRoom) applyNames(entries []string) []*Member {
	r.clearRoster()
	added := make([]*Member, 0, len(entries))
	for _, entry := range entries {
		prefix, nick := splitNamesEntry(entry)
		if nick == "" {
			continue
		}
		m := &Member{Nick: nick, Role: RoleForPrefix(prefix)}
		r.addMember(m)
		added = append(added, m)
	}
	return added
}

// registry owns every known room. It is guarded by the adapter's lock.
type registry struct {
	rooms   map[string]*ChatRoom
	private map[string]*ChatRoom
}

func newRegistry() *registry {
	return &registry{
		rooms:   make(map[string]*ChatRoom),
		private: make(map[string]*ChatRoom),
	}
}

// resolve looks a channel up without creating it.
func (g *registry) resolve(name string) *ChatRoom {
	return g.rooms[foldName(name)]
}

// create returns the channel, creating it if absent.
func (g *registry) create(name string) *ChatRoom {
	key := foldName(name)
	if r, ok := g.rooms[key]; ok {
		return r
	}
	r := newChatRoom(name)
	g.rooms[key] = r
	return r
}

// privateRoom returns the conversation with nick, creating it if absent.
// Private rooms are joined for as long as they exist.
func (g *registry) privateRoom(nick string) (room *ChatRoom, created bool) {
	key := foldName(nick)
	if r, ok := g.private[key]; ok {
		return r, false
	}
	r := newChatRoom(nick)
	r.Private = true
	r.Joined = true
	g.private[key] = r
	return r, true
}

func (g *registry) findPrivate(nick string) *ChatRoom {
	return g.private[foldName(nick)]
}

func (g *registry) dropPrivate(nick string) {
	delete(g.private, foldName(nick))
}

func (g *registry) dropAllPrivate() {
	g.private = make(map[string]*ChatRoom)
}

// renamePrivate follows a nickname change for an open conversation.
func (g *registry) renamePrivate(oldNick, newNick string) {
	r, ok := g.private[foldName(oldNick)]
	if !ok {
		return
	}
	delete(g.private, foldName(oldNick))
	r.Name = newNick
	g.private[foldName(newNick)] = r
}

// joined returns every joined channel sorted by name.
func (g *registry) joined() []*ChatRoom {
	var out []*ChatRoom
	for _, r := range g.rooms {
		if r.Joined {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return foldName(out[i].Name) < foldName(out[j].Name) })
	return out
}

// all returns every channel and private room.
func (g *registry) all() []*ChatRoom {
	out := make([]*ChatRoom, 0, len(g.rooms)+len(g.private))
	for _, r := range g.rooms {
		out = append(out, r)
	}
	for _, r := range g.private {
		out = append(out, r)
	}
	return out
}
