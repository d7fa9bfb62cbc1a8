package irc

import (
	"strings"
)

// The argument behaviour of a channel mode during parsing.
const (
	argsNone = iota
	argsAlways
	argsOnSet
	argsList
)

// Standard CHANMODES and PREFIX classes; most networks advertise a superset
// of these and the extras are parsed as flag modes.
var modeKinds = buildModeKinds("beI", "k", "l", "qaohv")

// ModeChange is one +x or -x from a MODE line, with its argument if the
// mode takes one.
type ModeChange struct {
	Add  bool
	Mode rune
	Arg  string
}

// String renders the change the way it appeared on the wire.
func (c ModeChange) String() string {
	sign := "-"
	if c.Add {
		sign = "+"
	}
	if c.Arg == "" {
		return sign + string(c.Mode)
	}
	return sign + string(c.Mode) + " " + c.Arg
}

func buildModeKinds(list, always, onset, prefix string) map[rune]int {
	kinds := make(map[rune]int, len(list)+len(always)+len(onset)+len(prefix))
	for _, m := range always {
		kinds[m] = argsAlways
	}
	for _, m := range prefix {
		kinds[m] = argsAlways
	}
	for _, m := range onset {
		kinds[m] = argsOnSet
	}
	for _, m := range list {
		kinds[m] = argsList
	}
	return kinds
}

// ParseModeChanges splits a modestring such as "+ov-b alice bob *!*@x" into
// individual changes. Missing arguments leave Arg empty.
func ParseModeChanges(modestring string, args []string) []ModeChange {
	var changes []ModeChange
	add := true
	next := 0

	for _, m := range modestring {
		switch m {
		case '+':
			add = true
			continue
		case '-':
			add = false
			continue
		}

		change := ModeChange{Add: add, Mode: m}
		switch modeKinds[m] {
		case argsAlways, argsList:
			if next < len(args) {
				change.Arg = args[next]
				next++
			}
		case argsOnSet:
			if add && next < len(args) {
				change.Arg = args[next]
				next++
			}
		}
		changes = append(changes, change)
	}

	return changes
}

// isPrefixMode reports whether m grants or revokes a channel privilege.
func isPrefixMode(m rune) bool {
	return strings.ContainsRune("qaohv", m)
}

// roleForMode maps a privilege mode change onto the member's new role.
func roleForMode(c ModeChange) Role {
	switch c.Mode {
	case 'q', 'a', 'o':
		if c.Add {
			return RoleAdministrator
		}
		return RoleGuest
	case 'h':
		if c.Add {
			return RoleModerator
		}
		return RoleGuest
	case 'v':
		if c.Add {
			return RoleMember
		}
		return RoleSilentMember
	}
	return RoleGuest
}

// ChannelModes is the mode state tracked for a joined channel.
type ChannelModes struct {
	Flags map[rune]bool
	Key   string
	Limit string
	Bans  []string
}

func newChannelModes() ChannelModes {
	return ChannelModes{Flags: make(map[rune]bool)}
}

// apply updates the mode state and returns the property that changed with
// its old and new values. ok is false for modes that are not tracked.
func (m *ChannelModes) apply(c ModeChange) (property, oldValue, newValue string, ok bool) {
	switch c.Mode {
	case 'b':
		if c.Arg == "" {
			return "", "", "", false
		}
		if c.Add {
			for _, b := range m.Bans {
				if b == c.Arg {
					return "", "", "", false
				}
			}
			m.Bans = append(m.Bans, c.Arg)
			return PropertyBan, "", c.Arg, true
		}
		for i, b := range m.Bans {
			if b == c.Arg {
				m.Bans = append(m.Bans[:i], m.Bans[i+1:]...)
				return PropertyBan, c.Arg, "", true
			}
		}
		return "", "", "", false
	case 'k':
		old := m.Key
		if c.Add {
			m.Key = c.Arg
		} else {
			m.Key = ""
		}
		return PropertyKey, old, m.Key, true
	case 'l':
		old := m.Limit
		if c.Add {
			m.Limit = c.Arg
		} else {
			m.Limit = ""
		}
		return PropertyLimit, old, m.Limit, true
	case 'e', 'I':
		// exception and invite lists are not tracked
		return "", "", "", false
	}

	old := m.flagString()
	if c.Add {
		m.Flags[c.Mode] = true
	} else {
		delete(m.Flags, c.Mode)
	}
	return PropertyMode, old, m.flagString(), true
}

// flagString renders the flag modes as "+imnt" in a stable order.
func (m *ChannelModes) flagString() string {
	if len(m.Flags) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteByte('+')
	for _, r := range "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ" {
		if m.Flags[r] {
			b.WriteRune(r)
		}
	}
	return b.String()
}
