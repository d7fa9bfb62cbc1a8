package irc

import (
	"fmt"
	"strconv"
	"strings"
)

// UserInfo accumulates the replies to one WHOIS query.
type UserInfo struct {
	Nick       string
	Login      string
	Hostname   string
	RealName   string
	Server     string
	ServerInfo string
	Idle       int64
	Operator   bool
	Channels   []string
}

// Summary renders the record as the multi-line text shown in the system
// room.
func (u *UserInfo) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Nickname: %s\n", u.Nick)
	fmt.Fprintf(&b, "Host name: %s\n", u.Hostname)
	fmt.Fprintf(&b, "Login: %s\n", u.Login)
	if u.RealName != "" {
		fmt.Fprintf(&b, "Real name: %s\n", u.RealName)
	}
	server := u.Server
	if u.ServerInfo != "" {
		server += " (" + u.ServerInfo + ")"
	}
	fmt.Fprintf(&b, "Server info: %s\n", server)
	fmt.Fprintf(&b, "Idle: %d seconds\n", u.Idle)
	if u.Operator {
		b.WriteString("IRC operator: yes\n")
	}
	b.WriteString("Joined chat rooms:")
	for _, ch := range u.Channels {
		b.WriteString(" " + ch)
	}
	return b.String()
}

// whoisTable tracks in-progress WHOIS records by folded nickname. Guarded
// by the adapter's lock.
type whoisTable struct {
	users map[string]*UserInfo
}

func newWhoisTable() *whoisTable {
	return &whoisTable{users: make(map[string]*UserInfo)}
}

// update applies one WHOIS-family reply. params excludes the leading local
// nickname, so params[0] is the nickname being queried. It returns the
// completed record when code is RPL_ENDOFWHOIS.
func (w *whoisTable) update(code string, params []string) (done *UserInfo) {
	if len(params) < 1 {
		return nil
	}
	nick := params[0]
	key := foldName(nick)

	if code == RPL_WHOISUSER {
		// <nick> <user> <host> * :<real name>
		w.users[key] = &UserInfo{
			Nick:     nick,
			Login:    param(params, 1),
			Hostname: param(params, 2),
			RealName: param(params, 4),
		}
		return nil
	}

	info, ok := w.users[key]
	if !ok {
		return nil
	}

	switch code {
	case RPL_WHOISSERVER:
		// <nick> <server> :<server info>
		info.Server = param(params, 1)
		info.ServerInfo = param(params, 2)
	case RPL_WHOISOPERATOR:
		info.Operator = true
	case RPL_WHOISIDLE:
		// <nick> <seconds> [signon] :seconds idle
		if idle, err := strconv.ParseInt(param(params, 1), 10, 64); err == nil {
			info.Idle = idle
		}
	case RPL_WHOISCHANNELS:
		// <nick> :{[@|+]<channel> }
		info.Channels = nil
		for _, ch := range strings.Fields(strings.Join(params[1:], " ")) {
			ch = stripMembershipPrefix(strings.TrimPrefix(ch, ":"))
			if ch != "" {
				info.Channels = append(info.Channels, ch)
			}
		}
	case RPL_ENDOFWHOIS:
		delete(w.users, key)
		return info
	}
	return nil
}

func (w *whoisTable) len() int {
	return len(w.users)
}

// stripMembershipPrefix turns "@#go" into "#go" while leaving channels
// whose own prefix is & or + alone.
func stripMembershipPrefix(ch string) string {
	for len(ch) > 1 && strings.IndexByte(namesPrefixes, ch[0]) >= 0 && IsChannel(ch[1:]) {
		ch = ch[1:]
	}
	return ch
}

func isWhoisReply(code string) bool {
	switch code {
	case RPL_WHOISUSER, RPL_WHOISSERVER, RPL_WHOISOPERATOR,
		RPL_WHOISIDLE, RPL_WHOISCHANNELS, RPL_ENDOFWHOIS:
		return true
	}
	return false
}
