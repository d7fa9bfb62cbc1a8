package irc

import (
	"strconv"
	"strings"

	"github.com/ergochat/irc-go/ircmsg"
)

// Source identifies who sent a protocol event. For server-originated lines
// Nick holds the server name and User/Host are empty.
type Source struct {
	Nick string
	User string
	Host string
}

// Event is a parsed protocol event. The set of implementations is closed;
// the dispatcher switches over all of them.
type Event interface {
	event()
}

type MessageEvent struct {
	Source Source
	Target string
	Text   string
}

type ActionEvent struct {
	Source Source
	Target string
	Text   string
}

type NoticeEvent struct {
	Source Source
	Target string
	Text   string
}

type TopicEvent struct {
	Source  Source
	Channel string
	Topic   string
}

type JoinEvent struct {
	Source  Source
	Channel string
}

type PartEvent struct {
	Source  Source
	Channel string
	Reason  string
}

type KickEvent struct {
	Source  Source
	Channel string
	Target  string
	Reason  string
}

type QuitEvent struct {
	Source Source
	Reason string
}

type NickEvent struct {
	Source  Source
	NewNick string
}

// ModeEvent carries a channel or user mode change, already split into
// individual changes with their arguments.
type ModeEvent struct {
	Source  Source
	Target  string
	Changes []ModeChange
}

type InviteEvent struct {
	Source  Source
	Target  string
	Channel string
}

// NumericEvent is a three-digit server reply. Params[0] is normally the
// local nickname.
type NumericEvent struct {
	Source Source
	Code   string
	Params []string
}

// ErrorEvent is the server's ERROR line, sent before it closes the link.
type ErrorEvent struct {
	Reason string
}

// UnknownEvent is any line the adapter has no handling for.
type UnknownEvent struct {
	Command string
	Params  []string
}

func (MessageEvent) event() {}
func (ActionEvent) event()  {}
func (NoticeEvent) event()  {}
func (TopicEvent) event()   {}
func (JoinEvent) event()    {}
func (PartEvent) event()    {}
func (KickEvent) event()    {}
func (QuitEvent) event()    {}
func (NickEvent) event()    {}
func (ModeEvent) event()    {}
func (InviteEvent) event()  {}
func (NumericEvent) event() {}
func (ErrorEvent) event()   {}
func (UnknownEvent) event() {}

// Decode turns a parsed line into an Event. Lines with too few parameters
// for their command decode to UnknownEvent.
func Decode(msg ircmsg.Message) Event {
	src := sourceOf(msg)
	p := msg.Params

	switch msg.Command {
	case "PRIVMSG":
		if len(p) < 2 {
			break
		}
		if text, ok := ctcpAction(p[1]); ok {
			return ActionEvent{Source: src, Target: p[0], Text: text}
		}
		if isCTCP(p[1]) {
			break
		}
		return MessageEvent{Source: src, Target: p[0], Text: p[1]}
	case "CTCP_ACTION":
		if len(p) < 2 {
			break
		}
		text, ok := ctcpAction(p[1])
		if !ok {
			text = p[1]
		}
		return ActionEvent{Source: src, Target: p[0], Text: text}
	case "NOTICE":
		if len(p) < 2 || isCTCP(p[1]) {
			break
		}
		return NoticeEvent{Source: src, Target: p[0], Text: p[1]}
	case "TOPIC":
		if len(p) < 1 {
			break
		}
		return TopicEvent{Source: src, Channel: p[0], Topic: param(p, 1)}
	case "JOIN":
		if len(p) < 1 {
			break
		}
		return JoinEvent{Source: src, Channel: p[0]}
	case "PART":
		if len(p) < 1 {
			break
		}
		return PartEvent{Source: src, Channel: p[0], Reason: param(p, 1)}
	case "KICK":
		if len(p) < 2 {
			break
		}
		return KickEvent{Source: src, Channel: p[0], Target: p[1], Reason: param(p, 2)}
	case "QUIT":
		return QuitEvent{Source: src, Reason: param(p, 0)}
	case "NICK":
		if len(p) < 1 {
			break
		}
		return NickEvent{Source: src, NewNick: p[0]}
	case "MODE":
		if len(p) < 2 {
			break
		}
		return ModeEvent{Source: src, Target: p[0], Changes: ParseModeChanges(p[1], p[2:])}
	case "INVITE":
		if len(p) < 2 {
			break
		}
		return InviteEvent{Source: src, Target: p[0], Channel: p[1]}
	case "ERROR":
		return ErrorEvent{Reason: param(p, 0)}
	default:
		if isNumeric(msg.Command) {
			return NumericEvent{Source: src, Code: msg.Command, Params: p}
		}
	}

	return UnknownEvent{Command: msg.Command, Params: p}
}

// kindOf names an event for logging and metrics.
func kindOf(ev Event) string {
	switch ev.(type) {
	case MessageEvent:
		return "message"
	case ActionEvent:
		return "action"
	case NoticeEvent:
		return "notice"
	case TopicEvent:
		return "topic"
	case JoinEvent:
		return "join"
	case PartEvent:
		return "part"
	case KickEvent:
		return "kick"
	case QuitEvent:
		return "quit"
	case NickEvent:
		return "nick"
	case ModeEvent:
		return "mode"
	case InviteEvent:
		return "invite"
	case NumericEvent:
		return "numeric"
	case ErrorEvent:
		return "error"
	case UnknownEvent:
		return "unknown"
	default:
		return "unhandled"
	}
}

func sourceOf(msg ircmsg.Message) Source {
	nuh, err := msg.NUH()
	if err != nil {
		return Source{}
	}
	return Source{Nick: nuh.Name, User: nuh.User, Host: nuh.Host}
}

func param(p []string, i int) string {
	if i < len(p) {
		return p[i]
	}
	return ""
}

func isNumeric(cmd string) bool {
	if len(cmd) != 3 {
		return false
	}
	_, err := strconv.Atoi(cmd)
	return err == nil
}

func isCTCP(text string) bool {
	return len(text) > 1 && text[0] == '\x01'
}

func ctcpAction(text string) (string, bool) {
	const prefix = "\x01ACTION"
	if !strings.HasPrefix(text, prefix) {
		return "", false
	}
	text = strings.TrimPrefix(text, prefix)
	text = strings.TrimSuffix(text, "\x01")
	return strings.TrimPrefix(text, " "), true
}
