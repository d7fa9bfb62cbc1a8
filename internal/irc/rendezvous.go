package irc

import (
	"time"

	"github.com/google/uuid"
)

type opKind int

const (
	opNick opKind = iota + 1
	opTopic
	opKick
	opBan
)

func (k opKind) String() string {
	switch k {
	case opNick:
		return "set_nickname"
	case opTopic:
		return "set_subject"
	case opKick:
		return "kick"
	case opBan:
		return "ban"
	}
	return "unknown"
}

// command is the IRC verb the operation sends; ERR_NEEDMOREPARAMS echoes it.
func (k opKind) command() string {
	switch k {
	case opNick:
		return "NICK"
	case opTopic:
		return "TOPIC"
	case opKick:
		return "KICK"
	case opBan:
		return "MODE"
	}
	return ""
}

type failure struct {
	kind    ErrorKind
	message string
}

// operationFailures maps each operation's error replies onto error kinds.
// Replies not listed for an operation are not correlated with it.
var operationFailures = map[opKind]map[string]failure{
	opNick: {
		ERR_NICKNAMEINUSE:    {NicknameConflict, "the nickname is already used by someone else"},
		ERR_NICKCOLLISION:    {NicknameConflict, "the nickname is already used by someone else"},
		ERR_NONICKNAMEGIVEN:  {InvalidArgument, "a valid nickname is required"},
		ERR_ERRONEUSNICKNAME: {InvalidArgument, "a valid nickname is required"},
	},
	opTopic: {
		ERR_NEEDMOREPARAMS:   {ProtocolError, "the server needs more parameters"},
		ERR_NOTONCHANNEL:     {RoomNotJoined, "you need to be joined to change the subject"},
		ERR_CHANOPRIVSNEEDED: {InsufficientPrivileges, "not enough privileges to change the subject"},
		ERR_NOSUCHCHANNEL:    {NotFound, "the chat room was not found"},
	},
	opKick: {
		ERR_CHANOPRIVSNEEDED: {InsufficientPrivileges, "operator privileges are needed to kick"},
		ERR_NEEDMOREPARAMS:   {ProtocolError, "the server needs more parameters"},
		ERR_NOSUCHCHANNEL:    {NotFound, "the chat room was not found"},
		ERR_BADCHANMASK:      {NotFound, "the chat room was not found"},
		ERR_NOTONCHANNEL:     {RoomNotJoined, "you need to be joined to kick from the chat room"},
		ERR_USERNOTINCHANNEL: {NotFound, "the participant is not in the chat room"},
		ERR_NOSUCHNICK:       {NotFound, "no such participant"},
	},
	opBan: {
		ERR_CHANOPRIVSNEEDED: {InsufficientPrivileges, "operator privileges are needed to ban"},
		ERR_NOTONCHANNEL:     {RoomNotJoined, "you need to be joined to ban from the chat room"},
		ERR_NOSUCHCHANNEL:    {NotFound, "the chat room was not found"},
		ERR_NOSUCHNICK:       {NotFound, "no such participant"},
		ERR_NEEDMOREPARAMS:   {ProtocolError, "the server needs more parameters"},
		ERR_KEYSET:           {ProtocolError, "the channel key is already set"},
		ERR_UNKNOWNMODE:      {ProtocolError, "the server does not know the ban mode"},
		ERR_UMODEUNKNOWNFLAG: {ProtocolError, "unknown mode flag"},
		ERR_USERSDONTMATCH:   {ProtocolError, "cannot change modes for other users"},
	},
}

type opResult struct {
	code    string
	message string
	fail    *failure
	err     error
}

// pendingOp is one in-flight admin call awaiting its reply.
type pendingOp struct {
	id      uuid.UUID
	kind    opKind
	targets []string // folded channel/nick names the reply may reference
	started time.Time
	result  chan opResult
}

// rendezvous correlates server replies with blocked callers. Each call gets
// its own record; replies resolve the oldest record they match. Guarded by
// the adapter's lock.
type rendezvous struct {
	ops []*pendingOp
}

func (r *rendezvous) register(kind opKind, targets ...string) *pendingOp {
	folded := make([]string, 0, len(targets))
	for _, t := range targets {
		if t != "" {
			folded = append(folded, foldName(t))
		}
	}
	op := &pendingOp{
		id:      uuid.New(),
		kind:    kind,
		targets: folded,
		started: time.Now(),
		result:  make(chan opResult, 1),
	}
	r.ops = append(r.ops, op)
	return op
}

// remove drops op if it is still pending and reports whether it was.
func (r *rendezvous) remove(op *pendingOp) bool {
	for i, o := range r.ops {
		if o == op {
			r.ops = append(r.ops[:i], r.ops[i+1:]...)
			return true
		}
	}
	return false
}

func (r *rendezvous) len() int {
	return len(r.ops)
}

func (r *rendezvous) complete(i int, res opResult) *pendingOp {
	op := r.ops[i]
	r.ops = append(r.ops[:i], r.ops[i+1:]...)
	op.result <- res
	return op
}

// confirm resolves the oldest op of kind that references target with
// success. It is driven by confirmation events such as our own KICK echo.
func (r *rendezvous) confirm(kind opKind, target string) *pendingOp {
	t := foldName(target)
	for i, op := range r.ops {
		if op.kind == kind && containsName(op.targets, t) {
			return r.complete(i, opResult{})
		}
	}
	return nil
}

// fail resolves the oldest op that accepts code and matches the reply's
// parameters. params excludes the leading nickname.
func (r *rendezvous) fail(code string, params []string, text string) *pendingOp {
	for i, op := range r.ops {
		f, ok := operationFailures[op.kind][code]
		if !ok || !replyMatches(op, code, params) {
			continue
		}
		return r.complete(i, opResult{code: code, message: text, fail: &f})
	}
	return nil
}

// abort resolves every pending op with err.
func (r *rendezvous) abort(err error) {
	for _, op := range r.ops {
		op.result <- opResult{err: err}
	}
	r.ops = nil
}

func replyMatches(op *pendingOp, code string, params []string) bool {
	switch code {
	case ERR_NONICKNAMEGIVEN, ERR_UMODEUNKNOWNFLAG, ERR_USERSDONTMATCH:
		// no target in the reply; the oldest accepting op takes it
		return true
	case ERR_NEEDMOREPARAMS:
		return len(params) > 0 && params[0] == op.kind.command()
	}
	for _, p := range params {
		if containsName(op.targets, foldName(p)) {
			return true
		}
	}
	return false
}

func containsName(names []string, folded string) bool {
	for _, n := range names {
		if n == folded {
			return true
		}
	}
	return false
}
