package irc

import (
	"errors"
	"testing"
)

func TestRendezvousOldestMatchWins(t *testing.T) {
	var r rendezvous
	first := r.register(opKick, "#go", "bob")
	second := r.register(opKick, "#go", "carol")

	if got := r.fail(ERR_CHANOPRIVSNEEDED, []string{"#go", "You're not channel operator"}, "You're not channel operator"); got != first {
		t.Fatal("expected the oldest kick to receive the reply")
	}
	res := <-first.result
	if res.fail == nil || res.fail.kind != InsufficientPrivileges {
		t.Errorf("first result = %+v", res)
	}
	if r.len() != 1 {
		t.Errorf("len = %d, want 1", r.len())
	}
	if got := r.confirm(opKick, "#GO"); got != second {
		t.Error("confirm should match case-insensitively")
	}
}

func TestRendezvousIgnoresForeignReplies(t *testing.T) {
	var r rendezvous
	r.register(opTopic, "#go")

	if r.fail(ERR_NICKNAMEINUSE, []string{"taken", "in use"}, "in use") != nil {
		t.Error("a topic call must not take nickname errors")
	}
	if r.fail(ERR_CHANOPRIVSNEEDED, []string{"#rust", "no"}, "no") != nil {
		t.Error("a reply about another channel must not match")
	}
	if r.fail(ERR_NEEDMOREPARAMS, []string{"KICK", "Not enough parameters"}, "") != nil {
		t.Error("461 must name the operation's command")
	}
	if r.len() != 1 {
		t.Errorf("len = %d, want 1", r.len())
	}
}

func TestRendezvousAbort(t *testing.T) {
	var r rendezvous
	a := r.register(opNick, "x")
	b := r.register(opBan, "#go", "*!*@*")
	boom := errors.New("boom")
	r.abort(boom)

	for _, op := range []*pendingOp{a, b} {
		if res := <-op.result; res.err != boom {
			t.Errorf("%s: err = %v", op.kind, res.err)
		}
	}
	if r.remove(a) {
		t.Error("aborted ops are no longer pending")
	}
}

func TestRendezvousUntargetedModeErrors(t *testing.T) {
	var r rendezvous
	kick := r.register(opKick, "#go", "bob")
	ban := r.register(opBan, "#go", "*!*@bad.host")

	for _, code := range []string{ERR_UMODEUNKNOWNFLAG, ERR_USERSDONTMATCH} {
		got := r.fail(code, []string{"Unknown MODE flag"}, "Unknown MODE flag")
		if got != ban {
			t.Fatalf("%s: expected the pending ban to take the reply", code)
		}
		res := <-ban.result
		if res.fail == nil || res.fail.kind != ProtocolError {
			t.Errorf("%s: result = %+v", code, res)
		}
		ban = r.register(opBan, "#go", "*!*@bad.host")
	}

	r.remove(ban)
	if r.fail(ERR_UMODEUNKNOWNFLAG, []string{"Unknown MODE flag"}, "") != nil {
		t.Error("a kick must not take mode flag errors")
	}
	if r.len() != 1 || r.ops[0] != kick {
		t.Errorf("pending = %d, want only the kick", r.len())
	}
}
