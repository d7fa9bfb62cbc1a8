package irc

import (
	"reflect"
	"testing"

	"github.com/ergochat/irc-go/ircmsg"
)

func TestDecode(t *testing.T) {
	alice := Source{Nick: "alice", User: "a", Host: "example.org"}

	tests := []struct {
		line string
		want Event
	}{
		{":alice!a@example.org PRIVMSG #go :hello", MessageEvent{Source: alice, Target: "#go", Text: "hello"}},
		{":alice!a@example.org PRIVMSG #go :\x01ACTION waves\x01", ActionEvent{Source: alice, Target: "#go", Text: "waves"}},
		{":alice!a@example.org PRIVMSG me :\x01VERSION\x01", UnknownEvent{Command: "PRIVMSG", Params: []string{"me", "\x01VERSION\x01"}}},
		{":alice!a@example.org NOTICE me :hi", NoticeEvent{Source: alice, Target: "me", Text: "hi"}},
		{":alice!a@example.org TOPIC #go :new topic", TopicEvent{Source: alice, Channel: "#go", Topic: "new topic"}},
		{":alice!a@example.org JOIN #go", JoinEvent{Source: alice, Channel: "#go"}},
		{":alice!a@example.org PART #go", PartEvent{Source: alice, Channel: "#go"}},
		{":alice!a@example.org KICK #go bob :spam", KickEvent{Source: alice, Channel: "#go", Target: "bob", Reason: "spam"}},
		{":alice!a@example.org QUIT :bye", QuitEvent{Source: alice, Reason: "bye"}},
		{":alice!a@example.org NICK alicia", NickEvent{Source: alice, NewNick: "alicia"}},
		{":alice!a@example.org INVITE me #secret", InviteEvent{Source: alice, Target: "me", Channel: "#secret"}},
		{"ERROR :Closing link", ErrorEvent{Reason: "Closing link"}},
		{":irc.test 001 me :Welcome", NumericEvent{Source: Source{Nick: "irc.test"}, Code: "001", Params: []string{"me", "Welcome"}}},
		{":alice!a@example.org KICK #go", UnknownEvent{Command: "KICK", Params: []string{"#go"}}},
		{"PING :irc.test", UnknownEvent{Command: "PING", Params: []string{"irc.test"}}},
	}

	for _, tt := range tests {
		msg, err := ircmsg.ParseLine(tt.line)
		if err != nil {
			t.Fatalf("ParseLine(%q): %v", tt.line, err)
		}
		if got := Decode(msg); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Decode(%q) = %#v, want %#v", tt.line, got, tt.want)
		}
	}
}

func TestDecodeMode(t *testing.T) {
	msg, err := ircmsg.ParseLine(":alice!a@example.org MODE #go +ob-k bob *!*@spam secret")
	if err != nil {
		t.Fatal(err)
	}
	ev, ok := Decode(msg).(ModeEvent)
	if !ok {
		t.Fatalf("expected ModeEvent, got %T", Decode(msg))
	}
	want := []ModeChange{
		{Add: true, Mode: 'o', Arg: "bob"},
		{Add: true, Mode: 'b', Arg: "*!*@spam"},
		{Add: false, Mode: 'k', Arg: "secret"},
	}
	if !reflect.DeepEqual(ev.Changes, want) {
		t.Errorf("changes = %v, want %v", ev.Changes, want)
	}
}
