package irc

import (
	"strings"
	"testing"
)

func TestWhoisTable(t *testing.T) {
	w := newWhoisTable()

	if w.update(RPL_WHOISSERVER, []string{"ghost", "hub", "info"}) != nil || w.len() != 0 {
		t.Fatal("replies without a 311 must not create records")
	}

	w.update(RPL_WHOISUSER, []string{"Bob", "bobby", "host.example", "*", "Bob B"})
	w.update(RPL_WHOISOPERATOR, []string{"bob", "is an IRC operator"})
	w.update(RPL_WHOISCHANNELS, []string{"bob", "@#a +#b"})
	w.update(RPL_WHOISCHANNELS, []string{"bob", "#c"})
	info := w.update(RPL_ENDOFWHOIS, []string{"BOB", "End of /WHOIS list."})

	if info == nil {
		t.Fatal("expected a completed record")
	}
	if !info.Operator || info.Login != "bobby" {
		t.Errorf("info = %+v", info)
	}
	if strings.Join(info.Channels, ",") != "#c" {
		t.Errorf("channels = %v, a later 319 replaces the list", info.Channels)
	}
	if !strings.Contains(info.Summary(), "IRC operator: yes") {
		t.Errorf("summary missing operator line:\n%s", info.Summary())
	}
	if w.len() != 0 {
		t.Error("completed record should be evicted")
	}
}
