package irc

// Numeric replies the adapter reacts to.
const (
	RPL_WELCOME       = "001"
	RPL_WHOISUSER     = "311"
	RPL_WHOISSERVER   = "312"
	RPL_WHOISOPERATOR = "313"
	RPL_WHOISIDLE     = "317"
	RPL_ENDOFWHOIS    = "318"
	RPL_WHOISCHANNELS = "319"
	RPL_LISTSTART     = "321"
	RPL_LIST          = "322"
	RPL_LISTEND       = "323"
	RPL_NOTOPIC       = "331"
	RPL_TOPIC         = "332"
	RPL_TOPICWHOTIME  = "333"
	RPL_NAMREPLY      = "353"
	RPL_ENDOFNAMES    = "366"
	RPL_ENDOFMOTD     = "376"

	ERR_NOSUCHNICK       = "401"
	ERR_NOSUCHCHANNEL    = "403"
	ERR_TOOMANYCHANNELS  = "405"
	ERR_NOMOTD           = "422"
	ERR_NONICKNAMEGIVEN  = "431"
	ERR_ERRONEUSNICKNAME = "432"
	ERR_NICKNAMEINUSE    = "433"
	ERR_NICKCOLLISION    = "436"
	ERR_USERNOTINCHANNEL = "441"
	ERR_NOTONCHANNEL     = "442"
	ERR_NEEDMOREPARAMS   = "461"
	ERR_YOUREBANNEDCREEP = "465"
	ERR_KEYSET           = "467"
	ERR_CHANNELISFULL    = "471"
	ERR_UNKNOWNMODE      = "472"
	ERR_INVITEONLYCHAN   = "473"
	ERR_BANNEDFROMCHAN   = "474"
	ERR_BADCHANNELKEY    = "475"
	ERR_BADCHANMASK      = "476"
	ERR_CHANOPRIVSNEEDED = "482"
	ERR_UMODEUNKNOWNFLAG = "501"
	ERR_USERSDONTMATCH   = "502"
)

// joinErrors are the replies a server sends instead of a JOIN confirmation.
var joinErrors = map[string]string{
	ERR_NOSUCHCHANNEL:   "no such channel",
	ERR_TOOMANYCHANNELS: "too many channels joined",
	ERR_CHANNELISFULL:   "channel is full",
	ERR_INVITEONLYCHAN:  "channel is invite only",
	ERR_BANNEDFROMCHAN:  "banned from channel",
	ERR_BADCHANNELKEY:   "bad channel key",
	ERR_BADCHANMASK:     "bad channel mask",
}

// operationErrors are routed to the pending-operation rendezvous.
var operationErrors = map[string]bool{
	ERR_NOSUCHNICK:       true,
	ERR_NOSUCHCHANNEL:    true,
	ERR_TOOMANYCHANNELS:  true,
	ERR_NONICKNAMEGIVEN:  true,
	ERR_ERRONEUSNICKNAME: true,
	ERR_NICKNAMEINUSE:    true,
	ERR_NICKCOLLISION:    true,
	ERR_USERNOTINCHANNEL: true,
	ERR_NOTONCHANNEL:     true,
	ERR_NEEDMOREPARAMS:   true,
	ERR_KEYSET:           true,
	ERR_CHANNELISFULL:    true,
	ERR_UNKNOWNMODE:      true,
	ERR_INVITEONLYCHAN:   true,
	ERR_BANNEDFROMCHAN:   true,
	ERR_BADCHANNELKEY:    true,
	ERR_BADCHANMASK:      true,
	ERR_CHANOPRIVSNEEDED: true,
	ERR_UMODEUNKNOWNFLAG: true,
	ERR_USERSDONTMATCH:   true,
}

// silentReplies are consumed without surfacing anything in the system room.
var silentReplies = map[string]bool{
	RPL_LISTSTART:    true,
	RPL_LISTEND:      true,
	RPL_TOPICWHOTIME: true,
}
