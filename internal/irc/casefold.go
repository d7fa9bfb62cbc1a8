package irc

import "strings"

// foldName applies rfc1459 casemapping, the default most networks advertise.
func foldName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		case r == '[':
			return '{'
		case r == ']':
			return '}'
		case r == '\\':
			return '|'
		case r == '~':
			return '^'
		}
		return r
	}, name)
}

func sameName(a, b string) bool {
	return foldName(a) == foldName(b)
}

// IsChannel reports whether target names a channel rather than a user.
func IsChannel(target string) bool {
	if target == "" {
		return false
	}
	switch target[0] {
	case '#', '&', '+', '!':
		return true
	}
	return false
}
