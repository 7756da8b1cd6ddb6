package tracking

import (
	"strings"
	"unicode/utf8"

	"github.com/bastiangx/nickserve/internal/utils"
)

// Mentions reports whether msg is addressed to ownNick: the line starts with
// the nick followed by a non-alphanumeric character or the end of the line.
// Lines addressed to several people at once ("alice,bob: hi") match any of
// the listed nicks.
func Mentions(msg, ownNick string) bool {
	if ownNick == "" || msg == "" {
		return false
	}
	head := msg
	if sp := strings.IndexByte(head, ' '); sp >= 0 {
		head = head[:sp]
	}
	for _, target := range strings.Split(head, ",") {
		if addressed(target, ownNick) {
			return true
		}
	}
	return false
}

func addressed(s, nick string) bool {
	// rune by rune, so a folded prefix never ends inside a character
	rest := s
	for _, want := range nick {
		got, size := utf8.DecodeRuneInString(rest)
		if size == 0 || !utils.EqualFold(string(got), string(want)) {
			return false
		}
		rest = rest[size:]
	}
	if rest == "" {
		return true
	}
	next, _ := utf8.DecodeRuneInString(rest)
	return !utils.IsAlnum(next)
}
