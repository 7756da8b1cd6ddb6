package suggest

import (
	"github.com/bastiangx/nickserve/internal/utils"
)

// MatchChannel returns the candidates for partial in a channel, each with
// suffix appended.
//
// Recently seen nicks come first, own-addressed before plain, each group in
// recency order. Roster members other than the local user follow. Unless
// strict matching is set, members whose nick without punctuation starts with
// partial are added last. partial itself is never stripped. No candidate
// appears twice, ignoring case.
func (e *Engine) MatchChannel(ch ChannelView, partial, suffix string) []string {
	if partial == "" || ch == nil {
		return nil
	}
	opts := e.options()
	format := func(nick string) string {
		s := nick + suffix
		if opts.Lowercase {
			s = utils.Lower(s)
		}
		return s
	}
	filter := utils.NewSuggestionFilter()

	var boosted, plain []string
	for _, rec := range ch.Records() {
		if !utils.HasPrefixFold(rec.Nick, partial) {
			continue
		}
		s := format(rec.Nick)
		if !filter.ShouldInclude(s) {
			continue
		}
		if rec.Own > 0 {
			boosted = append(boosted, s)
		} else {
			plain = append(plain, s)
		}
	}
	out := append(boosted, plain...)

	members := ch.Members()
	if members == nil {
		return out
	}
	for _, nick := range members.WithPrefix(partial) {
		if members.IsOwn(nick) {
			continue
		}
		if s := format(nick); filter.ShouldInclude(s) {
			out = append(out, s)
		}
	}

	if opts.Strict {
		return out
	}
	for _, nick := range members.WithStrippedPrefix(partial) {
		if s := format(nick); filter.ShouldInclude(s) {
			out = append(out, s)
		}
	}
	return out
}
