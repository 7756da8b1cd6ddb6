package suggest

import (
	"strings"

	"github.com/bastiangx/nickserve/internal/utils"
	"github.com/bastiangx/nickserve/pkg/tracking"
)

// channelPrefixes are the characters a channel name can start with.
const channelPrefixes = "#&!+"

// IsChannelName reports whether word looks like a channel name.
func IsChannelName(word string) bool {
	return word != "" && strings.ContainsRune(channelPrefixes, rune(word[0]))
}

// CompleteWord completes word in the window described by win. linestart is
// the text of the input line before word.
//
// Channel-looking words complete to channel names. Otherwise, with the
// active server connected: an empty word at the start of the line offers a
// message command to recent targets; a query window offers its peer; a
// channel window offers nicks, addressed with the completion char at the
// start of the line; a messages window offers recent message targets.
func (e *Engine) CompleteWord(win Context, word, linestart string) ([]string, bool) {
	if IsChannelName(word) && len(e.store.Servers()) > 0 {
		out := e.completeChannels(win.Server, word)
		return out, len(out) > 0
	}

	srv, ok := e.store.Server(win.Server)
	if !ok {
		return nil, false
	}

	if linestart == "" && word == "" {
		prefix := e.options().CmdChar() + "msg"
		out := e.MatchMessageTarget(srv.Tag, "", "", prefix)
		if len(out) == 0 {
			out = []string{prefix}
		}
		return out, true
	}

	var out []string
	switch {
	case win.Kind == DirectMessageScope && utils.HasPrefixFold(win.Target, word):
		out = []string{win.Target}
	case win.Kind == ChannelScope:
		out = e.completeWindowNicks(srv, win, word, linestart)
	case win.Messages:
		out = e.MatchMessageTarget(srv.Tag, "", word, "")
	}
	return out, len(out) > 0
}

// completeWindowNicks matches the active channel and, mid-line, the other
// channels of the window. At the start of the line the user is most likely
// answering someone in the active channel, so other channels are skipped.
func (e *Engine) completeWindowNicks(srv *tracking.Server, win Context, word, linestart string) []string {
	var suffix string
	if linestart == "" {
		suffix = e.options().Char
	}

	filter := utils.NewSuggestionFilter()
	var out []string
	join := func(candidates []string) {
		for _, c := range candidates {
			if filter.ShouldInclude(c) {
				out = append(out, c)
			}
		}
	}

	if ch, ok := srv.Channel(win.Target); ok {
		join(e.MatchChannel(ch, word, suffix))
	}
	if linestart == "" {
		return out
	}
	for _, item := range win.Items {
		if utils.EqualFold(item, win.Target) {
			continue
		}
		if ch, ok := srv.Channel(item); ok {
			join(e.MatchChannel(ch, word, ""))
		}
	}
	return out
}

// completeChannels returns channels joined on the active server, in join
// order, followed by configured channels.
func (e *Engine) completeChannels(server, word string) []string {
	filter := utils.NewSuggestionFilter()
	var out []string
	if srv, ok := e.store.Server(server); ok {
		for _, ch := range srv.Channels() {
			if utils.HasPrefixFold(ch.Name, word) && filter.ShouldInclude(ch.Name) {
				out = append(out, ch.Name)
			}
		}
	}
	for _, name := range e.channels.WithPrefix(word) {
		if filter.ShouldInclude(name) {
			out = append(out, name)
		}
	}
	return out
}

// lineServer returns the tag named by a leading "-tag" option in line, if
// that server is connected.
func (e *Engine) lineServer(line string) string {
	if !strings.HasPrefix(line, "-") {
		return ""
	}
	tag := line[1:]
	if sp := strings.IndexByte(tag, ' '); sp >= 0 {
		tag = tag[:sp]
	}
	srv, ok := e.store.Server(tag)
	if !ok {
		return ""
	}
	return srv.Tag
}

// CompleteMessageCommand completes the target of a message command. line is
// the command's argument text; a leading "-tag" restricts completion to that
// server.
func (e *Engine) CompleteMessageCommand(activeServer, word, line string) []string {
	srv, ok := e.store.Server(activeServer)
	if !ok {
		return nil
	}
	return e.MatchMessageTarget(srv.Tag, e.lineServer(line), word, "")
}

// EraseCompletion forgets word as a message target: it is removed from the
// global list and from the private list of the "-tag" server in line, or of
// the active server. It reports whether anything was removed.
func (e *Engine) EraseCompletion(activeServer, word, line string) bool {
	tag := e.lineServer(line)
	if tag == "" {
		tag = activeServer
	}
	srv, ok := e.store.Server(tag)
	if !ok || word == "" {
		return false
	}
	inGlobal := e.store.GlobalRemove(word)
	inServer := srv.Recent().Remove(word)
	return inGlobal || inServer
}

// CompleteConnect offers configured network names, then server addresses.
func (e *Engine) CompleteConnect(word string) []string {
	var out []string
	for _, name := range e.setup.Chatnets {
		if utils.HasPrefixFold(name, word) {
			out = append(out, name)
		}
	}
	for _, addr := range e.setup.Servers {
		if utils.HasPrefixFold(addr, word) {
			out = append(out, addr)
		}
	}
	return out
}

// CompleteTopic offers the topic of the active channel for an empty word.
func (e *Engine) CompleteTopic(win Context, word string) []string {
	if word != "" || win.Kind != ChannelScope {
		return nil
	}
	ch, ok := e.store.Channel(win.Server, win.Target)
	if !ok || ch.Topic == "" {
		return nil
	}
	return []string{ch.Topic}
}
