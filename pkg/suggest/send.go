package suggest

import (
	"strings"
)

// Expand completes the nick before the completion char of an outgoing line.
// When the text before the first completion char is not already a member of
// the channel, it is replaced by the best candidate. It reports whether the
// line changed. Nothing happens unless auto-complete is enabled.
func (e *Engine) Expand(ch ChannelView, line string) (string, bool) {
	opts := e.options()
	if !opts.AutoComplete() || ch == nil || ch.Members() == nil {
		return line, false
	}
	i := strings.Index(line, opts.Char)
	if i < 0 {
		return line, false
	}
	partial, rest := line[:i], line[i:]
	if _, ok := ch.Members().Find(partial); ok {
		return line, false
	}
	candidates := e.MatchChannel(ch, partial, "")
	if len(candidates) == 0 {
		return line, false
	}
	return candidates[0] + rest, true
}

// SendText runs an outgoing line through auto-complete, in channel windows
// only, and then through escape expansion when that is enabled. It returns
// the lines to send in order.
func (e *Engine) SendText(win Context, line string) []string {
	if win.Kind == ChannelScope {
		if ch, ok := e.store.Channel(win.Server, win.Target); ok {
			line, _ = e.Expand(ch, line)
		}
	}
	if !e.options().ExpandEscapes {
		return []string{line}
	}
	return ExpandEscapes(line)
}

// ExpandEscapes interprets backslash escapes in line. \n and \r end a line,
// \t, \e, \a and \\ become their characters. Unknown escapes and a trailing
// backslash are kept as typed. Empty lines are dropped.
func ExpandEscapes(line string) []string {
	var (
		lines []string
		b     strings.Builder
	)
	flush := func() {
		if b.Len() > 0 {
			lines = append(lines, b.String())
			b.Reset()
		}
	}

	for i := 0; i < len(line); i++ {
		c := line[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		if i+1 == len(line) {
			b.WriteByte('\\')
			break
		}
		i++
		switch line[i] {
		case 'n', 'r':
			flush()
		case 't':
			b.WriteByte('\t')
		case 'e':
			b.WriteByte(0x1b)
		case 'a':
			b.WriteByte(0x07)
		case '\\':
			b.WriteByte('\\')
		default:
			b.WriteByte('\\')
			b.WriteByte(line[i])
		}
	}
	flush()
	return lines
}
