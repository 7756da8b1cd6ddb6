/*
Package suggest is the core, ranking nick, query and channel candidates for a
partial word typed in a window.

Channel completion walks three tiers: nicks from the channel's recency list
(own-addressed ones first), then the rest of the roster, then roster nicks
whose alphanumeric-only form starts with the partial. Direct-message
completion merges the global list with every server's private list by
timestamp, marking candidates from servers other than the active one with
"-tag".

	store := tracking.New(cfg.Completion, nil)
	engine := suggest.New(store, cfg.Setup)
	win := suggest.Context{Kind: suggest.ChannelScope, Server: "libera", Target: "#go"}
	candidates, handled := engine.CompleteWord(win, "al", "")

Queries never fail and never mutate; no match is an empty result.
*/
package suggest

import (
	"github.com/bastiangx/nickserve/pkg/recency"
	"github.com/bastiangx/nickserve/pkg/roster"
)

// Kind is the type of the window item completion happens in.
type Kind int

const (
	// NoScope is a window without a channel or query, such as a status
	// or messages window.
	NoScope Kind = iota
	// ChannelScope is a channel window.
	ChannelScope
	// DirectMessageScope is a query window.
	DirectMessageScope
)

// String returns the wire name of k.
func (k Kind) String() string {
	switch k {
	case ChannelScope:
		return "channel"
	case DirectMessageScope:
		return "query"
	default:
		return "none"
	}
}

// ParseKind maps a wire name back to a Kind. Unknown names are NoScope.
func ParseKind(s string) Kind {
	switch s {
	case "channel":
		return ChannelScope
	case "query":
		return DirectMessageScope
	default:
		return NoScope
	}
}

// Context describes the window completion is invoked from.
type Context struct {
	Kind Kind
	// Server is the active server tag of the window.
	Server string
	// Target is the active channel or query name.
	Target string
	// Items lists the other channels shown in the same window.
	Items []string
	// Messages is set when the window collects private messages.
	Messages bool
}

// ChannelView is what the matcher reads from a channel.
type ChannelView interface {
	Records() []recency.Record
	Members() *roster.Nicklist
}

// ICompleter defines the completion entry points used by the line editor.
type ICompleter interface {
	// CompleteWord completes word in a window. handled is true whenever
	// candidates were found, so default completion should be suppressed.
	CompleteWord(win Context, word, linestart string) ([]string, bool)

	// CompleteMessageCommand completes the target of a message command.
	CompleteMessageCommand(activeServer, word, line string) []string

	// EraseCompletion forgets a rejected message target.
	EraseCompletion(activeServer, word, line string) bool

	// CompleteConnect completes network names and server addresses.
	CompleteConnect(word string) []string

	// CompleteTopic offers the current topic of a channel window.
	CompleteTopic(win Context, word string) []string

	// SendText prepares an outgoing line and returns the lines to send.
	SendText(win Context, line string) []string
}
