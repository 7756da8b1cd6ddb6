/*
Package server implements msgpack IPC for nick completion.

The client sends a stream of msgpack maps on stdin and receives exactly one
response per request on stdout, in request order. Logs go to stderr.

# IPC

Every request carries an ID and an op. Events keep the session state in step
with the chat client:

	{"id": "1", "op": "connect", "srv": "libera", "n": "me"}
	{"id": "2", "op": "channel_join", "srv": "libera", "ch": "#go"}
	{"id": "3", "op": "names", "srv": "libera", "ch": "#go", "ns": ["alice", "alan"]}
	{"id": "4", "op": "public", "srv": "libera", "ch": "#go", "n": "alice", "txt": "me: ping"}

Events are acknowledged with a status, "ok" when the event changed the state
and "ignored" when it referred to something unknown:

	{"id": "4", "status": "ok"}

Completion requests describe the window and the word being completed:

	{"id": "5", "op": "complete", "srv": "libera", "k": "channel", "tg": "#go", "p": "al", "line": ""}

The server responds with ranked candidates and the time taken in
microseconds. h tells the client whether to suppress its own completion:

	{"id": "5", "s": [{"w": "alice:", "r": 1}, {"w": "alan:", "r": 2}], "c": 2, "h": true, "t": 12}

Outgoing lines go through auto-complete and escape expansion:

	{"id": "6", "op": "send", "srv": "libera", "k": "channel", "tg": "#go", "txt": "ali: hi"}
	{"id": "6", "lines": ["alice: hi"]}

Errors carry a message and a code, 400 for malformed or unknown requests and
500 when a response cannot be encoded:

	{"id": "7", "e": "unknown op: frobnicate", "c": 400}

# Message Types

Request is the single request shape; each op reads the fields it needs.
CompletionResponse, SendResponse, AckResponse, StatsResponse and
CompletionError are the response shapes.
*/
package server

import (
	"github.com/bastiangx/nickserve/pkg/tracking"
)

// Request is a client request. Fields unused by an op are ignored.
type Request struct {
	ID string `msgpack:"id"`
	Op string `msgpack:"op"`

	Server   string   `msgpack:"srv,omitempty"`
	Channel  string   `msgpack:"ch,omitempty"`
	Nick     string   `msgpack:"n,omitempty"`
	NewNick  string   `msgpack:"nn,omitempty"`
	Nicks    []string `msgpack:"ns,omitempty"`
	Text     string   `msgpack:"txt,omitempty"`
	Directed *bool    `msgpack:"own,omitempty"` // for "public"; derived from txt when absent

	// completion window and word
	Kind     string   `msgpack:"k,omitempty"`
	Target   string   `msgpack:"tg,omitempty"`
	Items    []string `msgpack:"items,omitempty"`
	Messages bool     `msgpack:"msgs,omitempty"`
	Word     string   `msgpack:"p,omitempty"`
	Line     string   `msgpack:"line,omitempty"`
	Limit    int      `msgpack:"l,omitempty"`
}

// CompletionSuggestion - minimal suggestion response
type CompletionSuggestion struct {
	Word string `msgpack:"w"`
	Rank uint16 `msgpack:"r"`
}

// CompletionResponse - completion response
type CompletionResponse struct {
	ID          string                 `msgpack:"id"`
	Suggestions []CompletionSuggestion `msgpack:"s"`
	Count       int                    `msgpack:"c"`
	Handled     bool                   `msgpack:"h"`
	TimeTaken   int64                  `msgpack:"t"`
}

// SendResponse lists the lines to transmit for a "send" request.
type SendResponse struct {
	ID    string   `msgpack:"id"`
	Lines []string `msgpack:"lines"`
}

// AckResponse acknowledges an event.
type AckResponse struct {
	ID     string `msgpack:"id"`
	Status string `msgpack:"status"`
}

// StatsResponse reports what the session tracks.
type StatsResponse struct {
	ID       string         `msgpack:"id"`
	Status   string         `msgpack:"status"`
	Requests int            `msgpack:"requests"`
	Uptime   int64          `msgpack:"uptime"` // seconds
	Stats    tracking.Stats `msgpack:"stats"`
}

// CompletionError holds basic error information for failed requests
type CompletionError struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}

// Ack statuses.
const (
	StatusOK      = "ok"
	StatusIgnored = "ignored"
	StatusReady   = "ready"
)
