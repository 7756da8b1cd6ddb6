package tracking

import (
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/bastiangx/nickserve/internal/utils"
	"github.com/bastiangx/nickserve/pkg/recency"
	"github.com/bastiangx/nickserve/pkg/roster"
)

// Server is one connection and the scopes that live on it.
type Server struct {
	Tag  string
	Nick string

	now      func() time.Time
	recent   *recency.List
	channels *orderedmap.OrderedMap[string, *Channel]
	queries  *roster.Index
}

func newServer(tag, nick string, now func() time.Time) *Server {
	return &Server{
		Tag:      tag,
		Nick:     nick,
		now:      now,
		recent:   recency.New(now),
		channels: orderedmap.New[string, *Channel](),
		queries:  roster.NewIndex(),
	}
}

// Recent returns the server's private-message list.
func (srv *Server) Recent() *recency.List {
	return srv.recent
}

// Channel returns a joined channel by name.
func (srv *Server) Channel(name string) (*Channel, bool) {
	return srv.channels.Get(utils.Fold(name))
}

// Channels returns the joined channels in join order.
func (srv *Server) Channels() []*Channel {
	out := make([]*Channel, 0, srv.channels.Len())
	for p := srv.channels.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Value)
	}
	return out
}

// HasQuery reports whether a direct-message session with nick is open.
func (srv *Server) HasQuery(nick string) bool {
	_, ok := srv.queries.Find(nick)
	return ok
}

// Query returns the spelling of an open query.
func (srv *Server) Query(nick string) (string, bool) {
	return srv.queries.Find(nick)
}

func (srv *Server) join(name string) *Channel {
	key := utils.Fold(name)
	if ch, ok := srv.channels.Get(key); ok {
		return ch
	}
	ch := &Channel{
		Name:   name,
		nicks:  roster.New(srv.Nick),
		recent: recency.New(srv.now),
	}
	srv.channels.Set(key, ch)
	return ch
}

func (srv *Server) part(name string) bool {
	ch, ok := srv.channels.Delete(utils.Fold(name))
	if !ok {
		return false
	}
	ch.release()
	return true
}

func (srv *Server) release() {
	for _, ch := range srv.Channels() {
		ch.release()
	}
	srv.channels = orderedmap.New[string, *Channel]()
	srv.recent.Clear()
}

// Channel is a joined channel: its members, its public list and its topic.
type Channel struct {
	Name  string
	Topic string

	nicks  *roster.Nicklist
	recent *recency.List
}

// Records returns the public list front to back.
func (ch *Channel) Records() []recency.Record {
	return ch.recent.Records()
}

// Members returns the channel roster.
func (ch *Channel) Members() *roster.Nicklist {
	return ch.nicks
}

// Recent returns the channel's public list.
func (ch *Channel) Recent() *recency.List {
	return ch.recent
}

// release empties the channel so stale references to it match nothing.
func (ch *Channel) release() {
	ch.recent.Clear()
	ch.nicks = roster.New("")
}

func (ch *Channel) remove(nick string) bool {
	inRoster := ch.nicks.Remove(nick)
	inList := ch.recent.Remove(nick)
	return inRoster || inList
}

func (ch *Channel) rename(oldNick, newNick string) bool {
	inRoster := ch.nicks.Rename(oldNick, newNick)
	inList := ch.recent.Rename(oldNick, newNick)
	return inRoster || inList
}
