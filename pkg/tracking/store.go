/*
Package tracking owns every recency list of a chat session and keeps them in
step with the events the client reports.

There is one global list of direct-message peers, one private list per
connected server and one public list per joined channel. Besides the lists
the store mirrors what completion needs to know about the session: the
servers in connection order, their channels in join order, channel members,
open queries and topics.

Events that name a server or channel the store does not know are ignored and
reported as not handled. Nothing here returns an error.

A Store is not safe for concurrent use. Callers drive it from one goroutine.
*/
package tracking

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/bastiangx/nickserve/internal/logger"
	"github.com/bastiangx/nickserve/internal/utils"
	"github.com/bastiangx/nickserve/pkg/config"
	"github.com/bastiangx/nickserve/pkg/recency"
)

// Store is the session state behind completion.
type Store struct {
	cfg     config.CompletionConfig
	now     func() time.Time
	global  *recency.List
	servers *orderedmap.OrderedMap[string, *Server]
	lg      *log.Logger
}

// Stats summarizes what the store tracks.
type Stats struct {
	Servers  int `msgpack:"servers"`
	Channels int `msgpack:"channels"`
	Queries  int `msgpack:"queries"`
	Global   int `msgpack:"global"`
	Private  int `msgpack:"private"`
	Public   int `msgpack:"public"`
}

// New creates a store for one session. A nil clock means time.Now.
func New(cfg config.CompletionConfig, clock func() time.Time) *Store {
	if clock == nil {
		clock = time.Now
	}
	return &Store{
		cfg:     cfg,
		now:     clock,
		global:  recency.New(clock),
		servers: orderedmap.New[string, *Server](),
		lg:      logger.New("tracking"),
	}
}

// Config returns the completion settings in effect.
func (s *Store) Config() config.CompletionConfig {
	return s.cfg
}

// SetConfig replaces the completion settings. Every list is trimmed to the
// new limits right away.
func (s *Store) SetConfig(cfg config.CompletionConfig) {
	s.cfg = cfg
	s.global.Trim(s.privates())
	for _, srv := range s.Servers() {
		srv.recent.Trim(s.privates())
		for _, ch := range srv.Channels() {
			ch.recent.Trim(s.publics())
		}
	}
}

func (s *Store) publics() recency.Limits {
	return recency.Limits{Capacity: s.cfg.KeepPublics, OwnWindow: s.cfg.OwnWindow}
}

func (s *Store) privates() recency.Limits {
	return recency.Limits{Capacity: s.cfg.KeepPrivates, OwnWindow: s.cfg.OwnWindow}
}

// Global returns the session-wide list of direct-message peers.
func (s *Store) Global() *recency.List {
	return s.global
}

// Server returns the connected server with the given tag.
func (s *Store) Server(tag string) (*Server, bool) {
	return s.servers.Get(utils.Fold(tag))
}

// Servers returns the connected servers in connection order.
func (s *Store) Servers() []*Server {
	out := make([]*Server, 0, s.servers.Len())
	for p := s.servers.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Value)
	}
	return out
}

// Channel returns a joined channel.
func (s *Store) Channel(server, channel string) (*Channel, bool) {
	srv, ok := s.Server(server)
	if !ok {
		return nil, false
	}
	return srv.Channel(channel)
}

func (s *Store) server(tag, event string) *Server {
	srv, ok := s.Server(tag)
	if !ok {
		s.lg.Debug("ignoring event for unknown server", "event", event, "server", tag)
		return nil
	}
	return srv
}

func (s *Store) channel(server, channel, event string) *Channel {
	srv := s.server(server, event)
	if srv == nil {
		return nil
	}
	ch, ok := srv.Channel(channel)
	if !ok {
		s.lg.Debug("ignoring event for unknown channel", "event", event, "server", server, "channel", channel)
		return nil
	}
	return ch
}

// ServerConnected registers a server, or updates the local nick of one that
// is already known.
func (s *Store) ServerConnected(tag, ownNick string) *Server {
	if srv, ok := s.Server(tag); ok {
		s.OwnNickChanged(tag, ownNick)
		return srv
	}
	srv := newServer(tag, ownNick, s.now)
	s.servers.Set(utils.Fold(tag), srv)
	return srv
}

// ServerDisconnected drops a server along with its private list and all of
// its channels.
func (s *Store) ServerDisconnected(tag string) bool {
	srv, ok := s.servers.Delete(utils.Fold(tag))
	if !ok {
		return false
	}
	srv.release()
	return true
}

// OwnNickChanged records a new local nick on a server.
func (s *Store) OwnNickChanged(server, nick string) bool {
	srv := s.server(server, "own_nick")
	if srv == nil || nick == "" {
		return false
	}
	srv.Nick = nick
	for _, ch := range srv.Channels() {
		ch.nicks.SetOwn(nick)
	}
	return true
}

// ChannelJoined registers a channel the local user joined. Joining a known
// channel again keeps its state.
func (s *Store) ChannelJoined(server, channel string) (*Channel, bool) {
	srv := s.server(server, "channel_join")
	if srv == nil || channel == "" {
		return nil, false
	}
	return srv.join(channel), true
}

// ChannelDestroyed drops a channel and releases its public list.
func (s *Store) ChannelDestroyed(server, channel string) bool {
	srv := s.server(server, "channel_destroy")
	if srv == nil {
		return false
	}
	return srv.part(channel)
}

// NickAdded adds members to a channel roster without touching recency.
func (s *Store) NickAdded(server, channel string, nicks ...string) bool {
	ch := s.channel(server, channel, "names")
	if ch == nil {
		return false
	}
	ch.nicks.Add(nicks...)
	return true
}

// SetTopic stores the topic of a channel.
func (s *Store) SetTopic(server, channel, topic string) bool {
	ch := s.channel(server, channel, "set_topic")
	if ch == nil {
		return false
	}
	ch.Topic = topic
	return true
}

// PublicMessage records that nick spoke in a channel. directed tells whether
// the message addressed the local user.
func (s *Store) PublicMessage(server, channel, nick string, directed bool) bool {
	ch := s.channel(server, channel, "public")
	if ch == nil || nick == "" {
		return false
	}
	ch.recent.Add(nick, directed, s.publics())
	return true
}

// ChannelJoin records that nick joined a channel. The nick enters the roster
// as well.
func (s *Store) ChannelJoin(server, channel, nick string) bool {
	ch := s.channel(server, channel, "join")
	if ch == nil || nick == "" {
		return false
	}
	ch.nicks.Add(nick)
	ch.recent.Add(nick, false, s.publics())
	return true
}

// PrivateMessage records a direct message from nick. Direct messages always
// count as addressed to the local user.
func (s *Store) PrivateMessage(server, nick string) bool {
	srv := s.server(server, "private")
	if srv == nil || nick == "" {
		return false
	}
	srv.recent.Add(nick, true, s.privates())
	return true
}

// OwnPublicMessage inspects a line the local user sent to a channel. When
// its first word names a member other than the local user, that member is
// recorded as addressed. A trailing separator such as ':' or ',' is
// tolerated by retrying without the word's last character.
func (s *Store) OwnPublicMessage(server, channel, msg string) bool {
	ch := s.channel(server, channel, "own_public")
	if ch == nil {
		return false
	}
	sp := strings.IndexByte(msg, ' ')
	if sp <= 0 {
		return false
	}
	word := msg[:sp]
	nick, ok := ch.nicks.Find(word)
	if !ok && utf8.RuneCountInString(word) > 1 {
		nick, ok = ch.nicks.Find(utils.TrimLastRune(word))
	}
	if !ok || ch.nicks.IsOwn(nick) {
		return false
	}
	ch.recent.Add(nick, true, s.publics())
	return true
}

// OwnPrivateMessage records a direct message the local user sent. Targets
// with an open query are skipped; the query itself keeps them reachable.
func (s *Store) OwnPrivateMessage(server, target string) bool {
	srv := s.server(server, "own_private")
	if srv == nil || target == "" || srv.HasQuery(target) {
		return false
	}
	srv.recent.Add(target, true, s.privates())
	return true
}

// NickRemoved drops nick from a channel roster and public list. An empty
// channel applies it to every channel of the server, as a quit does.
func (s *Store) NickRemoved(server, channel, nick string) bool {
	if channel == "" {
		srv := s.server(server, "part")
		if srv == nil {
			return false
		}
		removed := false
		for _, ch := range srv.Channels() {
			removed = ch.remove(nick) || removed
		}
		return removed
	}
	ch := s.channel(server, channel, "part")
	if ch == nil {
		return false
	}
	return ch.remove(nick)
}

// NickChanged renames a member in a channel roster and public list. An empty
// channel applies it to every channel of the server. A rename of the local
// user's nick is server-wide whatever the channel.
func (s *Store) NickChanged(server, channel, oldNick, newNick string) bool {
	if newNick == "" {
		return false
	}
	srv := s.server(server, "nick")
	if srv == nil {
		return false
	}
	if utils.EqualFold(oldNick, srv.Nick) {
		return s.OwnNickChanged(server, newNick)
	}
	if channel == "" {
		renamed := false
		for _, ch := range srv.Channels() {
			renamed = ch.rename(oldNick, newNick) || renamed
		}
		return renamed
	}
	ch, ok := srv.Channel(channel)
	if !ok {
		s.lg.Debug("ignoring event for unknown channel", "event", "nick", "server", server, "channel", channel)
		return false
	}
	return ch.rename(oldNick, newNick)
}

// QueryOpened records an open direct-message session. The peer is added to
// the global list.
func (s *Store) QueryOpened(server, nick string) bool {
	srv := s.server(server, "query_open")
	if srv == nil || !srv.queries.Add(nick) {
		return false
	}
	s.GlobalAdd(nick)
	return true
}

// QueryClosed forgets a direct-message session.
func (s *Store) QueryClosed(server, nick string) bool {
	srv := s.server(server, "query_close")
	if srv == nil {
		return false
	}
	return srv.queries.Remove(nick)
}

// GlobalAdd records nick in the global list as addressed.
func (s *Store) GlobalAdd(nick string) {
	if nick == "" {
		return
	}
	s.global.Add(nick, true, s.privates())
}

// GlobalRemove drops nick from the global list.
func (s *Store) GlobalRemove(nick string) bool {
	return s.global.Remove(nick)
}

// GlobalRename renames nick in the global list.
func (s *Store) GlobalRename(oldNick, newNick string) bool {
	if newNick == "" {
		return false
	}
	return s.global.Rename(oldNick, newNick)
}

// Stats counts servers, channels and records.
func (s *Store) Stats() Stats {
	st := Stats{Global: s.global.Len()}
	for _, srv := range s.Servers() {
		st.Servers++
		st.Queries += srv.queries.Len()
		st.Private += srv.recent.Len()
		for _, ch := range srv.Channels() {
			st.Channels++
			st.Public += ch.recent.Len()
		}
	}
	return st
}

// Close releases every list. The store stays usable and empty.
func (s *Store) Close() {
	for _, srv := range s.Servers() {
		srv.release()
	}
	s.servers = orderedmap.New[string, *Server]()
	s.global.Clear()
}
