package tracking

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bastiangx/nickserve/pkg/config"
	"github.com/bastiangx/nickserve/pkg/recency"
)

func testClock() func() time.Time {
	t := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := config.DefaultConfig().Completion
	cfg.OwnWindow = 3
	cfg.KeepPublics = 4
	cfg.KeepPrivates = 2
	s := New(cfg, testClock())
	s.ServerConnected("libera", "me")
	_, ok := s.ChannelJoined("libera", "#go")
	require.True(t, ok)
	require.True(t, s.NickAdded("libera", "#go", "alice", "bob", "carol"))
	return s
}

func nicks(recs []recency.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Nick
	}
	return out
}

func TestPublicMessage(t *testing.T) {
	s := newTestStore(t)

	assert.True(t, s.PublicMessage("libera", "#go", "alice", false))
	assert.True(t, s.PublicMessage("LIBERA", "#GO", "bob", true))

	ch, ok := s.Channel("libera", "#go")
	require.True(t, ok)
	if diff := cmp.Diff([]string{"bob", "alice"}, nicks(ch.Records())); diff != "" {
		t.Errorf("public list mismatch (-want +got):\n%s", diff)
	}
	rec, _ := ch.Recent().Find("bob")
	assert.Equal(t, 3, rec.Own)
}

func TestUnknownScopesAreIgnored(t *testing.T) {
	s := newTestStore(t)

	assert.False(t, s.PublicMessage("libera", "#rust", "alice", false))
	assert.False(t, s.PublicMessage("oftc", "#go", "alice", false))
	assert.False(t, s.PrivateMessage("oftc", "alice"))
	assert.False(t, s.NickRemoved("libera", "#rust", "alice"))
	assert.False(t, s.NickChanged("oftc", "#go", "alice", "alicia"))
	assert.False(t, s.ChannelDestroyed("libera", "#rust"))
	assert.False(t, s.ServerDisconnected("oftc"))
	assert.False(t, s.SetTopic("libera", "#rust", "x"))
	assert.Equal(t, Stats{Servers: 1, Channels: 1}, s.Stats())
}

func TestPublicCapacity(t *testing.T) {
	s := newTestStore(t)
	for _, n := range []string{"a", "b", "c", "d", "e", "f"} {
		s.PublicMessage("libera", "#go", n, false)
	}
	ch, _ := s.Channel("libera", "#go")
	assert.Equal(t, []string{"f", "e", "d", "c"}, nicks(ch.Records()))
}

func TestPrivateMessagesAreOwnDirected(t *testing.T) {
	s := newTestStore(t)

	s.PrivateMessage("libera", "alice")
	s.PrivateMessage("libera", "bob")
	s.PrivateMessage("libera", "carol")

	srv, _ := s.Server("libera")
	recs := srv.Recent().Records()
	assert.Equal(t, []string{"carol", "bob"}, nicks(recs), "private capacity is 2")
	assert.Equal(t, 3, recs[0].Own)
	assert.Equal(t, 2, recs[1].Own)
}

func TestOwnPublicMessage(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want []string
		ok   bool
	}{
		{"plain nick", "alice hello", []string{"alice"}, true},
		{"separator", "bob: hello", []string{"bob"}, true},
		{"case", "CAROL, hi", []string{"carol"}, true},
		{"self", "me: talking to myself", nil, false},
		{"not a member", "dave: hi", nil, false},
		{"single word", "alice", nil, false},
		{"leading space", " alice hi", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			assert.Equal(t, tt.ok, s.OwnPublicMessage("libera", "#go", tt.msg))

			ch, _ := s.Channel("libera", "#go")
			got := nicks(ch.Records())
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
			rec, _ := ch.Recent().Find(tt.want[0])
			assert.Equal(t, 3, rec.Own, "guessed addressee is own-directed")
		})
	}
}

func TestOwnPrivateMessageSkipsOpenQueries(t *testing.T) {
	s := newTestStore(t)
	require.True(t, s.QueryOpened("libera", "Alice"))

	assert.False(t, s.OwnPrivateMessage("libera", "alice"))
	assert.True(t, s.OwnPrivateMessage("libera", "bob"))

	srv, _ := s.Server("libera")
	assert.Equal(t, []string{"bob"}, nicks(srv.Recent().Records()))
	assert.Equal(t, []string{"Alice"}, nicks(s.Global().Records()), "opening a query feeds the global list")

	require.True(t, s.QueryClosed("libera", "ALICE"))
	assert.True(t, s.OwnPrivateMessage("libera", "alice"))
}

func TestNickChangedPropagates(t *testing.T) {
	s := newTestStore(t)
	s.PublicMessage("libera", "#go", "bob", true)
	ch, _ := s.Channel("libera", "#go")
	before, _ := ch.Recent().Find("bob")

	require.True(t, s.NickChanged("libera", "#go", "Bob", "Bobby"))

	after, ok := ch.Recent().Find("bobby")
	require.True(t, ok)
	assert.Equal(t, "Bobby", after.Nick)
	assert.Equal(t, before.Own, after.Own)
	assert.Equal(t, before.Seen, after.Seen)
	_, ok = ch.Recent().Find("bob")
	assert.False(t, ok)
	_, ok = ch.Members().Find("bobby")
	assert.True(t, ok)
}

func TestNickChangedEverywhere(t *testing.T) {
	s := newTestStore(t)
	s.ChannelJoined("libera", "#rust")
	s.NickAdded("libera", "#rust", "bob")
	s.PublicMessage("libera", "#rust", "bob", false)

	require.True(t, s.NickChanged("libera", "", "bob", "robert"))
	for _, name := range []string{"#go", "#rust"} {
		ch, _ := s.Channel("libera", name)
		_, ok := ch.Members().Find("robert")
		assert.True(t, ok, name)
	}

	require.True(t, s.NickChanged("libera", "", "me", "newme"))
	srv, _ := s.Server("libera")
	assert.Equal(t, "newme", srv.Nick)
	ch, _ := s.Channel("libera", "#go")
	assert.True(t, ch.Members().IsOwn("NEWME"))
}

func TestNickRemoved(t *testing.T) {
	s := newTestStore(t)
	s.PublicMessage("libera", "#go", "alice", false)

	assert.True(t, s.NickRemoved("libera", "#go", "ALICE"))
	ch, _ := s.Channel("libera", "#go")
	assert.Empty(t, ch.Records())
	_, ok := ch.Members().Find("alice")
	assert.False(t, ok)
	assert.False(t, s.NickRemoved("libera", "#go", "alice"), "already gone")

	assert.True(t, s.NickRemoved("libera", "", "bob"))
}

func TestScopeTeardown(t *testing.T) {
	s := newTestStore(t)
	s.PublicMessage("libera", "#go", "alice", false)
	ch, _ := s.Channel("libera", "#go")

	require.True(t, s.ChannelDestroyed("libera", "#go"))
	assert.Empty(t, ch.Records(), "a released list queries as empty")
	_, ok := s.Channel("libera", "#go")
	assert.False(t, ok)

	s.PrivateMessage("libera", "alice")
	srv, _ := s.Server("libera")
	require.True(t, s.ServerDisconnected("libera"))
	assert.Empty(t, srv.Recent().Records())
	assert.Empty(t, s.Servers())
}

func TestServersKeepConnectionOrder(t *testing.T) {
	s := New(config.DefaultConfig().Completion, testClock())
	for _, tag := range []string{"oftc", "libera", "efnet"} {
		s.ServerConnected(tag, "me")
	}
	s.ServerDisconnected("libera")
	s.ServerConnected("ircnet", "me")

	var tags []string
	for _, srv := range s.Servers() {
		tags = append(tags, srv.Tag)
	}
	assert.Equal(t, []string{"oftc", "efnet", "ircnet"}, tags)
}

func TestGlobalHooks(t *testing.T) {
	s := newTestStore(t)
	s.GlobalAdd("alice")
	s.GlobalAdd("bob")

	assert.True(t, s.GlobalRename("alice", "alicia"))
	assert.True(t, s.GlobalRemove("BOB"))
	assert.False(t, s.GlobalRemove("bob"))
	assert.Equal(t, []string{"alicia"}, nicks(s.Global().Records()))

	s.Close()
	assert.Empty(t, s.Global().Records())
	assert.Empty(t, s.Servers())
}

func TestConfigReloadAppliesToNextInsert(t *testing.T) {
	s := newTestStore(t)
	for _, n := range []string{"a", "b", "c", "d"} {
		s.PublicMessage("libera", "#go", n, false)
	}
	cfg := s.Config()
	cfg.KeepPublics = 2
	s.SetConfig(cfg)
	s.PublicMessage("libera", "#go", "e", false)

	ch, _ := s.Channel("libera", "#go")
	assert.Equal(t, []string{"e", "d"}, nicks(ch.Records()))
}

func TestConfigReloadTrimsExistingLists(t *testing.T) {
	s := newTestStore(t)
	s.PublicMessage("libera", "#go", "alice", true)
	for _, n := range []string{"bob", "carol", "dave"} {
		s.PublicMessage("libera", "#go", n, false)
	}
	s.PrivateMessage("libera", "erin")
	s.PrivateMessage("libera", "fred")
	s.GlobalAdd("gus")
	s.GlobalAdd("hal")

	cfg := s.Config()
	cfg.OwnWindow = 1
	cfg.KeepPublics = 3
	cfg.KeepPrivates = 1
	s.SetConfig(cfg)

	ch, _ := s.Channel("libera", "#go")
	assert.Equal(t, []string{"dave", "carol", "bob"}, nicks(ch.Records()))
	srv, _ := s.Server("libera")
	assert.Equal(t, []string{"fred"}, nicks(srv.Recent().Records()))
	assert.Equal(t, []string{"hal"}, nicks(s.Global().Records()))

	// a boost granted under the old window is capped before the next insert
	s.SetConfig(config.CompletionConfig{OwnWindow: 1, KeepPublics: 4, KeepPrivates: 2})
	s.PrivateMessage("libera", "ivy")
	s.SetConfig(config.CompletionConfig{OwnWindow: 0, KeepPublics: 4, KeepPrivates: 2})
	for _, lst := range [][]recency.Record{ch.Records(), srv.Recent().Records(), s.Global().Records()} {
		for _, rec := range lst {
			assert.Equal(t, 0, rec.Own, rec.Nick)
		}
	}
}

func TestOwnNickChangeInChannelUpdatesServer(t *testing.T) {
	s := newTestStore(t)
	require.True(t, s.NickChanged("libera", "#go", "me", "me2"))

	srv, _ := s.Server("libera")
	assert.Equal(t, "me2", srv.Nick)
	ch, _ := s.Channel("libera", "#go")
	assert.True(t, ch.Members().IsOwn("me2"))
	assert.True(t, Mentions("me2: hi", srv.Nick))
	assert.False(t, Mentions("me: hi", srv.Nick))
}

func TestMentions(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"me: hi", true},
		{"ME, hi", true},
		{"me", true},
		{"meow there", false},
		{"hi me", false},
		{"alice,me: both of you", true},
		{"alice,bob: not me", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, Mentions(tt.msg, "me"))
		})
	}
}
