package server

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/goleak"
	"golang.org/x/time/rate"

	"github.com/bastiangx/nickserve/pkg/config"
	"github.com/bastiangx/nickserve/pkg/suggest"
	"github.com/bastiangx/nickserve/pkg/tracking"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type client struct {
	t    *testing.T
	enc  *msgpack.Encoder
	dec  *msgpack.Decoder
	done chan error
}

func startServer(t *testing.T, ctx context.Context, cfg *config.Config, configPath string) *client {
	t.Helper()
	reqR, reqW := io.Pipe()
	respR, respW := io.Pipe()

	store := tracking.New(cfg.Completion, nil)
	srv := NewServer(suggest.New(store, cfg.Setup), cfg, configPath)

	c := &client{
		t:    t,
		enc:  msgpack.NewEncoder(reqW),
		dec:  msgpack.NewDecoder(respR),
		done: make(chan error, 1),
	}
	go func() {
		err := srv.Serve(ctx, reqR, respW)
		respW.Close()
		c.done <- err
	}()

	var ready AckResponse
	require.NoError(t, c.dec.Decode(&ready))
	require.Equal(t, StatusReady, ready.Status)

	t.Cleanup(func() {
		reqW.Close()
		select {
		case err := <-c.done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})
	return c
}

func (c *client) send(req Request) {
	c.t.Helper()
	require.NoError(c.t, c.enc.Encode(req))
}

func (c *client) ack(req Request) string {
	c.t.Helper()
	c.send(req)
	var resp AckResponse
	require.NoError(c.t, c.dec.Decode(&resp))
	require.Equal(c.t, req.ID, resp.ID)
	return resp.Status
}

func (c *client) complete(req Request) CompletionResponse {
	c.t.Helper()
	c.send(req)
	var resp CompletionResponse
	require.NoError(c.t, c.dec.Decode(&resp))
	require.Equal(c.t, req.ID, resp.ID)
	return resp
}

func (c *client) fail(req Request) CompletionError {
	c.t.Helper()
	c.send(req)
	var resp CompletionError
	require.NoError(c.t, c.dec.Decode(&resp))
	return resp
}

func words(resp CompletionResponse) []string {
	out := make([]string, len(resp.Suggestions))
	for i, s := range resp.Suggestions {
		out[i] = s.Word
	}
	return out
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Server.WatchConfig = false
	return cfg
}

func setupChannel(c *client) {
	c.t.Helper()
	require.Equal(c.t, StatusOK, c.ack(Request{ID: "c1", Op: "connect", Server: "libera", Nick: "me"}))
	require.Equal(c.t, StatusOK, c.ack(Request{ID: "c2", Op: "channel_join", Server: "libera", Channel: "#go"}))
	require.Equal(c.t, StatusOK, c.ack(Request{ID: "c3", Op: "names", Server: "libera", Channel: "#go", Nicks: []string{"alice", "alan", "albert"}}))
}

func TestCompleteOverIPC(t *testing.T) {
	c := startServer(t, context.Background(), testConfig(), "")
	setupChannel(c)

	assert.Equal(t, StatusOK, c.ack(Request{ID: "e1", Op: "public", Server: "libera", Channel: "#go", Nick: "alice", Text: "me: ping"}))
	assert.Equal(t, StatusOK, c.ack(Request{ID: "e2", Op: "public", Server: "libera", Channel: "#go", Nick: "alan", Text: "hello all"}))

	resp := c.complete(Request{ID: "q1", Op: "complete", Server: "libera", Kind: "channel", Target: "#go", Word: "al"})
	assert.Equal(t, []string{"alice:", "alan:", "albert:"}, words(resp))
	assert.Equal(t, 3, resp.Count)
	assert.True(t, resp.Handled)
	for i, s := range resp.Suggestions {
		assert.Equal(t, uint16(i+1), s.Rank)
	}

	resp = c.complete(Request{ID: "q2", Op: "complete", Server: "libera", Kind: "channel", Target: "#go", Word: "al", Line: "hey", Limit: 2})
	assert.Equal(t, []string{"alice", "alan"}, words(resp))
}

func TestExplicitDirectedFlag(t *testing.T) {
	c := startServer(t, context.Background(), testConfig(), "")
	setupChannel(c)

	yes, no := true, false
	c.ack(Request{ID: "e1", Op: "public", Server: "libera", Channel: "#go", Nick: "albert", Directed: &yes})
	c.ack(Request{ID: "e2", Op: "public", Server: "libera", Channel: "#go", Nick: "alan", Text: "me: flag wins", Directed: &no})

	resp := c.complete(Request{ID: "q", Op: "complete", Server: "libera", Kind: "channel", Target: "#go", Word: "al", Line: "x"})
	assert.Equal(t, []string{"albert", "alan", "alice"}, words(resp))
}

func TestMessageTargetsOverIPC(t *testing.T) {
	c := startServer(t, context.Background(), testConfig(), "")
	c.ack(Request{ID: "1", Op: "connect", Server: "A", Nick: "me"})
	c.ack(Request{ID: "2", Op: "connect", Server: "B", Nick: "me"})
	c.ack(Request{ID: "3", Op: "private", Server: "B", Nick: "bob"})
	c.ack(Request{ID: "4", Op: "own_private", Server: "A", Nick: "bea"})

	resp := c.complete(Request{ID: "5", Op: "complete_msg", Server: "A", Word: "b"})
	assert.Equal(t, []string{"bea", "-B bob"}, words(resp))

	resp = c.complete(Request{ID: "6", Op: "complete", Server: "A", Word: "", Line: ""})
	assert.Equal(t, []string{"/msg bea", "/msg -B bob"}, words(resp))
	assert.True(t, resp.Handled)

	assert.Equal(t, StatusOK, c.ack(Request{ID: "7", Op: "erase", Server: "A", Word: "bob", Line: "-B bob"}))
	resp = c.complete(Request{ID: "8", Op: "complete_msg", Server: "A", Word: "b"})
	assert.Equal(t, []string{"bea"}, words(resp))
}

func TestSendOverIPC(t *testing.T) {
	cfg := testConfig()
	cfg.Completion.Auto = true
	cfg.Completion.ExpandEscapes = true
	c := startServer(t, context.Background(), cfg, "")
	setupChannel(c)

	c.send(Request{ID: "s1", Op: "send", Server: "libera", Kind: "channel", Target: "#go", Text: `albe: one\ntwo`})
	var resp SendResponse
	require.NoError(t, c.dec.Decode(&resp))
	assert.Equal(t, "s1", resp.ID)
	assert.Equal(t, []string{"albert: one", "two"}, resp.Lines)
}

func TestEventsForUnknownScopesAreIgnored(t *testing.T) {
	c := startServer(t, context.Background(), testConfig(), "")
	setupChannel(c)

	assert.Equal(t, StatusIgnored, c.ack(Request{ID: "1", Op: "public", Server: "libera", Channel: "#rust", Nick: "x"}))
	assert.Equal(t, StatusIgnored, c.ack(Request{ID: "2", Op: "private", Server: "oftc", Nick: "x"}))
	assert.Equal(t, StatusOK, c.ack(Request{ID: "3", Op: "disconnect", Server: "libera"}))

	resp := c.complete(Request{ID: "4", Op: "complete", Server: "libera", Kind: "channel", Target: "#go", Word: "al"})
	assert.Empty(t, resp.Suggestions)
	assert.False(t, resp.Handled)
}

func TestErrors(t *testing.T) {
	c := startServer(t, context.Background(), testConfig(), "")

	e := c.fail(Request{ID: "1", Op: "frobnicate"})
	assert.Equal(t, "1", e.ID)
	assert.Equal(t, 400, e.Code)
	assert.Equal(t, "unknown op: frobnicate", e.Error)

	e = c.fail(Request{ID: "2", Op: "public", Server: "libera", Channel: "#go"})
	assert.Equal(t, 400, e.Code)
	assert.Contains(t, e.Error, "missing field")

	// a well-formed value of the wrong shape does not break the stream
	require.NoError(t, c.enc.Encode("not a request"))
	var bad CompletionError
	require.NoError(t, c.dec.Decode(&bad))
	assert.Equal(t, 400, bad.Code)

	assert.Equal(t, StatusOK, c.ack(Request{ID: "3", Op: "health"}))
}

func TestStats(t *testing.T) {
	c := startServer(t, context.Background(), testConfig(), "")
	setupChannel(c)
	c.ack(Request{ID: "1", Op: "join", Server: "libera", Channel: "#go", Nick: "dave"})
	c.ack(Request{ID: "2", Op: "query_open", Server: "libera", Nick: "erin"})

	c.send(Request{ID: "s", Op: "stats"})
	var resp StatsResponse
	require.NoError(t, c.dec.Decode(&resp))
	assert.Equal(t, tracking.Stats{Servers: 1, Channels: 1, Queries: 1, Global: 1, Public: 1}, resp.Stats)
	assert.Equal(t, 6, resp.Requests)
}

func TestShutdownOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := startServer(t, ctx, testConfig(), "")
	assert.Equal(t, StatusOK, c.ack(Request{ID: "1", Op: "health"}))

	cancel()
	select {
	case err := <-c.done:
		assert.NoError(t, err)
		c.done <- err
	case <-time.After(5 * time.Second):
		t.Fatal("server ignored cancellation")
	}
}

func TestConfigReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.FileName)
	cfg := config.DefaultConfig()
	require.NoError(t, config.SaveConfig(cfg, path))

	c := startServer(t, context.Background(), cfg, path)
	setupChannel(c)
	time.Sleep(100 * time.Millisecond)

	updated := config.DefaultConfig()
	updated.Completion.Auto = true
	require.NoError(t, config.SaveConfig(updated, path))

	deadline := time.Now().Add(5 * time.Second)
	for {
		c.send(Request{ID: "s", Op: "send", Server: "libera", Kind: "channel", Target: "#go", Text: "alic: hi"})
		var resp SendResponse
		require.NoError(t, c.dec.Decode(&resp))
		if resp.Lines[0] == "alice: hi" {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("config change was not applied")
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestApplyLimits(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RateLimit = 5
	cfg.Server.RateBurst = 3
	s := NewServer(suggest.New(tracking.New(cfg.Completion, nil), cfg.Setup), cfg, "")
	assert.Equal(t, rate.Limit(5), s.limiter.Limit())
	assert.Equal(t, 3, s.limiter.Burst())

	s.applyConfig(testConfig())
	assert.Equal(t, rate.Inf, s.limiter.Limit())
}

func TestNeed(t *testing.T) {
	assert.NoError(t, need("x", "a", "1", "b", "2"))
	err := need("public", "srv", "libera", "n", "")
	assert.True(t, errors.Is(err, ErrMissingField))
	assert.Contains(t, err.Error(), `"n"`)
}
