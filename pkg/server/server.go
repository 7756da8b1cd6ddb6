package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/bastiangx/nickserve/internal/logger"
	"github.com/bastiangx/nickserve/internal/utils"
	"github.com/bastiangx/nickserve/pkg/config"
	"github.com/bastiangx/nickserve/pkg/suggest"
	"github.com/bastiangx/nickserve/pkg/tracking"
)

var (
	// ErrUnknownOp is returned for requests with an op the server does not know.
	ErrUnknownOp = errors.New("unknown op")
	// ErrMissingField is returned when a request lacks a field its op needs.
	ErrMissingField = errors.New("missing field")
)

// Server handles the IPC for nick completion. All requests and config
// reloads are applied by a single control loop, so the engine and its store
// are never touched concurrently.
type Server struct {
	engine     *suggest.Engine
	config     *config.Config
	configPath string
	limiter    *rate.Limiter
	lg         *log.Logger
	requests   int
	started    time.Time
}

// inbound is a decoded request, or the reason one could not be decoded.
type inbound struct {
	req Request
	err error
}

// NewServer creates a server over engine. configPath is watched for changes
// when the config enables it; an empty path disables watching.
func NewServer(engine *suggest.Engine, cfg *config.Config, configPath string) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s := &Server{
		engine:     engine,
		config:     cfg,
		configPath: configPath,
		limiter:    rate.NewLimiter(rate.Inf, 1),
		lg:         logger.New("server"),
	}
	s.applyLimits()
	return s
}

// Start serves stdin and stdout until stdin is closed or ctx is done.
func (s *Server) Start(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve reads requests from r and writes responses to w until r is
// exhausted, ctx is done or the stream breaks. Reaching the end of r is not
// an error. When r is an io.Closer it is closed on shutdown so the reader
// goroutine can exit.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.started = time.Now()
	s.lg.Debug("serving", "watch", s.config.Server.WatchConfig, "config", s.configPath)

	g, gctx := errgroup.WithContext(ctx)
	requests := make(chan inbound)
	reloads := make(chan *config.Config)

	g.Go(func() error {
		return s.decode(gctx, r, requests)
	})
	if s.config.Server.WatchConfig && s.configPath != "" {
		g.Go(func() error {
			if err := config.Watch(gctx, s.configPath, reloads); err != nil {
				s.lg.Warnf("config watch disabled: %v", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		if c, ok := r.(io.Closer); ok {
			_ = c.Close()
		}
		return nil
	})
	g.Go(func() error {
		defer cancel()
		return s.loop(gctx, requests, reloads, msgpack.NewEncoder(w))
	})

	return g.Wait()
}

func (s *Server) decode(ctx context.Context, r io.Reader, out chan<- inbound) error {
	defer close(out)
	dec := msgpack.NewDecoder(r)
	for {
		raw, err := dec.DecodeRaw()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, os.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read request: %w", err)
		}
		var in inbound
		if err := msgpack.Unmarshal(raw, &in.req); err != nil {
			in.err = fmt.Errorf("invalid request: %w", err)
		}
		select {
		case out <- in:
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *Server) loop(ctx context.Context, requests <-chan inbound, reloads <-chan *config.Config, enc *msgpack.Encoder) error {
	if err := enc.Encode(AckResponse{Status: StatusReady}); err != nil {
		return fmt.Errorf("write ready: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil

		case cfg := <-reloads:
			s.applyConfig(cfg)

		case in, ok := <-requests:
			if !ok {
				return nil
			}
			if err := s.limiter.Wait(ctx); err != nil {
				return nil
			}
			if err := s.respond(enc, s.handle(in)); err != nil {
				return err
			}
		}
	}
}

func (s *Server) respond(enc *msgpack.Encoder, resp any) error {
	err := enc.Encode(resp)
	if err == nil {
		return nil
	}
	s.lg.Errorf("encoding response: %v", err)
	if err := enc.Encode(CompletionError{ID: responseID(resp), Error: "internal server error", Code: 500}); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}

func responseID(resp any) string {
	switch r := resp.(type) {
	case CompletionResponse:
		return r.ID
	case SendResponse:
		return r.ID
	case AckResponse:
		return r.ID
	case StatsResponse:
		return r.ID
	case CompletionError:
		return r.ID
	}
	return ""
}

// applyConfig swaps in a reloaded config.
func (s *Server) applyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	s.config = cfg
	s.engine.Reload(cfg)
	s.applyLimits()
	s.lg.Debug("config applied",
		"strict", cfg.Completion.Strict,
		"auto", cfg.Completion.AutoComplete(),
		"keep_publics", cfg.Completion.KeepPublics,
		"keep_privates", cfg.Completion.KeepPrivates)
}

func (s *Server) applyLimits() {
	sc := s.config.Server
	if sc.RateLimit <= 0 {
		s.limiter.SetLimit(rate.Inf)
	} else {
		s.limiter.SetLimit(rate.Limit(sc.RateLimit))
	}
	s.limiter.SetBurst(max(sc.RateBurst, 1))
}

// handle turns one request into its response.
func (s *Server) handle(in inbound) any {
	s.requests++
	if in.err != nil {
		s.lg.Debugf("rejecting request: %v", in.err)
		return CompletionError{ID: in.req.ID, Error: in.err.Error(), Code: 400}
	}
	resp, err := s.dispatch(in.req)
	if err != nil {
		s.lg.Debug("request failed", "id", in.req.ID, "op", in.req.Op, "err", err)
		return CompletionError{ID: in.req.ID, Error: err.Error(), Code: 400}
	}
	return resp
}

func (s *Server) dispatch(req Request) (any, error) {
	store := s.engine.Store()

	switch req.Op {
	case "complete":
		if err := need(req.Op, "srv", req.Server); err != nil {
			return nil, err
		}
		return s.complete(req, func() ([]string, bool) {
			return s.engine.CompleteWord(window(req), req.Word, req.Line)
		}), nil
	case "complete_msg":
		if err := need(req.Op, "srv", req.Server); err != nil {
			return nil, err
		}
		return s.complete(req, func() ([]string, bool) {
			out := s.engine.CompleteMessageCommand(req.Server, req.Word, req.Line)
			return out, len(out) > 0
		}), nil
	case "connect_complete":
		return s.complete(req, func() ([]string, bool) {
			out := s.engine.CompleteConnect(req.Word)
			return out, len(out) > 0
		}), nil
	case "topic":
		return s.complete(req, func() ([]string, bool) {
			out := s.engine.CompleteTopic(window(req), req.Word)
			return out, len(out) > 0
		}), nil
	case "send":
		return SendResponse{ID: req.ID, Lines: s.engine.SendText(window(req), req.Text)}, nil
	case "erase":
		if err := need(req.Op, "p", req.Word); err != nil {
			return nil, err
		}
		return ack(req, s.engine.EraseCompletion(req.Server, req.Word, req.Line)), nil

	case "connect":
		if err := need(req.Op, "srv", req.Server, "n", req.Nick); err != nil {
			return nil, err
		}
		store.ServerConnected(req.Server, req.Nick)
		return ack(req, true), nil
	case "disconnect":
		if err := need(req.Op, "srv", req.Server); err != nil {
			return nil, err
		}
		return ack(req, store.ServerDisconnected(req.Server)), nil
	case "own_nick":
		if err := need(req.Op, "srv", req.Server, "n", req.Nick); err != nil {
			return nil, err
		}
		return ack(req, store.OwnNickChanged(req.Server, req.Nick)), nil
	case "channel_join":
		if err := need(req.Op, "srv", req.Server, "ch", req.Channel); err != nil {
			return nil, err
		}
		_, ok := store.ChannelJoined(req.Server, req.Channel)
		return ack(req, ok), nil
	case "channel_destroy":
		if err := need(req.Op, "srv", req.Server, "ch", req.Channel); err != nil {
			return nil, err
		}
		return ack(req, store.ChannelDestroyed(req.Server, req.Channel)), nil
	case "names":
		if err := need(req.Op, "srv", req.Server, "ch", req.Channel); err != nil {
			return nil, err
		}
		return ack(req, store.NickAdded(req.Server, req.Channel, req.Nicks...)), nil
	case "set_topic":
		if err := need(req.Op, "srv", req.Server, "ch", req.Channel); err != nil {
			return nil, err
		}
		return ack(req, store.SetTopic(req.Server, req.Channel, req.Text)), nil

	case "public":
		if err := need(req.Op, "srv", req.Server, "ch", req.Channel, "n", req.Nick); err != nil {
			return nil, err
		}
		return ack(req, store.PublicMessage(req.Server, req.Channel, req.Nick, s.directed(req))), nil
	case "join":
		if err := need(req.Op, "srv", req.Server, "ch", req.Channel, "n", req.Nick); err != nil {
			return nil, err
		}
		return ack(req, store.ChannelJoin(req.Server, req.Channel, req.Nick)), nil
	case "private":
		if err := need(req.Op, "srv", req.Server, "n", req.Nick); err != nil {
			return nil, err
		}
		return ack(req, store.PrivateMessage(req.Server, req.Nick)), nil
	case "own_public":
		if err := need(req.Op, "srv", req.Server, "ch", req.Channel); err != nil {
			return nil, err
		}
		return ack(req, store.OwnPublicMessage(req.Server, req.Channel, req.Text)), nil
	case "own_private":
		if err := need(req.Op, "srv", req.Server, "n", req.Nick); err != nil {
			return nil, err
		}
		return ack(req, store.OwnPrivateMessage(req.Server, req.Nick)), nil
	case "part":
		if err := need(req.Op, "srv", req.Server, "n", req.Nick); err != nil {
			return nil, err
		}
		return ack(req, store.NickRemoved(req.Server, req.Channel, req.Nick)), nil
	case "nick":
		if err := need(req.Op, "srv", req.Server, "n", req.Nick, "nn", req.NewNick); err != nil {
			return nil, err
		}
		return ack(req, store.NickChanged(req.Server, req.Channel, req.Nick, req.NewNick)), nil
	case "query_open":
		if err := need(req.Op, "srv", req.Server, "n", req.Nick); err != nil {
			return nil, err
		}
		return ack(req, store.QueryOpened(req.Server, req.Nick)), nil
	case "query_close":
		if err := need(req.Op, "srv", req.Server, "n", req.Nick); err != nil {
			return nil, err
		}
		return ack(req, store.QueryClosed(req.Server, req.Nick)), nil
	case "global_add":
		if err := need(req.Op, "n", req.Nick); err != nil {
			return nil, err
		}
		store.GlobalAdd(req.Nick)
		return ack(req, true), nil
	case "global_remove":
		if err := need(req.Op, "n", req.Nick); err != nil {
			return nil, err
		}
		return ack(req, store.GlobalRemove(req.Nick)), nil
	case "global_rename":
		if err := need(req.Op, "n", req.Nick, "nn", req.NewNick); err != nil {
			return nil, err
		}
		return ack(req, store.GlobalRename(req.Nick, req.NewNick)), nil

	case "health":
		return ack(req, true), nil
	case "stats":
		return StatsResponse{
			ID:       req.ID,
			Status:   StatusOK,
			Requests: s.requests,
			Uptime:   int64(time.Since(s.started).Seconds()),
			Stats:    store.Stats(),
		}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownOp, req.Op)
}

// complete runs a completion query, caps the result and times it.
func (s *Server) complete(req Request, query func() ([]string, bool)) CompletionResponse {
	start := time.Now()
	words, handled := query()
	elapsed := time.Since(start)

	limit := s.config.Server.MaxLimit
	if req.Limit > 0 && (limit == 0 || req.Limit < limit) {
		limit = req.Limit
	}
	if limit > 0 && len(words) > limit {
		words = words[:limit]
	}

	ranks := utils.RankList(len(words))
	suggestions := make([]CompletionSuggestion, len(words))
	for i, w := range words {
		suggestions[i] = CompletionSuggestion{Word: w, Rank: ranks[i]}
	}
	s.lg.Debugf("%s %q: %d candidates in %v", req.Op, req.Word, len(words), elapsed)

	return CompletionResponse{
		ID:          req.ID,
		Suggestions: suggestions,
		Count:       len(suggestions),
		Handled:     handled,
		TimeTaken:   elapsed.Microseconds(),
	}
}

// directed tells whether a public message addressed the local user, from
// the explicit flag or else from the message text.
func (s *Server) directed(req Request) bool {
	if req.Directed != nil {
		return *req.Directed
	}
	srv, ok := s.engine.Store().Server(req.Server)
	if !ok {
		return false
	}
	return tracking.Mentions(req.Text, srv.Nick)
}

func window(req Request) suggest.Context {
	return suggest.Context{
		Kind:     suggest.ParseKind(req.Kind),
		Server:   req.Server,
		Target:   req.Target,
		Items:    req.Items,
		Messages: req.Messages,
	}
}

func ack(req Request, changed bool) AckResponse {
	status := StatusIgnored
	if changed {
		status = StatusOK
	}
	return AckResponse{ID: req.ID, Status: status}
}

// need checks name/value pairs and reports the first empty value.
func need(op string, pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			return fmt.Errorf("%w: %s needs %q", ErrMissingField, op, pairs[i])
		}
	}
	return nil
}
