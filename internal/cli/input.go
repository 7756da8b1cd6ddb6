// Package cli drives the completion engine from a terminal for debugging.
//
// Each line is a command that either feeds a chat event into the session or
// asks for completions, so ranking can be tried out without a chat client.
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/bastiangx/nickserve/internal/logger"
	"github.com/bastiangx/nickserve/pkg/suggest"
	"github.com/bastiangx/nickserve/pkg/tracking"
)

const usage = `commands:
  connect <srv> <nick>             connect a server as nick
  disconnect <srv>
  join <srv> <#chan>               join a channel
  part <srv> <#chan> <nick>        nick leaves the channel
  names <srv> <#chan> <nick>...    add channel members
  say <srv> <#chan> <nick> <text>  public message from nick
  priv <srv> <nick>                private message from nick
  msg <srv> <nick>                 private message to nick
  nick <srv> <old> <new>           nick change
  tab <srv> <#chan> <word>         complete at the start of the line
  tabmid <srv> <#chan> <word>      complete in the middle of the line
  msgtab <srv> <word> [-tag]       complete a message target
  send <srv> <#chan> <text>        expand an outgoing line
  stats
  help`

var (
	candidateStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#286983", Dark: "#9ccfd8"})
	rankStyle      = lipgloss.NewStyle().Faint(true)
	lineStyle      = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#56949f", Dark: "#f6c177"})
)

var errUsage = errors.New("wrong arguments")

// InputHandler reads commands and prints completions.
type InputHandler struct {
	engine       *suggest.Engine
	in           io.Reader
	out          io.Writer
	lg           *log.Logger
	suggestLimit int
	requestCount int
}

// NewInputHandler creates a handler reading commands from in and writing
// results to out. limit caps the printed candidates, 0 means no cap.
func NewInputHandler(engine *suggest.Engine, in io.Reader, out io.Writer, limit int) *InputHandler {
	return &InputHandler{
		engine:       engine,
		in:           in,
		out:          out,
		lg:           logger.New("cli"),
		suggestLimit: limit,
	}
}

// Start runs the command loop until the input ends.
func (h *InputHandler) Start() error {
	fmt.Fprintln(h.out, "NickServe CLI [BETA]")
	fmt.Fprintln(h.out, "type help for commands (Ctrl+D to exit)")

	scanner := bufio.NewScanner(h.in)
	for {
		fmt.Fprint(h.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(h.out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := h.handleInput(line); err != nil {
			h.lg.Errorf("%s: %v", line, err)
		}
	}
}

func (h *InputHandler) handleInput(line string) error {
	h.requestCount++
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]
	store := h.engine.Store()

	switch cmd {
	case "help":
		fmt.Fprintln(h.out, usage)
		return nil
	case "stats":
		st := store.Stats()
		fmt.Fprintf(h.out, "servers=%d channels=%d queries=%d global=%d private=%d public=%d requests=%d\n",
			st.Servers, st.Channels, st.Queries, st.Global, st.Private, st.Public, h.requestCount)
		return nil

	case "connect":
		if len(args) != 2 {
			return errUsage
		}
		store.ServerConnected(args[0], args[1])
		return nil
	case "disconnect":
		if len(args) != 1 {
			return errUsage
		}
		return h.applied(store.ServerDisconnected(args[0]))
	case "join":
		if len(args) != 2 {
			return errUsage
		}
		_, ok := store.ChannelJoined(args[0], args[1])
		return h.applied(ok)
	case "part":
		if len(args) != 3 {
			return errUsage
		}
		return h.applied(store.NickRemoved(args[0], args[1], args[2]))
	case "names":
		if len(args) < 3 {
			return errUsage
		}
		return h.applied(store.NickAdded(args[0], args[1], args[2:]...))
	case "say":
		if len(args) < 3 {
			return errUsage
		}
		text := strings.Join(args[3:], " ")
		srv, ok := store.Server(args[0])
		if !ok {
			return h.applied(false)
		}
		return h.applied(store.PublicMessage(args[0], args[1], args[2], tracking.Mentions(text, srv.Nick)))
	case "priv":
		if len(args) != 2 {
			return errUsage
		}
		return h.applied(store.PrivateMessage(args[0], args[1]))
	case "msg":
		if len(args) != 2 {
			return errUsage
		}
		return h.applied(store.OwnPrivateMessage(args[0], args[1]))
	case "nick":
		if len(args) != 3 {
			return errUsage
		}
		return h.applied(store.NickChanged(args[0], "", args[1], args[2]))

	case "tab", "tabmid":
		if len(args) != 3 {
			return errUsage
		}
		linestart := ""
		if cmd == "tabmid" {
			linestart = "..."
		}
		win := suggest.Context{Kind: suggest.ChannelScope, Server: args[0], Target: args[1]}
		h.timed(args[2], func() []string {
			out, _ := h.engine.CompleteWord(win, args[2], linestart)
			return out
		})
		return nil
	case "msgtab":
		if len(args) < 2 || len(args) > 3 {
			return errUsage
		}
		line := ""
		if len(args) == 3 {
			line = args[2]
		}
		h.timed(args[1], func() []string {
			return h.engine.CompleteMessageCommand(args[0], args[1], line)
		})
		return nil
	case "send":
		if len(args) < 3 {
			return errUsage
		}
		win := suggest.Context{Kind: suggest.ChannelScope, Server: args[0], Target: args[1]}
		for _, l := range h.engine.SendText(win, strings.Join(args[2:], " ")) {
			fmt.Fprintln(h.out, lineStyle.Render(l))
		}
		return nil
	}
	return fmt.Errorf("unknown command %q, try help", cmd)
}

func (h *InputHandler) applied(changed bool) error {
	if changed {
		fmt.Fprintln(h.out, "ok")
	} else {
		fmt.Fprintln(h.out, "ignored")
	}
	return nil
}

// timed runs a completion query and prints its candidates.
func (h *InputHandler) timed(word string, query func() []string) {
	start := time.Now()
	candidates := query()
	h.lg.Debugf("Took [ %v ] for '%s'", time.Since(start), word)

	if h.suggestLimit > 0 && len(candidates) > h.suggestLimit {
		candidates = candidates[:h.suggestLimit]
	}
	if len(candidates) == 0 {
		fmt.Fprintf(h.out, "no candidates for '%s'\n", word)
		return
	}
	for i, c := range candidates {
		fmt.Fprintf(h.out, "%s %s\n", rankStyle.Render(fmt.Sprintf("%2d.", i+1)), candidateStyle.Render(c))
	}
}
