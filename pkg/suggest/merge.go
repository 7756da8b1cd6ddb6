package suggest

import (
	"sort"
	"time"

	"github.com/bastiangx/nickserve/internal/utils"
	"github.com/bastiangx/nickserve/pkg/recency"
)

type target struct {
	text string
	seen time.Time
}

// MatchMessageTarget returns direct-message targets starting with partial,
// most recently seen first. An empty partial matches every target.
//
// With fixed set only that server's private list is searched. Otherwise the
// global list and every connected server's list are merged; candidates from
// servers other than active get "-tag" added to prefix so the command names
// the right connection. prefix is joined to each nick with a space.
func (e *Engine) MatchMessageTarget(active, fixed, partial, prefix string) []string {
	var found []target
	if fixed != "" {
		srv, ok := e.store.Server(fixed)
		if !ok {
			return nil
		}
		found = collectTargets(found, srv.Recent().Records(), partial, prefix)
		return sortTargets(found)
	}

	servers := e.store.Servers()
	if len(servers) == 0 {
		return nil
	}
	found = collectTargets(found, e.store.Global().Records(), partial, prefix)
	for _, srv := range servers {
		p := prefix
		if !utils.EqualFold(srv.Tag, active) {
			p = tagPrefix(prefix, srv.Tag)
		}
		found = collectTargets(found, srv.Recent().Records(), partial, p)
	}
	return sortTargets(found)
}

func tagPrefix(prefix, tag string) string {
	if prefix == "" {
		return "-" + tag
	}
	return prefix + " -" + tag
}

func collectTargets(dst []target, recs []recency.Record, partial, prefix string) []target {
	for _, rec := range recs {
		if partial != "" && !utils.HasPrefixFold(rec.Nick, partial) {
			continue
		}
		text := rec.Nick
		if prefix != "" {
			text = prefix + " " + rec.Nick
		}
		dst = append(dst, target{text: text, seen: rec.Seen})
	}
	return dst
}

// sortTargets orders by timestamp, newest first, keeping collection order
// for equal timestamps. The same nick tracked by several lists is listed
// once per list.
func sortTargets(found []target) []string {
	sort.SliceStable(found, func(i, j int) bool {
		return found[i].seen.After(found[j].seen)
	})
	out := make([]string, len(found))
	for i, t := range found {
		out[i] = t.text
	}
	return out
}
