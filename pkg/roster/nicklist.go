package roster

import (
	"sort"

	"github.com/tchap/go-patricia/v2/patricia"

	"github.com/bastiangx/nickserve/internal/utils"
)

// Nicklist is the membership of one channel, including the local user.
//
// Besides the exact index it keeps a second trie keyed by each nick with all
// non-alphanumeric characters removed, so "foo" can find "_foo_" or "fo-o".
type Nicklist struct {
	own   string
	nicks *Index
	strip *patricia.Trie
}

// New creates a nicklist whose local user is own. own is added as a member.
func New(own string) *Nicklist {
	n := &Nicklist{
		nicks: NewIndex(),
		strip: patricia.NewTrie(),
	}
	n.SetOwn(own)
	return n
}

// Own returns the local user's nick in this channel.
func (n *Nicklist) Own() string {
	return n.own
}

// SetOwn changes the local user's nick, renaming the member entry if present.
func (n *Nicklist) SetOwn(nick string) {
	switch {
	case nick == "":
	case n.own != "" && n.Rename(n.own, nick):
		return
	default:
		n.Add(nick)
	}
	n.own = nick
}

// IsOwn reports whether nick is the local user.
func (n *Nicklist) IsOwn(nick string) bool {
	return n.own != "" && utils.EqualFold(nick, n.own)
}

// Add inserts members. Known members keep their entry.
func (n *Nicklist) Add(nicks ...string) {
	for _, nick := range nicks {
		if old, ok := n.nicks.Find(nick); ok {
			n.unstrip(old)
		}
		n.nicks.Add(nick)
		n.addStrip(nick)
	}
}

// Remove drops a member.
func (n *Nicklist) Remove(nick string) bool {
	old, ok := n.nicks.Find(nick)
	if !ok {
		return false
	}
	n.nicks.Remove(old)
	n.unstrip(old)
	return true
}

// Rename moves a member to a new nick.
func (n *Nicklist) Rename(oldNick, newNick string) bool {
	if !n.Remove(oldNick) {
		return false
	}
	n.Add(newNick)
	if n.IsOwn(oldNick) {
		n.own = newNick
	}
	return true
}

// Find returns the member spelling of nick, compared case-insensitively.
func (n *Nicklist) Find(nick string) (string, bool) {
	return n.nicks.Find(nick)
}

// WithPrefix returns members whose nick starts with prefix.
func (n *Nicklist) WithPrefix(prefix string) []string {
	return n.nicks.WithPrefix(prefix)
}

// WithStrippedPrefix returns members whose nick, once stripped of
// non-alphanumerics, starts with prefix. prefix itself is used as given.
func (n *Nicklist) WithStrippedPrefix(prefix string) []string {
	if prefix == "" {
		return nil
	}
	type hit struct {
		key  string
		nick string
	}
	var hits []hit
	err := n.strip.VisitSubtree(patricia.Prefix(utils.Fold(prefix)), func(p patricia.Prefix, item patricia.Item) error {
		for _, nick := range item.([]string) {
			hits = append(hits, hit{key: string(p) + "\x00" + utils.Fold(nick), nick: nick})
		}
		return nil
	})
	if err != nil {
		return nil
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].key < hits[j].key })

	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.nick
	}
	return out
}

// Nicks returns every member ordered by folded nick.
func (n *Nicklist) Nicks() []string {
	return n.nicks.All()
}

// Len returns the member count.
func (n *Nicklist) Len() int {
	return n.nicks.Len()
}

func (n *Nicklist) addStrip(nick string) {
	stripped := utils.StripNonAlnum(nick)
	if stripped == "" {
		return
	}
	key := patricia.Prefix(utils.Fold(stripped))
	if item := n.strip.Get(key); item != nil {
		n.strip.Set(key, append(item.([]string), nick))
		return
	}
	n.strip.Insert(key, []string{nick})
}

func (n *Nicklist) unstrip(nick string) {
	stripped := utils.StripNonAlnum(nick)
	if stripped == "" {
		return
	}
	key := patricia.Prefix(utils.Fold(stripped))
	item := n.strip.Get(key)
	if item == nil {
		return
	}
	var kept []string
	for _, other := range item.([]string) {
		if other != nick {
			kept = append(kept, other)
		}
	}
	if len(kept) == 0 {
		n.strip.Delete(key)
		return
	}
	n.strip.Set(key, kept)
}
