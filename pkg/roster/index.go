// Package roster mirrors channel membership and answers prefix queries over it.
package roster

import (
	"sort"

	"github.com/tchap/go-patricia/v2/patricia"

	"github.com/bastiangx/nickserve/internal/utils"
)

// Index maps case-folded names to their display spelling in a patricia trie,
// so prefix lookups only walk the matching subtree.
type Index struct {
	trie  *patricia.Trie
	count int
}

// NewIndex creates an empty index.
func NewIndex(names ...string) *Index {
	idx := &Index{trie: patricia.NewTrie()}
	for _, n := range names {
		idx.Add(n)
	}
	return idx
}

// Add stores name. An existing entry with the same folded key takes the new
// spelling. It reports whether the name was new.
func (idx *Index) Add(name string) bool {
	if name == "" {
		return false
	}
	key := patricia.Prefix(utils.Fold(name))
	if idx.trie.Insert(key, name) {
		idx.count++
		return true
	}
	idx.trie.Set(key, name)
	return false
}

// Remove deletes name.
func (idx *Index) Remove(name string) bool {
	if idx.trie.Delete(patricia.Prefix(utils.Fold(name))) {
		idx.count--
		return true
	}
	return false
}

// Find returns the stored spelling of name.
func (idx *Index) Find(name string) (string, bool) {
	item := idx.trie.Get(patricia.Prefix(utils.Fold(name)))
	if item == nil {
		return "", false
	}
	return item.(string), true
}

// WithPrefix returns every name whose folded form starts with the folded
// prefix, ordered by folded key.
func (idx *Index) WithPrefix(prefix string) []string {
	type hit struct {
		key  string
		name string
	}
	var hits []hit
	visit := func(p patricia.Prefix, item patricia.Item) error {
		hits = append(hits, hit{key: string(p), name: item.(string)})
		return nil
	}

	var err error
	if prefix == "" {
		err = idx.trie.Visit(visit)
	} else {
		err = idx.trie.VisitSubtree(patricia.Prefix(utils.Fold(prefix)), visit)
	}
	if err != nil {
		return nil
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].key < hits[j].key })
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.name
	}
	return out
}

// All returns every name ordered by folded key.
func (idx *Index) All() []string {
	return idx.WithPrefix("")
}

// Len returns the number of names.
func (idx *Index) Len() int {
	return idx.count
}
