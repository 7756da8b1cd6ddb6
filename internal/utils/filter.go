package utils

// SuggestionFilter drops candidates already seen, comparing case-insensitively.
// It is not safe for concurrent use.
type SuggestionFilter struct {
	seenWords map[string]struct{}
}

// NewSuggestionFilter creates a filter that already treats the given words as seen.
func NewSuggestionFilter(exclude ...string) *SuggestionFilter {
	seenWords := make(map[string]struct{}, len(exclude)+8)
	for _, w := range exclude {
		seenWords[Fold(w)] = struct{}{}
	}
	return &SuggestionFilter{seenWords: seenWords}
}

// ShouldInclude checks if a word should be included in results (not a duplicate)
// Returns true if the word should be included, false if it's a duplicate
func (f *SuggestionFilter) ShouldInclude(word string) bool {
	key := Fold(word)
	if _, ok := f.seenWords[key]; ok {
		return false
	}
	f.seenWords[key] = struct{}{}
	return true
}

// Seen reports whether word was already accepted, without recording it.
func (f *SuggestionFilter) Seen(word string) bool {
	_, ok := f.seenWords[Fold(word)]
	return ok
}
