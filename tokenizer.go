// Tokenizer and keyword extraction for wiki-style page linking.
//
// The store feeds lowercase page names into the trie; Keywords then finds
// which of those names appear in a page's text, matching whole phrases of
// tokens rather than substrings.
package vpad

import "strings"

// isBreak reports whether c separates words.
func isBreak(c byte) bool {
	switch c {
	case ' ', '\r', '\n', ';', ',', '.':
		return true
	}
	return false
}

// Tokenize splits text into words on the break characters. Empty tokens
// are never produced.
func Tokenize(text string) []string {
	var words []string
	start := -1
	for i := 0; i < len(text); i++ {
		if isBreak(text[i]) {
			if start >= 0 {
				words = append(words, text[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		words = append(words, text[start:])
	}
	return words
}

// Keywords returns the page-name phrases present in text, each at most
// once, in order of first appearance. Matching is greedy: at every token
// the longest complete phrase in the trie wins and consumes its tokens, so
// "atari st" beats "atari" when both are page names.
func Keywords(text string, trie *WordTrie) []string {
	tokens := Tokenize(strings.ToLower(text))
	seen := make(map[string]bool)
	var keywords []string

	for i := 0; i < len(tokens); {
		branch := trie.QueryWord(tokens[i])
		if branch == nil {
			i++
			continue
		}

		best := 0
		if branch.Words > 0 {
			best = 1
		}
		cur := branch
		for j := i + 1; j < len(tokens); j++ {
			cur = cur.Next(tokens[j])
			if cur == nil {
				break
			}
			if cur.Words > 0 {
				best = j - i + 1
			}
		}

		if best == 0 {
			i++
			continue
		}
		phrase := strings.Join(tokens[i:i+best], " ")
		if !seen[phrase] {
			seen[phrase] = true
			keywords = append(keywords, phrase)
		}
		i += best
	}
	return keywords
}
