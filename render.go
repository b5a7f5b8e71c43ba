// Markdown export with wiki links resolved against the link cache.
//
// RenderPage locates cached keywords in a page's text case-insensitively,
// skips occurrences that sit inside bigger words or existing markdown
// links, and rewrites the rest as links to <name>.md files.
package vpad

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

func markdownLink(text, url string) string {
	return fmt.Sprintf("[%s](%s)", text, url)
}

// inMarkdownLink reports whether idx falls inside an existing markdown
// link, looking at most 64 bytes to either side.
func inMarkdownLink(text string, idx int) bool {
	const window = 64
	lo := max(idx-window, 0)
	hi := min(idx+window, len(text)-1)

	leftParen := indexByteIn(text, '(', lo, idx)
	rightParen := indexByteIn(text, ')', idx, hi)
	leftBracket := indexByteIn(text, '[', lo, idx)
	rightBracket := indexByteIn(text, ']', idx, hi)

	if leftBracket != -1 && rightBracket != -1 && rightBracket+1 < len(text) {
		if text[rightBracket+1] == '(' {
			return true
		}
	}
	if leftParen != -1 && rightParen != -1 && leftParen > 0 {
		if text[leftParen-1] == ']' {
			return true
		}
	}
	return false
}

// indexByteIn finds c within text[lo:hi], returning its absolute position
// or -1.
func indexByteIn(text string, c byte, lo, hi int) int {
	if lo < 0 || hi > len(text) || lo >= hi {
		return -1
	}
	n := strings.IndexByte(text[lo:hi], c)
	if n < 0 {
		return -1
	}
	return lo + n
}

func isLinkBoundaryLeft(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r'
}

func isLinkBoundaryRight(c byte) bool {
	return c == ' ' || c == '.' || c == ',' || c == '\n' || c == '\r'
}

// RenderPage returns the page's text with cached keywords rewritten as
// markdown links.
func (s *Store) RenderPage(c *Cache, id string) (string, error) {
	it, ok := s.Record(id)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	text, _ := s.Item(id)

	links, err := c.Links(id)
	if err != nil {
		return "", err
	}

	lower := strings.ToLower(text)
	if len(lower) != len(text) {
		// Lowercasing changed byte offsets (non-ASCII casing); match and
		// slice against the lowered form so positions stay aligned.
		text = lower
	}

	positions := make(map[int]string)
	for key := range links {
		// A page never links to itself.
		if key == it.Key {
			continue
		}

		idx := 0
		for {
			n := strings.Index(lower[idx:], key)
			if n < 0 {
				break
			}
			n += idx
			end := n + len(key)

			// A bare link target like [Name](name) gets its target
			// rewritten in place rather than wrapped again.
			if n >= 2 && end < len(text) && text[n-1] == '(' && text[end] == ')' && text[n-2] == ']' {
				positions[n] = key
				idx = end
				continue
			}

			// Part of a bigger word.
			if (n != 0 && !isLinkBoundaryLeft(text[n-1])) ||
				(end < len(text) && !isLinkBoundaryRight(text[end])) {
				idx = end
				continue
			}

			if inMarkdownLink(text, n) {
				idx = end
				continue
			}

			positions[n] = key
			idx = end
		}
	}

	if len(positions) == 0 {
		return text, nil
	}

	sorted := make([]int, 0, len(positions))
	for idx := range positions {
		sorted = append(sorted, idx)
	}
	sort.Ints(sorted)

	var b strings.Builder
	prev := 0
	for _, idx := range sorted {
		key := positions[idx]
		end := idx + len(key)
		b.WriteString(text[prev:idx])
		if idx >= 2 && text[idx-1] == '(' && text[idx-2] == ']' {
			b.WriteString(links[key] + ".md")
		} else {
			word := text[idx:end]
			b.WriteString(markdownLink(word, links[key]+".md"))
		}
		prev = end
	}
	b.WriteString(text[prev:])
	return b.String(), nil
}

// RenderDocument writes every page to dir as <displayName>.md. Aliases
// have no content and are skipped.
func (s *Store) RenderDocument(c *Cache, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, id := range s.UUIDs() {
		it, _ := s.Record(id)
		if it.Alias() {
			continue
		}
		text, err := s.RenderPage(c, id)
		if err != nil {
			return err
		}
		name := filepath.Join(dir, it.DisplayName+".md")
		if err := os.WriteFile(name, []byte(text), 0o644); err != nil {
			return err
		}
	}
	return nil
}
