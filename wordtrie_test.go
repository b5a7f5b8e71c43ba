package vpad

import "testing"

func TestWordTrieCounts(t *testing.T) {
	trie := NewWordTrie()

	check := func(words []string, wantWords, wantPrefixes int) {
		t.Helper()
		branch := trie.Query(words)
		if branch == nil {
			t.Fatalf("Query(%v) = nil", words)
		}
		if branch.Words != wantWords {
			t.Errorf("Query(%v).Words = %d, want %d", words, branch.Words, wantWords)
		}
		if branch.Prefixes != wantPrefixes {
			t.Errorf("Query(%v).Prefixes = %d, want %d", words, branch.Prefixes, wantPrefixes)
		}
	}

	trie.Add([]string{"hello", "there"})
	check([]string{"hello"}, 0, 1)

	trie.Add([]string{"hello", "world"})
	check([]string{"hello"}, 0, 2)

	trie.Add([]string{"hello"})
	check([]string{"hello"}, 1, 2)

	trie.Add([]string{"wombat", "hello"})
	check([]string{"hello"}, 1, 2)

	check([]string{"hello", "world"}, 1, 0)

	if branch := trie.Query([]string{"koala"}); branch != nil {
		t.Errorf("Query(koala) = %v, want nil", branch)
	}
}

func TestWordTrieQueryWord(t *testing.T) {
	trie := NewWordTrie()
	trie.Add([]string{"atari", "st"})

	if trie.QueryWord("atari") == nil {
		t.Errorf("QueryWord(atari) = nil")
	}
	if trie.QueryWord("amiga") != nil {
		t.Errorf("QueryWord(amiga) != nil")
	}
	if trie.QueryWord("atari").Next("st") == nil {
		t.Errorf("Next(st) = nil")
	}
	var nilBranch *TrieBranch
	if nilBranch.Next("anything") != nil {
		t.Errorf("nil branch Next != nil")
	}
}
