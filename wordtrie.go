// Word trie over tokenized page names, consumed by the keyword matcher.
package vpad

// TrieBranch is one node. Words counts complete phrases ending here;
// Prefixes counts phrases passing through.
type TrieBranch struct {
	Words    int
	Prefixes int
	branches map[string]*TrieBranch
}

// WordTrie maps word sequences to branches.
type WordTrie struct {
	root *TrieBranch
}

func NewWordTrie() *WordTrie {
	return &WordTrie{root: newBranch()}
}

func newBranch() *TrieBranch {
	return &TrieBranch{branches: make(map[string]*TrieBranch)}
}

// Add inserts a phrase given as its word sequence.
func (t *WordTrie) Add(words []string) {
	t.root.add(words)
}

func (b *TrieBranch) add(words []string) {
	if len(words) == 0 {
		b.Words++
		return
	}
	b.Prefixes++
	next, ok := b.branches[words[0]]
	if !ok {
		next = newBranch()
		b.branches[words[0]] = next
	}
	next.add(words[1:])
}

// Query descends along words, returning nil once the path leaves the trie.
func (t *WordTrie) Query(words []string) *TrieBranch {
	branch := t.root
	for _, word := range words {
		branch = branch.branches[word]
		if branch == nil {
			return nil
		}
	}
	return branch
}

// QueryWord returns the branch one word below the root, or nil.
func (t *WordTrie) QueryWord(word string) *TrieBranch {
	return t.root.branches[word]
}

// Next returns the child branch for word. Safe on a nil receiver so
// matchers can chain lookups without guarding each step.
func (b *TrieBranch) Next(word string) *TrieBranch {
	if b == nil {
		return nil
	}
	return b.branches[word]
}
