package detect

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	ahocorasick "github.com/BobuSumisu/aho-corasick"
	"gopkg.in/yaml.v3"
)

// wordList is a bulkIgnore source. The trie finds which words occur in a
// candidate before any per-word regex runs.
type wordList struct {
	words []string
	trie  *ahocorasick.Trie
}

// present returns the distinct words that occur in s, in list order.
func (w *wordList) present(s string) []string {
	if w.trie == nil || s == "" {
		return nil
	}
	hits := make(map[string]bool)
	for _, m := range w.trie.Match([]byte(s)) {
		hits[string(m.Match())] = true
	}
	if len(hits) == 0 {
		return nil
	}
	out := make([]string, 0, len(hits))
	for _, word := range w.words {
		if hits[word] {
			out = append(out, word)
			delete(hits, word)
		}
	}
	return out
}

type wordListEntry struct {
	once sync.Once
	list *wordList
	err  error
}

// wordLists caches loaded lists by path for the life of an Engine.
type wordLists struct {
	m sync.Map // path -> *wordListEntry
}

func (c *wordLists) get(path string) (*wordList, error) {
	v, _ := c.m.LoadOrStore(path, &wordListEntry{})
	entry := v.(*wordListEntry)
	entry.once.Do(func() {
		entry.list, entry.err = loadWordList(path)
	})
	return entry.list, entry.err
}

// loadWordList reads a JSON array, a YAML sequence or one word per line.
func loadWordList(path string) (*wordList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var words []string
	trimmed := bytes.TrimSpace(data)
	switch {
	case bytes.HasPrefix(trimmed, []byte("[")):
		err = json.Unmarshal(trimmed, &words)
	case strings.EqualFold(filepath.Ext(path), ".yaml"), strings.EqualFold(filepath.Ext(path), ".yml"):
		err = yaml.Unmarshal(data, &words)
	default:
		sc := bufio.NewScanner(bytes.NewReader(data))
		for sc.Scan() {
			if line := strings.TrimSpace(sc.Text()); line != "" {
				words = append(words, line)
			}
		}
		err = sc.Err()
	}
	if err != nil {
		return nil, err
	}

	return newWordList(words), nil
}

func newWordList(words []string) *wordList {
	var kept []string
	for _, w := range words {
		if w != "" {
			kept = append(kept, w)
		}
	}
	if len(kept) == 0 {
		return &wordList{}
	}
	return &wordList{
		words: kept,
		trie:  ahocorasick.NewTrieBuilder().AddStrings(kept).Build(),
	}
}
