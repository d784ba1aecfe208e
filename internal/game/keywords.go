package game

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Keywords is the pool secret words are drawn from
type Keywords struct {
	words []string
}

type keywordFile struct {
	Keywords []string `yaml:"keywords"`
}

// ParseKeywords reads a yaml document with a top-level "keywords" list
func ParseKeywords(data []byte) (*Keywords, error) {
	var f keywordFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse keywords: %w", err)
	}

	seen := make(map[string]bool, len(f.Keywords))
	words := make([]string, 0, len(f.Keywords))
	for _, w := range f.Keywords {
		w = strings.TrimSpace(w)
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		words = append(words, w)
	}
	if len(words) == 0 {
		return nil, errors.New("keyword list is empty")
	}
	return &Keywords{words: words}, nil
}

// LoadKeywordsFile reads a keyword list from disk
func LoadKeywordsFile(path string) (*Keywords, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keywords file: %w", err)
	}
	return ParseKeywords(data)
}

// NewKeywords builds a pool from an explicit list
func NewKeywords(words ...string) *Keywords {
	return &Keywords{words: append([]string(nil), words...)}
}

// Len returns the number of keywords
func (k *Keywords) Len() int {
	return len(k.words)
}

// Contains reports whether w is in the pool
func (k *Keywords) Contains(w string) bool {
	for _, x := range k.words {
		if x == w {
			return true
		}
	}
	return false
}

// Pick returns a uniformly random keyword
func (k *Keywords) Pick(rng *rand.Rand) string {
	return k.words[rng.IntN(len(k.words))]
}
