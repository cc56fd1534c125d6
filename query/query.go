// Package query remembers batch searches and offers them back as suggestions.
package query

import (
	"strings"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/metafates/gache"
	"github.com/padhai-cli/padhai/filesystem"
	"github.com/padhai-cli/padhai/key"
	"github.com/padhai-cli/padhai/where"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/viper"
	"golang.org/x/exp/slices"
)

type record struct {
	Rank  int    `json:"rank"`
	Query string `json:"query"`
}

var cacher = gache.New[map[string]*record](
	&gache.Options{
		Path:       where.Queries(),
		FileSystem: &filesystem.GacheFs{},
	},
)

// suggestions memoizes lookups per input until the next Remember.
var (
	mu          sync.Mutex
	suggestions = make(map[string][]string)
)

// Remember records a search, raising its rank by weight if it was seen before.
// Blank searches are ignored.
func Remember(q string, weight int) error {
	q = sanitize(q)
	if q == "" {
		return nil
	}

	mu.Lock()
	defer mu.Unlock()

	saved, expired, err := cacher.Get()
	if expired || err != nil || saved == nil {
		saved = make(map[string]*record)
	}

	if r, ok := saved[q]; ok {
		r.Rank += weight
	} else {
		saved[q] = &record{Rank: weight, Query: q}
	}

	clear(suggestions)
	return cacher.Set(saved)
}

// Suggest returns the highest ranked previous search matching q.
func Suggest(q string) mo.Option[string] {
	found := SuggestMany(q)
	if len(found) == 0 {
		return mo.None[string]()
	}
	return mo.Some(found[0])
}

// SuggestMany returns previous searches fuzzily matching q, highest rank first.
func SuggestMany(q string) []string {
	if !viper.GetBool(key.SearchShowQuerySuggestions) {
		return nil
	}

	q = sanitize(q)

	mu.Lock()
	defer mu.Unlock()

	if found, ok := suggestions[q]; ok {
		return found
	}

	saved, expired, err := cacher.Get()
	if err != nil || expired || saved == nil {
		return nil
	}

	records := lo.Filter(lo.Values(saved), func(r *record, _ int) bool {
		return fuzzy.Match(q, r.Query)
	})
	slices.SortFunc(records, func(a, b *record) int {
		if a.Rank != b.Rank {
			return b.Rank - a.Rank
		}
		return strings.Compare(a.Query, b.Query)
	})

	found := lo.Map(records, func(r *record, _ int) string {
		return r.Query
	})
	suggestions[q] = found
	return found
}

func sanitize(q string) string {
	return strings.TrimSpace(strings.ToLower(q))
}
