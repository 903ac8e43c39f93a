package rule

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"sync"

	"github.com/klauspost/readahead"
	"github.com/zeebo/xxh3"
)

// formulaCache memoizes parsed formulas keyed by a content hash of
// their text, since the HTTP and CLI surfaces routinely parse the same
// handful of formulas many times per second.
var formulaCache sync.Map // string -> *cacheEntry

type cacheEntry struct {
	once sync.Once
	expr Expr
	err  error
}

// CacheKey returns the stable identifier [parseCached] uses for
// formula, also used by the bucket package to salt rollout hashing per
// formula so that two different rollouts at the same frequency bucket
// independently.
func CacheKey(formula string) string {
	return strconv.FormatUint(xxh3.HashString(formula), 36)
}

// parseCached parses formula, reusing a previously parsed tree when
// the same text has been seen before. Concurrent first-parses of the
// same formula collapse into a single [Parse] call via the entry's
// sync.Once.
func parseCached(formula string) (Expr, error) {
	key := CacheKey(formula)

	v, _ := formulaCache.LoadOrStore(key, &cacheEntry{})

	entry, ok := v.(*cacheEntry)
	if !ok {
		return nil, ErrParse.With(slog.String("reason", "corrupt cache entry"))
	}

	entry.once.Do(func() {
		entry.expr, entry.err = Parse(formula)
	})

	return entry.expr, entry.err
}

// ParseReader parses a formula read from r, wrapping the read in
// read-ahead buffering so I/O overlaps with whatever the caller did
// just before calling it (e.g. reading the previous formula from the
// same file).
func ParseReader(ctx context.Context, r io.Reader) (Expr, error) {
	ra := readahead.NewReader(r)
	defer ra.Close()

	data, err := io.ReadAll(ra)
	if err != nil {
		return nil, ErrParse.Wrap(err).With(slog.String("source", "reader"))
	}

	select {
	case <-ctx.Done():
		return nil, ErrParse.Wrap(ctx.Err())
	default:
	}

	return parseCached(string(data))
}

// ClearCache discards every memoized formula. Primarily useful for
// tests and for long-running processes that want to bound cache
// memory after reloading a rule set.
func ClearCache() {
	formulaCache = sync.Map{}
}
