package repositorycache

import (
	"context"
	"sort"
	"strings"
)

type cacheTagsContextKey struct{}

// WithCacheTags attaches tags to the context. Cached reads made with the
// context use the sorted tags as the key's tag segment, so tagged and untagged
// reads of the same call are cached separately (e.g. per tenant).
func WithCacheTags(ctx context.Context, tags ...string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(tags) == 0 {
		return ctx
	}

	existing := cacheTagsFromContext(ctx)
	combined := dedupeStrings(append(existing, tags...))
	if len(combined) == 0 {
		return ctx
	}

	return context.WithValue(ctx, cacheTagsContextKey{}, combined)
}

func cacheTagsFromContext(ctx context.Context) []string {
	if ctx == nil {
		return nil
	}
	if tags, ok := ctx.Value(cacheTagsContextKey{}).([]string); ok {
		return append([]string(nil), tags...)
	}
	return nil
}

// tagFromContext renders the context's tags as a key segment.
// Colons are replaced so the tag cannot add key segments.
func tagFromContext(ctx context.Context) string {
	tags := cacheTagsFromContext(ctx)
	if len(tags) == 0 {
		return ""
	}
	sort.Strings(tags)
	return strings.ReplaceAll(strings.Join(tags, ","), ":", "_")
}

// dedupeStrings drops empty and repeated values, keeping first occurrences in order.
func dedupeStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := values[:0]
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
