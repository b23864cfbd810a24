// Package modelcache caches the results of collaborator retrieval methods.
//
// A Collaborator exposes a stable name, an Invoke(method, args) capability and
// a FromJSON decoder. Table builds one from a method registration table:
//
//	files := modelcache.NewTable("file", modelcache.DecodeInto[File]()).
//		Register("getBySha256", func(ctx context.Context, args ...any) (any, error) {
//			return repo.GetBySha256(ctx, args[0].([]byte))
//		})
//
// A Cache combines a store, a locker and an invalidation policy. Calls are
// configured with a Builder and frozen into an Operation:
//
//	c := modelcache.New(store, locker, modelcache.WithInvalidation(modelcache.PrefixInvalidation{}))
//	op, err := c.GetOne(files, "getBySha256", "", nil, cache.ExpireIn(time.Hour)).WithLock().Build()
//	file, err := modelcache.InvokeAs[File](ctx, op, digest)
//
// # Protocol
//
// Invoke computes the key, reads the store and returns a decoded hit without
// calling the collaborator. On a miss it calls the collaborator, applies the
// transform and, when the result is truthy, encodes and writes it with the
// configured TTL. WithLock runs the miss path under the locker so concurrent
// callers share one population; the locked path re-reads the store first.
//
// Store errors never reach the caller: reads degrade to misses and failed
// writes leave the result uncached. Corrupt entries and encoding failures are
// returned as errors.
//
// # Invalidation
//
// TTLOnly is the default and leaves entries to expire. CoarseFlush clears the
// whole store after every mutation. PrefixInvalidation removes the mutated
// collaborator's keys. Writer applies the policy after successful mutations.
package modelcache
