// Package repositorycache provides cached repository decorators for go-repository-bun.
//
// # Overview
//
// CachedRepository[T] wraps a repository.Repository[T] and routes its read
// methods through a modelcache.Cache. The repository is registered as a cache
// collaborator named after T in snake case (User becomes "user"), so keys
// have the shape:
//
//	user:GetByID:---:{digest}:{tags}
//
// # Basic Usage
//
//	c := modelcache.New(store, locker)
//	cached := repositorycache.New[User](base, c, repositorycache.WithExpiration(cache.ExpireIn(time.Minute)))
//
//	user, err := cached.GetByID(ctx, "user-123")
//	users, total, err := cached.List(repositorycache.WithCacheTags(ctx, "tenant-a"), byActive)
//
// # Cached vs Pass-through Operations
//
// Cached: Get, GetByID, GetByIdentifier, List and Count. List caches records
// and total together.
//
// Passed through: every *Tx read, Raw and RawTx, and Handlers. Reads inside a
// transaction never see or populate the cache.
//
// Writes (Create, Update, Upsert, Delete, ForceDelete, GetOrCreate and their
// Many/Tx variants) run against the base repository and, when they succeed,
// apply the invalidation policy. PrefixInvalidation is the default and removes
// every cached read of this repository; CoarseFlush and TTLOnly are available
// through WithInvalidation.
//
// # Keys and Criteria
//
// Arguments are hashed by the cache key hasher. Criteria functions contribute
// their address, which is stable only within one process; reuse criteria
// values rather than building new closures per call when hits matter.
// WithCacheTags adds a tag segment so tenant specific reads do not share entries.
//
// # Error Handling
//
// Errors from the base repository are returned unchanged and are never cached.
// Store failures degrade to uncached reads. Invalidation failures are logged
// and do not fail the write.
package repositorycache
