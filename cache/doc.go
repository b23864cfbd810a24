// Package cache holds the building blocks of the read-through model cache.
//
// # Overview
//
// This package exports the contracts the cache is composed from, and the
// key, codec and expiration logic shared by every cached call:
//
//   - Store: a TTL-capable key-value store holding compressed entries
//   - Locker: single-flight execution per cache key
//   - KeyHasher: reduces an argument list to a SHA-256 digest
//   - Codec: scalar, fragmented array and raw array serialization
//   - Expiration: relative or absolute entry lifetimes
//
// The modelcache package composes these into cached collaborator calls.
//
// # Keys
//
// A cache key has five colon separated segments:
//
//	{collaborator}:{method}:{flags}:{digest}:{tag}
//
// flags is Options.Flags(), so an entry written in array mode is never read
// back in scalar mode. The digest hashes the canonical form of each argument:
//
//   - time.Time: Unix milliseconds
//   - encoding.TextMarshaler: its text (uuid.UUID, net.IP)
//   - maps and structs: the JSON encoding of their values in key order
//   - slices and arrays: their JSON encoding
//   - functions and channels: their address, stable within one process only
//   - everything else: its fmt %v form
//
// Map and struct keys are not hashed. {"a":1,"b":2} and {"x":1,"y":2} share a
// digest; give such calls distinct tags when that matters.
//
// # Codec
//
// Scalar mode stores one JSON document. Array mode writes sequences in
// fragments of ChunkSize elements and yields to the scheduler between them:
//
//	codec := cache.NewCodec()
//	data, err := codec.Encode(files, cache.Options{AsArray: true})
//	elements, err := codec.Decode(data, cache.Options{AsArray: true}) // []json.RawMessage
//
// Raw array mode stores a single JSON array text that can be written to a
// response body as is.
//
// # Backends
//
// NewBackend builds a Store and Locker from a Config: the sturdyc memory store
// with a process-local locker when no RedisURL is set, otherwise the Redis
// store with either a local or a cluster-wide Redis lock. LoadConfig reads the
// same Config from the environment.
//
// # Error Handling
//
// Store implementations report failures; callers in modelcache log and
// swallow them. ErrCorruptEntry and ErrNotSequence are always returned to
// the caller. Lock failures (ErrLockTimeout, ErrLockUnavailable) are shared
// by every waiter for the key.
package cache
