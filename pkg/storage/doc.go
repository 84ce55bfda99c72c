// Package storage defines the object store behind the sharing gateway.
//
// Shared chats are opaque blobs addressed by "{owner}/{id}" keys. The store
// exposes put/get/delete plus a prefix listing; the gateway derives quota
// state from the listing on every write instead of keeping counters, so the
// store is the only durable state in the system.
//
// Two backends are provided: S3Store for production (any S3-compatible
// endpoint, including MinIO) and MemoryStore for local development and tests.
package storage
