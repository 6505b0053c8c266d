// Package cache provides short-lived read caching for table queries.
//
// Entries hold raw response bodies keyed deterministically by request path
// and query, so two identical list or get calls within the TTL are served
// from memory instead of consuming an attempt against the remote instance.
// Writes are not cached; staleness is bounded only by the TTL.
package cache
