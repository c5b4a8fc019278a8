// Package localstore persists small client-side values such as the cached
// auth token or the cached story list. It plays the role browser local
// storage plays for the web client: values survive restarts and are
// removed on logout.
//
// Two implementations are provided: MemoryStorage for tests and
// short-lived processes, and RedisStorage backed by go-redis.
package localstore
