// Package ratelimit bounds how often the importer may call the catalog
// service.
//
// Window is a sliding-window limiter: at most N requests may start within any
// trailing window of fixed length. Acquire blocks until a slot is free rather
// than failing, and only returns an error when the caller's context ends. A
// single Window is meant to be shared by every job in the process because the
// catalog quota belongs to the whole application. RedisWindow applies the same
// rule across processes through a Redis sorted set, and Unlimited is the
// zero-wait stand-in used by tests.
package ratelimit
