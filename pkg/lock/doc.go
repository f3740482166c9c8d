/*
Package lock provides a TTL-bounded coordination lock keyed by resource
name.

Acquisition is try-only and never blocks. Every successful acquire
returns a fresh holder token, and release is holder-checked so a slow
caller whose lock already expired and was re-acquired cannot release
the new holder's lock. Expiry is lazy: an expired entry is reclaimed by
the next acquire attempt on its key, which keeps the lock free of any
background goroutine.

This is in-process coordination for a single daemon, not a distributed
lock.
*/
package lock
