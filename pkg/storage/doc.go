/*
Package storage persists cycle history and recovery outcomes.

The store is observability only. Nothing on the decision path reads it
back; it exists so operators can ask what the loop did and why after
the fact. The BoltDB implementation keeps two buckets, cycles keyed by
cycle number and recoveries keyed by finish time, both as JSON values.
*/
package storage
