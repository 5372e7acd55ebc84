// Package lookup implements the three in-memory indexes: byKey (key -> slot
// metadata, presence = key is live),
// byDigest (digest hex -> current decoded value), and the free-slot list
// left behind by deletions. byKey and byDigest are backed by
// github.com/puzpuzpuz/xsync's MapOf, a concurrent map that already
// stripes its own internal locking, so the two tables sit directly on top
// of it rather than behind a further layer of manual sharding.
package lookup
