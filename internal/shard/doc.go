// Package shard implements the round-robin shard selector: new keys are
// distributed across a fixed, configured number of MEID shards in rotation.
package shard
