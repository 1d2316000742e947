// Package fuzzy turns a wall-clock reading into a spoken-style phrase such as
// "twenty past four" and tells the caller when that phrase will next change.
//
// A Policy maps a TimeSample to a Phrase of three token slots. Four policies
// exist (Warped, Fast, Precise, Slow); they differ only in how the minutes of
// an hour are partitioned into buckets and at which minute the spoken hour
// rolls forward. Policies are immutable tables and safe for concurrent use.
//
// Engine carries the per-display PolicyState used for change detection. It is
// not safe for concurrent use; a host drives it from one event sequence.
package fuzzy
