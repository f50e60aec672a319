/*
Package storage persists guardian state in an embedded BoltDB database.

Node records (state plus failure and restart counters) and the guardian
active flag are written on every mutation and reloaded at startup, so a
daemon restart does not forget accumulated failure history or hand a
flapping node a fresh restart budget. Records are stored as JSON under a
nodes bucket keyed by node id; the guardian status lives under its own
bucket as a single record.
*/
package storage
