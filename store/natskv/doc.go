// Package natskv implements PresenceStore and RequestFeed on NATS JetStream key-value buckets.
//
// # Layout
//
// Presence records live in one bucket keyed by subject ID. Each value is the
// JSON encoding of types.PresenceRecord:
//
//	medy-presence / pharmacy-42 = {"subjectId":"pharmacy-42","isOnDuty":true,"lastTouchedAt":"..."}
//
// Recipient rows live in a second bucket keyed by subject and recipient, with
// the joined request embedded in the value:
//
//	medy-recipients / pharmacy-42.rcp-7 = {"recipientId":"rcp-7","status":"pending","request":{...}}
//
// # Conditional writes
//
// AssertAlive reads the record and updates it with the entry's revision, so a
// concurrent owner toggle makes the update fail instead of being overwritten.
// Lost races are retried a bounded number of times with a fresh read.
//
// # Change feeds
//
// Both Subscribe methods are backed by KV watches that deliver updates only.
// Presence updates are decoded into partial changes; recipient updates are
// reduced to a bare "something changed" signal, and the tracker refetches.
package natskv
