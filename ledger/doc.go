// Package ledger implements the hash-chained command log of a table.
//
// Every command the rule engine accepts is appended as a Block whose hash
// covers its index, timestamp, kind, actor, decision id, payload and the hash
// of the previous block. Verify walks the chain and reports the first broken
// link, so any edit to a recorded command is detected.
//
// The log holds commands only. Votes and tallies are never recorded here.
package ledger
