// Package jsonl provides the line-delimited JSON record store.
//
// Every stage output is an append-only file with one JSON object per line.
// Appends are fsynced before returning, so a killed process loses at most
// the line being written. That torn line is ignored by readers and truncated
// before the next append, which makes every stage safe to kill and restart.
package jsonl
