// Package queue holds the user's export worklist.
//
// A [Store] is the single state container for queued tracks and the export directory.
// The shells read snapshots through [Store.Tracks] and the export pipeline writes status
// transitions through [Store.Update]. Both records are persisted after every mutation.
package queue
