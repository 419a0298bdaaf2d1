// Package models defines the entities shared across pulse.
//
// [Track] is the unit of work. It enters the catalog from a playlist source, is copied
// into the queue, and moves through the [Status] lifecycle:
//
//	idle → searching_video → video_found → downloading → downloaded
//	                 ↘              ↘              ↘
//	                               error
//
// [Playlist] and [Video] are normalized adapter results. [ExportRun] records the outcome
// of one export pass.
package models
