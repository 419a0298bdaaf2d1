// Package tasks runs the export pipeline over the queue with real-time progress reporting.
//
// # Export Pipeline
//
// [Pipeline.Run] walks a snapshot of the queue's id order, one track at a time:
//
//  1. searching_video : query the [services.VideoSearcher] with "title artist", unless a
//     video URL is already cached on the track
//  2. video_found : the top result's URL is stored on the track
//  3. downloading : the [services.Converter] writes a tagged MP3 into the export directory
//  4. downloaded : the output path and file name are stored on the track
//
// Any step may end in error with a message on the track. Downloaded tracks are skipped,
// so running twice converts nothing new. A failure, or a recovered panic, affects only its
// own track.
//
// # Progress Reporting
//
// Runs report through a [ProgressUpdate] channel. Plain progress uses select with default
// and never blocks. Notices (success, failure, complete, precondition) wait briefly for the
// receiver so they are not lost to a full buffer.
//
// # Run History
//
// Finished runs are handed to each [Recorder], such as the SQLite run repository and the
// manifest writer in the formatter package.
package tasks
