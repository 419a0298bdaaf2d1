// Package repositories implements persistence for pulse.
//
// [StateStore] is the durable key/value contract behind the queue. Two records are kept:
// [QueueKey] holds the ordered queue as a JSON array of tracks, and [ExportDirKey] holds
// the export directory as a plain string. [SQLiteStore] is the default backend and
// [RedisStore] is selected with storage.backend = "redis".
//
// [RunRepository] keeps export history in SQLite: one row per run in export_runs and one
// row per processed track in export_run_tracks.
package repositories
