// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI has four views:
//  1. [PlaylistView] : Browse the user's Spotify playlists
//  2. [CatalogView] : Select tracks of one playlist, sort them and add them to the queue
//  3. [QueueView] : Reorder, remove and inspect queued tracks, then export them
//  4. [DirPromptView] : Choose the export folder
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Exports run the [tasks.Pipeline] on a goroutine. Its progress channel is drained one update per command, so the
// queue view re-renders as each track changes state.
//
// Log output must go to a file (see shared.NewFileLogger) while the TUI is running.
package ui
