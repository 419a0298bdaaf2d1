package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/pulse/internal/models"
	"github.com/desertthunder/pulse/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
	err  error
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgPlaylistsLoaded MsgKind = iota
	MsgTracksLoaded
	MsgQueueChanged
	MsgTracksQueued
	MsgDirSet
	MsgProgress
	MsgExportDone
)

type queuedResult struct {
	added      []string
	duplicates []string
}

// playlistsLoadedMsg is the constructor for [MsgPlaylistsLoaded]
func playlistsLoadedMsg(playlists []models.Playlist, err error) Msg {
	return Msg{kind: MsgPlaylistsLoaded, data: playlists, err: err}
}

// tracksLoadedMsg is the constructor for [MsgTracksLoaded]
func tracksLoadedMsg(tracks []models.Track, err error) Msg {
	return Msg{kind: MsgTracksLoaded, data: tracks, err: err}
}

// queueChangedMsg is the constructor for [MsgQueueChanged]. focus is the id to select afterwards.
func queueChangedMsg(focus string, err error) Msg {
	return Msg{kind: MsgQueueChanged, data: focus, err: err}
}

// tracksQueuedMsg is the constructor for [MsgTracksQueued]
func tracksQueuedMsg(added, duplicates []string, err error) Msg {
	return Msg{kind: MsgTracksQueued, data: queuedResult{added, duplicates}, err: err}
}

// dirSetMsg is the constructor for [MsgDirSet]
func dirSetMsg(dir string, err error) Msg {
	return Msg{kind: MsgDirSet, data: dir, err: err}
}

// progressMsg is the constructor for [MsgProgress]
func progressMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgress, data: update}
}

// exportDoneMsg is the constructor for [MsgExportDone]
func exportDoneMsg(run *models.ExportRun, err error) Msg {
	return Msg{kind: MsgExportDone, data: run, err: err}
}
