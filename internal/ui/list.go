package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/pulse/internal/models"
)

var (
	_ list.Item = playlistItem{}
	_ list.Item = trackItem{}
	_ list.Item = queueItem{}
)

// playlistItem wraps [models.Playlist] to implement [list.Item].
type playlistItem struct {
	playlist models.Playlist
}

func (i playlistItem) FilterValue() string { return i.playlist.Name }
func (i playlistItem) Title() string       { return i.playlist.Name }
func (i playlistItem) Description() string {
	desc := fmt.Sprintf("%d tracks", i.playlist.TrackCount)
	if i.playlist.Description != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.playlist.Description)
	}
	return desc
}

// trackItem wraps a catalog [models.Track] to implement [list.Item].
type trackItem struct {
	track models.Track
}

func (i trackItem) FilterValue() string { return i.track.Title + " " + i.track.Artist }
func (i trackItem) Title() string {
	mark := "[ ]"
	if i.track.Selected {
		mark = "[x]"
	}
	return fmt.Sprintf("%s %s", mark, i.track.Title)
}
func (i trackItem) Description() string {
	parts := []string{i.track.Artist}
	if i.track.Album != "" {
		parts = append(parts, i.track.Album)
	}
	if i.track.ReleaseYear != "" {
		parts = append(parts, i.track.ReleaseYear)
	}
	return "    " + strings.Join(parts, " • ")
}

// queueItem wraps a queued [models.Track] with its position.
type queueItem struct {
	track    models.Track
	position int
}

func (i queueItem) FilterValue() string { return i.track.Title + " " + i.track.Artist }
func (i queueItem) Title() string {
	return fmt.Sprintf("%d. %s - %s", i.position, i.track.Artist, i.track.Title)
}
func (i queueItem) Description() string {
	desc := styles.status(i.track.Status)
	switch {
	case i.track.Status == models.StatusError:
		desc += styles.help.Render("  press i for detail")
	case i.track.OutputFilename != "":
		desc += "  " + i.track.OutputFilename
	}
	return desc
}

func playlistItems(playlists []models.Playlist) []list.Item {
	items := make([]list.Item, len(playlists))
	for i, pl := range playlists {
		items[i] = playlistItem{playlist: pl}
	}
	return items
}

func trackItems(tracks []models.Track) []list.Item {
	items := make([]list.Item, len(tracks))
	for i, t := range tracks {
		items[i] = trackItem{track: t}
	}
	return items
}

func queueItems(tracks []models.Track) []list.Item {
	items := make([]list.Item, len(tracks))
	for i, t := range tracks {
		items[i] = queueItem{track: t, position: i + 1}
	}
	return items
}
