package services

import (
	"fmt"

	"github.com/bogem/id3v2/v2"
	"github.com/desertthunder/pulse/internal/models"
	"github.com/desertthunder/pulse/internal/shared"
)

// ID3Tagger writes ID3v2.4 title, artist, album and year frames.
type ID3Tagger struct{}

func NewID3Tagger() *ID3Tagger {
	return &ID3Tagger{}
}

func (ID3Tagger) Tag(path string, meta models.TrackMetadata) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("%w: opening %s for tagging: %v", shared.ErrIO, path, err)
	}
	defer tag.Close()

	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	tag.SetTitle(meta.Title)
	tag.SetArtist(meta.Artist)
	tag.SetAlbum(meta.Album)
	if meta.Year != "" && meta.Year != "Unknown" {
		tag.SetYear(meta.Year)
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("%w: writing tags: %v", shared.ErrIO, err)
	}
	return nil
}
