package whisper

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/simonhull/audiometa"
)

const dateLayout = "2006-01-02 15:04:05"

// readAudioMetadata extracts the standard tag fields from an audio file.
// Missing tags fall back to the file name, "Unknown", and the modification time.
func readAudioMetadata(path string) (Metadata, error) {
	f, err := audiometa.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	md := Metadata{
		TagTitle:  f.Tags.Title,
		TagArtist: f.Tags.Artist,
		TagAlbum:  f.Tags.Album,
		TagDate:   f.Tags.Date,
	}

	if md[TagTitle] == "" {
		md[TagTitle] = filepath.Base(path)
	}
	if md[TagArtist] == "" {
		md[TagArtist] = "Unknown"
	}
	if md[TagAlbum] == "" {
		md[TagAlbum] = "Unknown"
	}
	if md[TagDate] == "" && f.Tags.Year != 0 {
		md[TagDate] = strconv.Itoa(f.Tags.Year)
	}
	if md[TagDate] == "" {
		if info, statErr := os.Stat(path); statErr == nil {
			md[TagDate] = info.ModTime().Format(dateLayout)
		}
	}

	return md, nil
}

// writeAudioMetadata rewrites the embedded tags of an audio file. Standard
// keys map onto the typed tag fields; everything else is written as a raw tag.
func writeAudioMetadata(path string, md Metadata) error {
	f, err := audiometa.Open(path)
	if err != nil {
		var unsupported *audiometa.UnsupportedFormatError
		if errors.As(err, &unsupported) {
			return fmt.Errorf("%w: %s", ErrUnsupportedWrite, path)
		}
		return fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	for _, key := range md.Keys() {
		value := md[key]
		switch key {
		case TagTitle:
			f.Tags.Title = value
		case TagArtist:
			f.Tags.Artist = value
		case TagAlbum:
			f.Tags.Album = value
		case TagDate:
			f.Tags.Date = value
		default:
			f.Tags.Set(key, value)
		}
	}

	if err := f.Save(); err != nil {
		var unsupported *audiometa.UnsupportedWriteError
		if errors.As(err, &unsupported) {
			return fmt.Errorf("%w: %s", ErrUnsupportedWrite, path)
		}
		return fmt.Errorf("save audio file: %w", err)
	}
	return nil
}
