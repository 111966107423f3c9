package whisper

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Standard tag keys shared by the audio backends. EXIF metadata uses the tag
// names reported by the decoder instead.
const (
	TagTitle  = "TITLE"
	TagArtist = "ARTIST"
	TagAlbum  = "ALBUM"
	TagDate   = "DATE"
)

// ErrUnsupportedWrite indicates the file format carries metadata that can be
// read but not written back.
var ErrUnsupportedWrite = errors.New("metadata write not supported")

// Metadata holds the extracted tag fields of a file keyed by tag name.
type Metadata map[string]string

// Clone returns a copy of the metadata map.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Keys returns the tag names in sorted order.
func (m Metadata) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Format renders the metadata as "key: value" lines for display.
func (m Metadata) Format() string {
	var b strings.Builder
	for i, key := range m.Keys() {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s: %s", key, m[key])
	}
	return b.String()
}

// ReadMetadata extracts format-specific metadata for the given path, dispatching
// on the file's kind. Files outside the known format lists yield nil metadata.
func ReadMetadata(path string) (Metadata, error) {
	switch KindForPath(path) {
	case KindAudio:
		return readAudioMetadata(path)
	case KindImage:
		return readImageMetadata(path)
	default:
		return nil, nil
	}
}

// writeMetadata persists metadata back into the file, dispatching on kind.
func writeMetadata(path string, md Metadata) error {
	switch KindForPath(path) {
	case KindAudio:
		return writeAudioMetadata(path, md)
	case KindImage:
		return writeImageMetadata(path, md)
	default:
		return nil
	}
}

// encodeMetadata serializes metadata to canonical JSON and returns the
// serialized form together with its digest, used for change detection.
func encodeMetadata(m Metadata) (string, string, error) {
	if m == nil {
		m = Metadata{}
	}
	encoded, err := json.Marshal(m)
	if err != nil {
		return "", "", fmt.Errorf("encode metadata: %w", err)
	}
	sum := md5.Sum(encoded)
	return string(encoded), hex.EncodeToString(sum[:]), nil
}

// decodeMetadata restores metadata from its serialized JSON form.
func decodeMetadata(encoded string) (Metadata, error) {
	if encoded == "" {
		return Metadata{}, nil
	}
	var m Metadata
	if err := json.Unmarshal([]byte(encoded), &m); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return m, nil
}
