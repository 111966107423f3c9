package whisper

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Kind classifies a file by the metadata family it may carry.
type Kind string

const (
	KindAudio Kind = "audio"
	KindImage Kind = "image"
	KindOther Kind = "other"
)

// AudioExtensions lists the audio formats eligible for tag extraction.
var AudioExtensions = []string{
	".mp3",
	".wav",
	".flac",
	".opus",
	".aac",
	".ogg",
	".m4a",
	".wma",
	".alac",
	".aiff",
	".dsd",
	".amr",
	".mp2",
	".mid",
	".caf",
}

// ImageExtensions lists the image formats eligible for EXIF extraction.
var ImageExtensions = []string{
	".jpg",
	".jpeg",
	".png",
	".gif",
	".bmp",
	".tiff",
	".tif",
	".webp",
	".ico",
	".svg",
	".heif",
	".heic",
	".jp2",
	".jxl",
	".psd",
	".xcf",
	".dds",
	".raw",
	".cr2",
	".nef",
	".arw",
	".dng",
	".orf",
	".rw2",
}

var (
	audioExtSet = makeExtensionSet(AudioExtensions)
	imageExtSet = makeExtensionSet(ImageExtensions)
)

// KindForPath classifies a path by its extension against the fixed format lists.
func KindForPath(path string) Kind {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := audioExtSet[ext]; ok {
		return KindAudio
	}
	if _, ok := imageExtSet[ext]; ok {
		return KindImage
	}
	return KindOther
}

func makeExtensionSet(exts []string) map[string]struct{} {
	set := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = struct{}{}
	}
	return set
}

// sniffLimit bounds how much of a file is read for content-type detection.
const sniffLimit = 3072

// DetectMIME sniffs the content type of a file through the provided filesystem.
// Returns an empty string when the file cannot be read.
func DetectMIME(fsys FileSystem, path string) string {
	f, err := fsys.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	buf := make([]byte, sniffLimit)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return ""
	}
	return mimetype.Detect(buf[:n]).String()
}
