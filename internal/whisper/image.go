package whisper

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	exif "github.com/dsoprea/go-exif/v3"
	jpegstructure "github.com/dsoprea/go-jpeg-image-structure/v2"
)

// readImageMetadata extracts the EXIF tags of an image file as a flat
// tag-name/value map. An image without EXIF data yields nil metadata.
func readImageMetadata(path string) (Metadata, error) {
	raw, err := exif.SearchFileAndExtractExif(path)
	if err != nil {
		if errors.Is(err, exif.ErrNoExif) {
			return nil, nil
		}
		return nil, fmt.Errorf("extract exif: %w", err)
	}

	entries, _, err := exif.GetFlatExifData(raw, nil)
	if err != nil {
		return nil, fmt.Errorf("decode exif: %w", err)
	}

	md := make(Metadata, len(entries))
	for _, entry := range entries {
		if entry.TagName == "" {
			continue
		}
		md[entry.TagName] = entry.FormattedFirst
	}
	return md, nil
}

// writeImageMetadata rewrites EXIF tags in place. Only JPEG containers are
// supported for write-back; tags the EXIF dictionary does not know are skipped.
func writeImageMetadata(path string, md Metadata) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".jpg" && ext != ".jpeg" {
		return fmt.Errorf("%w: %s", ErrUnsupportedWrite, path)
	}

	jmp := jpegstructure.NewJpegMediaParser()
	mc, err := jmp.ParseFile(path)
	if err != nil {
		return fmt.Errorf("parse jpeg: %w", err)
	}
	sl := mc.(*jpegstructure.SegmentList)

	rootIb, err := sl.ConstructExifBuilder()
	if err != nil {
		return fmt.Errorf("construct exif builder: %w", err)
	}

	ifdIb, err := exif.GetOrCreateIbFromRootIb(rootIb, "IFD0")
	if err != nil {
		return fmt.Errorf("resolve IFD0: %w", err)
	}

	for _, key := range md.Keys() {
		// Unknown or non-root tags cannot be encoded here; leave them be.
		if err := ifdIb.SetStandardWithName(key, md[key]); err != nil {
			continue
		}
	}

	if err := sl.SetExif(rootIb); err != nil {
		return fmt.Errorf("set exif segment: %w", err)
	}

	buf := new(bytes.Buffer)
	if err := sl.Write(buf); err != nil {
		return fmt.Errorf("encode jpeg: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write jpeg: %w", err)
	}
	return nil
}
