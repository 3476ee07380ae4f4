package organizer

import (
	"os"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// MediaDate returns the best available capture time for the file at path:
// the EXIF DateTimeOriginal (or DateTime) when present, otherwise the file
// modification time. Videos and stripped images fall through to mtime.
func MediaDate(path string) (time.Time, error) {
	if f, err := os.Open(path); err == nil {
		x, decodeErr := exif.Decode(f)
		f.Close()
		if decodeErr == nil {
			if tm, err := x.DateTime(); err == nil {
				return tm, nil
			}
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}
