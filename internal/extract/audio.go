package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/dhowden/tag"
)

// AudioExtractor reads embedded audio tags (ID3, MP4, Vorbis, FLAC).
type AudioExtractor struct{}

func NewAudioExtractor() *AudioExtractor {
	return &AudioExtractor{}
}

func (e *AudioExtractor) Kind() Kind {
	return KindAudio
}

// Extract returns audio.* tag keys. Untagged or unrecognized files are
// reported as unavailable.
func (e *AudioExtractor) Extract(ctx context.Context, path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		if errors.Is(err, tag.ErrNoTagsFound) {
			return nil, fmt.Errorf("%w: no tags found", ErrUnavailable)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	values := map[string]string{
		"audio.format": string(meta.Format()),
	}

	setIfPresent := func(key, value string) {
		if value != "" {
			values[key] = value
		}
	}
	setIfPresent("audio.title", meta.Title())
	setIfPresent("audio.artist", meta.Artist())
	setIfPresent("audio.album", meta.Album())
	setIfPresent("audio.album_artist", meta.AlbumArtist())
	setIfPresent("audio.genre", meta.Genre())
	setIfPresent("audio.composer", meta.Composer())

	if year := meta.Year(); year != 0 {
		values["audio.year"] = strconv.Itoa(year)
	}
	if track, total := meta.Track(); track != 0 {
		values["audio.track"] = strconv.Itoa(track)
		if total != 0 {
			values["audio.track_total"] = strconv.Itoa(total)
		}
	}

	return values, nil
}
