package playlist

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/llehouerou/cadence/internal/player"
)

// songNamespace scopes path-derived song IDs.
var songNamespace = uuid.MustParse("6f1c2a7e-3b8d-5e4f-9a10-2c3d4e5f6a7b")

// SongID derives a stable ID from a source URL or path.
func SongID(source string) string {
	return uuid.NewSHA1(songNamespace, []byte(source)).String()
}

// FromPath creates a song from a file path by reading its metadata.
func FromPath(path string) Song {
	info, err := player.ReadTrackInfo(path)
	if err != nil {
		// Fallback to basic info from filename
		return Song{
			ID:    SongID(path),
			URL:   path,
			Title: filepath.Base(path),
		}
	}

	return Song{
		ID:       SongID(path),
		URL:      path,
		Title:    info.Title,
		Artist:   info.Artist,
		Album:    info.Album,
		Duration: info.Duration,
	}
}

// FromURL creates a song for a remote stream. The title is the last path
// segment of the URL.
func FromURL(url string) Song {
	title := url
	if i := strings.LastIndex(strings.TrimRight(url, "/"), "/"); i >= 0 {
		title = strings.TrimRight(url, "/")[i+1:]
	}
	return Song{
		ID:    SongID(url),
		URL:   url,
		Title: title,
	}
}

// CollectFromPaths builds songs from command-line arguments.
// Directories are walked recursively for music files (sorted by path),
// .json files are read as playlists, other files are taken as they are,
// and http(s) URLs become stream entries.
func CollectFromPaths(args []string) ([]Song, error) {
	var songs []Song
	for _, arg := range args {
		if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
			songs = append(songs, FromURL(arg))
			continue
		}
		if strings.EqualFold(filepath.Ext(arg), ".json") {
			found, err := loadJSONFile(arg)
			if err != nil {
				return nil, err
			}
			songs = append(songs, found...)
			continue
		}
		found, err := collectFromPath(arg)
		if err != nil {
			return nil, err
		}
		songs = append(songs, found...)
	}
	return songs, nil
}

func collectFromPath(path string) ([]Song, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		if !player.IsMusicFile(path) {
			return nil, nil
		}
		return []Song{FromPath(path)}, nil
	}

	var paths []string
	err = filepath.WalkDir(path, func(p string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			// Skip directories/files with errors, continue walking
			return nil //nolint:nilerr // intentionally skipping errors
		}
		if d.IsDir() || !player.IsMusicFile(p) {
			return nil
		}
		paths = append(paths, p)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Sort by path for consistent ordering
	sort.Strings(paths)

	songs := make([]Song, len(paths))
	for i, p := range paths {
		songs[i] = FromPath(p)
	}
	return songs, nil
}

// FormatDuration formats a duration as MM:SS.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

func loadJSONFile(path string) ([]Song, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	songs, err := LoadJSON(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return songs, nil
}
