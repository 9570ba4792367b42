package mpris

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/llehouerou/cadence/internal/player"
)

// coverNames lists album art file names in priority order.
var coverNames = []string{
	"cover.jpg", "cover.png", "cover.jpeg",
	"folder.jpg", "folder.png",
	"front.jpg", "front.png",
	"album.jpg", "album.png",
}

// FindAlbumArt looks for album art next to a local track. It returns the
// art path, or "" for remote sources and directories without art.
func FindAlbumArt(source string) string {
	if strings.Contains(source, "://") && !strings.HasPrefix(source, "file://") {
		return ""
	}
	dir := filepath.Dir(player.LocalPath(source))
	for _, name := range coverNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}
