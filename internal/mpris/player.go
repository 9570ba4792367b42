package mpris

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/quarckster/go-mpris-server/pkg/types"

	"github.com/llehouerou/cadence/internal/playback"
	"github.com/llehouerou/cadence/internal/playlist"
)

const identity = "Cadence"

// rootAdapter implements OrgMprisMediaPlayer2Adapter.
type rootAdapter struct{}

func (r *rootAdapter) Raise() error { return nil }

func (r *rootAdapter) Quit() error { return nil }

func (r *rootAdapter) CanQuit() (bool, error) { return false, nil }

func (r *rootAdapter) CanRaise() (bool, error) { return false, nil }

func (r *rootAdapter) HasTrackList() (bool, error) { return false, nil }

func (r *rootAdapter) Identity() (string, error) { return identity, nil }

//nolint:revive // Method name required by interface.
func (r *rootAdapter) SupportedUriSchemes() ([]string, error) {
	return []string{"file", "http", "https"}, nil
}

func (r *rootAdapter) SupportedMimeTypes() ([]string, error) {
	return []string{"audio/mpeg", "audio/flac", "audio/wav", "audio/ogg"}, nil
}

// playerAdapter implements OrgMprisMediaPlayer2PlayerAdapter plus the loop
// status and shuffle extensions. Play requests are started under ctx and
// not awaited; D-Bus calls return as soon as the request is issued.
type playerAdapter struct {
	ctx     context.Context
	service playback.Service
}

func (p *playerAdapter) Next() error {
	p.service.NextSong(p.ctx)
	return nil
}

func (p *playerAdapter) Previous() error {
	p.service.PreviousSong(p.ctx)
	return nil
}

func (p *playerAdapter) Pause() error {
	p.service.Pause()
	return nil
}

func (p *playerAdapter) PlayPause() error {
	p.service.TogglePlay(p.ctx)
	return nil
}

func (p *playerAdapter) Stop() error {
	p.service.Stop()
	return nil
}

func (p *playerAdapter) Play() error {
	switch p.service.Snapshot().Status {
	case playback.StatusPlaying, playback.StatusLoading:
	case playback.StatusPaused:
		p.service.Resume(p.ctx)
	default:
		p.service.Play(p.ctx)
	}
	return nil
}

// Seek moves relative to the current position. Seeking past the end skips
// to the next song.
func (p *playerAdapter) Seek(offset types.Microseconds) error {
	snap := p.service.Snapshot()
	if snap.Duration <= 0 {
		return nil
	}
	target := snap.Position + time.Duration(offset)*time.Microsecond
	if target > snap.Duration {
		p.service.NextSong(p.ctx)
		return nil
	}
	p.service.SetCurrentTime(max(target, 0))
	return nil
}

// SetPosition is ignored unless trackID names the current song.
func (p *playerAdapter) SetPosition(trackID string, position types.Microseconds) error {
	snap := p.service.Snapshot()
	if snap.Current == nil || trackID != formatTrackID(snap.Current.ID) {
		return nil
	}
	pos := time.Duration(position) * time.Microsecond
	if pos < 0 || pos > snap.Duration {
		return nil
	}
	p.service.SetCurrentTime(pos)
	return nil
}

//nolint:revive // Method name required by interface.
func (p *playerAdapter) OpenUri(_ string) error {
	return nil
}

func (p *playerAdapter) PlaybackStatus() (types.PlaybackStatus, error) {
	switch p.service.Snapshot().Status {
	case playback.StatusPlaying, playback.StatusLoading:
		return types.PlaybackStatusPlaying, nil
	case playback.StatusPaused:
		return types.PlaybackStatusPaused, nil
	default:
		return types.PlaybackStatusStopped, nil
	}
}

func (p *playerAdapter) Rate() (float64, error) { return 1.0, nil }

func (p *playerAdapter) SetRate(_ float64) error { return nil }

func (p *playerAdapter) Metadata() (types.Metadata, error) {
	snap := p.service.Snapshot()
	song := snap.Current
	if song == nil {
		return types.Metadata{}, nil
	}

	length := song.Duration
	if snap.Duration > 0 {
		length = snap.Duration
	}
	meta := types.Metadata{
		TrackId: dbus.ObjectPath(formatTrackID(song.ID)),
		Length:  types.Microseconds(length.Microseconds()),
		Title:   song.Title,
		Album:   song.Album,
	}
	if song.Artist != "" {
		meta.Artist = []string{song.Artist}
	}
	if art := FindAlbumArt(song.URL); art != "" {
		meta.ArtUrl = "file://" + art
	}
	return meta, nil
}

func (p *playerAdapter) Volume() (float64, error) {
	snap := p.service.Snapshot()
	if snap.Muted {
		return 0, nil
	}
	return snap.Volume, nil
}

func (p *playerAdapter) SetVolume(level float64) error {
	p.service.SetVolume(level)
	return nil
}

func (p *playerAdapter) Position() (int64, error) {
	return p.service.Snapshot().Position.Microseconds(), nil
}

func (p *playerAdapter) MinimumRate() (float64, error) { return 1.0, nil }

func (p *playerAdapter) MaximumRate() (float64, error) { return 1.0, nil }

// Navigation wraps around, so any non-empty playlist can go either way.
func (p *playerAdapter) CanGoNext() (bool, error) {
	return len(p.service.Snapshot().Playlist) > 0, nil
}

func (p *playerAdapter) CanGoPrevious() (bool, error) {
	return len(p.service.Snapshot().Playlist) > 0, nil
}

func (p *playerAdapter) CanPlay() (bool, error) {
	snap := p.service.Snapshot()
	return snap.Current != nil || len(snap.Playlist) > 0, nil
}

func (p *playerAdapter) CanPause() (bool, error) { return true, nil }

func (p *playerAdapter) CanSeek() (bool, error) {
	return p.service.Snapshot().Duration > 0, nil
}

func (p *playerAdapter) CanControl() (bool, error) { return true, nil }

// LoopStatus implements OrgMprisMediaPlayer2PlayerAdapterLoopStatus.
// Cadence always wraps, so list and random report a playlist loop.
func (p *playerAdapter) LoopStatus() (types.LoopStatus, error) {
	if p.service.Snapshot().Mode == playlist.ModeSingle {
		return types.LoopStatusTrack, nil
	}
	return types.LoopStatusPlaylist, nil
}

// SetLoopStatus implements OrgMprisMediaPlayer2PlayerAdapterLoopStatus.
func (p *playerAdapter) SetLoopStatus(status types.LoopStatus) error {
	mode := p.service.Snapshot().Mode
	switch status {
	case types.LoopStatusTrack:
		p.service.SetPlayMode(playlist.ModeSingle)
	case types.LoopStatusNone, types.LoopStatusPlaylist:
		if mode == playlist.ModeSingle {
			p.service.SetPlayMode(playlist.ModeList)
		}
	}
	return nil
}

// Shuffle implements OrgMprisMediaPlayer2PlayerAdapterShuffle.
func (p *playerAdapter) Shuffle() (bool, error) {
	return p.service.Snapshot().Mode == playlist.ModeRandom, nil
}

// SetShuffle implements OrgMprisMediaPlayer2PlayerAdapterShuffle.
func (p *playerAdapter) SetShuffle(shuffle bool) error {
	mode := p.service.Snapshot().Mode
	switch {
	case shuffle && mode != playlist.ModeRandom:
		p.service.SetPlayMode(playlist.ModeRandom)
	case !shuffle && mode == playlist.ModeRandom:
		p.service.SetPlayMode(playlist.ModeList)
	}
	return nil
}

func formatTrackID(songID string) string {
	h := fnv.New64a()
	h.Write([]byte(songID))
	return fmt.Sprintf("/org/mpris/MediaPlayer2/Track/%x", h.Sum64())
}
