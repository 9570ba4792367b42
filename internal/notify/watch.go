package notify

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/llehouerou/cadence/internal/mpris"
	"github.com/llehouerou/cadence/internal/playback"
	"github.com/llehouerou/cadence/internal/playlist"
)

const trackTimeout = 5000

// Watch shows a notification for every new song and playback error until
// ctx is done or the subscription closes. Each notification replaces the
// previous one.
func Watch(ctx context.Context, sub *playback.Subscription, n Notifier, log logrus.FieldLogger) {
	var lastID uint32
	send := func(notif Notification) {
		notif.ReplacesID = lastID
		id, err := n.Notify(notif)
		if err != nil {
			log.WithError(err).Debug("notification failed")
			return
		}
		if id != 0 {
			lastID = id
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Done:
			return
		case tc := <-sub.TrackChanged:
			if tc.Current != nil {
				send(trackNotification(*tc.Current))
			}
		case ev := <-sub.Error:
			if ev.Err != nil {
				send(Notification{
					Title:   "Playback error",
					Body:    ev.Err.Error(),
					Timeout: -1,
					Urgency: UrgencyCritical,
				})
			}
		}
	}
}

func trackNotification(song playlist.Song) Notification {
	var body []string
	if song.Artist != "" {
		body = append(body, song.Artist)
	}
	if song.Album != "" {
		body = append(body, song.Album)
	}
	icon := "audio-x-generic"
	if art := mpris.FindAlbumArt(song.URL); art != "" {
		icon = art
	}
	return Notification{
		Title:   song.Title,
		Body:    strings.Join(body, "\n"),
		Icon:    icon,
		Timeout: trackTimeout,
		Urgency: UrgencyLow,
	}
}
