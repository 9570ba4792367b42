//go:build linux

// Package mpris exposes the playback engine as an MPRIS media player on the
// D-Bus session bus.
package mpris

import (
	"context"

	"github.com/quarckster/go-mpris-server/pkg/server"
	"github.com/sirupsen/logrus"

	"github.com/llehouerou/cadence/internal/playback"
)

// Adapter connects a playback.Service to MPRIS over D-Bus.
type Adapter struct {
	server *server.Server
	cancel context.CancelFunc
}

// New creates and starts an MPRIS adapter. Play requests issued over D-Bus
// run under ctx.
func New(ctx context.Context, service playback.Service, log logrus.FieldLogger) (*Adapter, error) {
	ctx, cancel := context.WithCancel(ctx)
	a := &Adapter{
		server: server.NewServer("cadence", &rootAdapter{}, &playerAdapter{ctx: ctx, service: service}),
		cancel: cancel,
	}

	go func() {
		if err := a.server.Listen(); err != nil && log != nil {
			log.WithError(err).Warn("mpris server stopped")
		}
	}()

	return a, nil
}

// Close stops the adapter and releases D-Bus resources.
func (a *Adapter) Close() error {
	a.cancel()
	return a.server.Stop()
}
