package cli

import (
	"context"
	"log/slog"
	"time"

	"github.com/llehouerou/scrobblewatch/internal/config"
	"github.com/llehouerou/scrobblewatch/internal/errmsg"
	"github.com/llehouerou/scrobblewatch/internal/host/bridge"
	"github.com/llehouerou/scrobblewatch/internal/host/mpris"
	"github.com/llehouerou/scrobblewatch/internal/observer"
)

const bridgeShutdownTimeout = 2 * time.Second

// source is an opened host surface.
type source struct {
	provider observer.Provider
	name     string
	close    func()
}

// openSource connects to the configured host surface.
func openSource(sc config.SourceConfig, log *slog.Logger) (*source, error) {
	switch sc.Kind {
	case config.SourceBridge:
		srv := bridge.New(sc.StaleAfter, log.With("component", "bridge"))
		if err := srv.Start(sc.BridgeAddr); err != nil {
			return nil, errmsg.Error(errmsg.OpBridgeListen, err)
		}
		return &source{
			provider: srv,
			name:     "bridge " + srv.Addr(),
			close: func() {
				ctx, cancel := context.WithTimeout(context.Background(), bridgeShutdownTimeout)
				defer cancel()
				if err := srv.Shutdown(ctx); err != nil {
					log.Warn("bridge shutdown", "err", err)
				}
			},
		}, nil
	default:
		p, err := mpris.New(sc.MprisPlayer, log.With("component", "mpris"))
		if err != nil {
			return nil, errmsg.Error(errmsg.OpSourceConnect, err)
		}
		name := "mpris"
		if sc.MprisPlayer != "" {
			name += " " + sc.MprisPlayer
		}
		return &source{
			provider: p,
			name:     name,
			close: func() {
				_ = p.Close()
			},
		}, nil
	}
}
