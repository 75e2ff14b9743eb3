//go:build !linux

package mpris

import (
	"log/slog"

	"github.com/llehouerou/scrobblewatch/internal/observer"
)

// Provider is unavailable on non-Linux platforms.
type Provider struct{}

// New returns ErrUnsupported on non-Linux platforms.
func New(_ string, _ *slog.Logger) (*Provider, error) {
	return nil, ErrUnsupported
}

func (p *Provider) Close() error { return nil }

func (p *Provider) Observe() (*observer.Observation, error) { return nil, ErrUnsupported }
