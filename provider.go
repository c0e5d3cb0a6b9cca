package parkour

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrLevelNotFound is returned when a provider does not know a level.
var ErrLevelNotFound = errors.New("level not found")

// LevelProvider loads levels by id.
// Providers bridge the engine with wherever levels are stored (files, databases, services).
type LevelProvider interface {
	// LoadLevel returns the level with the given id, or an error wrapping
	// ErrLevelNotFound if there is none.
	LoadLevel(ctx context.Context, id uuid.UUID) (*Level, error)
}

// LevelLister is implemented by providers that can enumerate their levels.
type LevelLister interface {
	// Levels returns every level in display order.
	Levels() []*Level
}

// LevelRemover is implemented by providers that levels can be removed from at runtime.
type LevelRemover interface {
	// RemoveLevel removes the level and reports whether it existed.
	RemoveLevel(id uuid.UUID) bool
}

// AssetProvider delivers the audio track of a level to players.
// RequestApply may start asynchronous work; the returned Delivery is resolved from any
// goroutine once the outcome is known.
type AssetProvider interface {
	// Applied reports whether the player already has the track.
	Applied(player uuid.UUID, track string) bool
	// Available reports whether the track can be delivered at all.
	Available(track string) bool
	// RequestApply starts delivering the track. It returns false if delivery could not
	// be started.
	RequestApply(player uuid.UUID, track string) (*Delivery, bool)
}

// TrackPlayer is implemented by asset providers that can play a delivered track to a
// player. The track is played for the duration of each run.
type TrackPlayer interface {
	// PlayTrack starts playing the track to the player.
	PlayTrack(player uuid.UUID, track string)
	// StopTrack stops whatever track is playing to the player.
	StopTrack(player uuid.UUID)
}

// NopAssets treats every track as already applied.
type NopAssets struct{}

func (NopAssets) Applied(uuid.UUID, string) bool { return true }
func (NopAssets) Available(string) bool          { return true }
func (NopAssets) RequestApply(uuid.UUID, string) (*Delivery, bool) {
	d := NewDelivery()
	d.Resolve(true)
	return d, true
}

// ProviderOptions configures how levels are fetched and cached.
type ProviderOptions struct {
	// FetchTimeout is the maximum time to wait for LoadLevel calls.
	// Default: 5 seconds.
	FetchTimeout time.Duration

	// GracePeriod is how long to keep a level cached after the last session playing it
	// was closed. This prevents reloading when players replay the same level.
	// Default: 30 seconds.
	GracePeriod time.Duration
}

// defaultProviderOptions returns sensible defaults.
func defaultProviderOptions() ProviderOptions {
	return ProviderOptions{
		FetchTimeout: 5 * time.Second,
		GracePeriod:  30 * time.Second,
	}
}

// ProviderOption configures a provider.
type ProviderOption func(*ProviderOptions)

// WithFetchTimeout sets the fetch timeout.
func WithFetchTimeout(d time.Duration) ProviderOption {
	return func(o *ProviderOptions) {
		o.FetchTimeout = d
	}
}

// WithGracePeriod sets the cache grace period.
func WithGracePeriod(d time.Duration) ProviderOption {
	return func(o *ProviderOptions) {
		o.GracePeriod = d
	}
}
