package publishers

import (
	"context"
	"time"

	"CrossPostAPI/models"
)

// Delivery identifies the post a platform created for us.
type Delivery struct {
	ExternalPostID string `json:"id"`
	URL            string `json:"url"`
}

// PlatformPublisher delivers content to one external platform. Implementations
// must treat every call as slow and fallible and honour ctx.
type PlatformPublisher interface {
	Deliver(ctx context.Context, cred *models.Credential, content string) (*Delivery, error)
}

type Registry struct {
	publishers map[models.Platform]PlatformPublisher
}

func NewRegistry() *Registry {
	return &Registry{publishers: make(map[models.Platform]PlatformPublisher)}
}

func (r *Registry) Register(platform models.Platform, p PlatformPublisher) *Registry {
	r.publishers[platform] = p
	return r
}

func (r *Registry) Get(platform models.Platform) (PlatformPublisher, bool) {
	p, ok := r.publishers[platform]
	return p, ok
}

// NewDemoRegistry wires the always-succeeding demo publisher for every platform.
func NewDemoRegistry(latency time.Duration) *Registry {
	r := NewRegistry()
	for _, p := range models.AllPlatforms {
		r.Register(p, &DemoPublisher{Platform: p, Latency: latency})
	}
	return r
}

// NewRelayRegistry wires one relay client per platform, each with its own
// rate limiter.
func NewRelayRegistry(baseURL string, rps float64, opts ...RelayOption) *Registry {
	r := NewRegistry()
	for _, p := range models.AllPlatforms {
		r.Register(p, NewRelayPublisher(p, baseURL, rps, opts...))
	}
	return r
}
