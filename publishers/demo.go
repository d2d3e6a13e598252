package publishers

import (
	"context"
	"fmt"
	"time"

	"CrossPostAPI/models"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// DemoPublisher pretends to post. It waits Latency and then always succeeds
// with a synthetic URL.
type DemoPublisher struct {
	Platform models.Platform
	Latency  time.Duration
}

func (d *DemoPublisher) Deliver(ctx context.Context, cred *models.Credential, content string) (*Delivery, error) {
	if d.Latency > 0 {
		timer := time.NewTimer(d.Latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, err
	}

	return &Delivery{
		ExternalPostID: fmt.Sprintf("%s_%s", d.Platform, id),
		URL:            fmt.Sprintf("https://%s.com/post/demo", d.Platform),
	}, nil
}
