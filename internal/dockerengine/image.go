package dockerengine

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"

	"github.com/sandboxlabs/sandboxd/internal/logger"
	"github.com/sandboxlabs/sandboxd/internal/metrics"
	"github.com/sandboxlabs/sandboxd/internal/telemetry"
)

// Coordinator ensures an image is present locally before a container using
// it is created, single-flighting concurrent pulls of the same image.
type Coordinator struct {
	cli  *client.Client
	prom *metrics.Recorder

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewCoordinator builds a Coordinator backed by cli. prom may be nil.
func NewCoordinator(cli *client.Client, prom *metrics.Recorder) *Coordinator {
	return &Coordinator{
		cli:   cli,
		prom:  prom,
		locks: make(map[string]*sync.Mutex),
	}
}

// Ensure returns once imageName is known to be present locally, pulling it
// if necessary. At most one pull is ever in flight for a given image across
// concurrent callers; distinct images pull concurrently.
func (c *Coordinator) Ensure(ctx context.Context, imageName string) error {
	ctx, span := telemetry.StartImageSpan(ctx, telemetry.SpanImageEnsure, imageName)
	defer span.End()

	if _, err := c.cli.ImageInspect(ctx, imageName); err == nil {
		return nil
	} else if !client.IsErrNotFound(err) {
		telemetry.RecordError(ctx, err)
		return fmt.Errorf("dockerengine: inspecting image %s: %w", imageName, err)
	}

	lock := c.lockFor(imageName)
	lock.Lock()
	defer lock.Unlock()

	// Another waiter may have completed the pull while we were blocked.
	if _, err := c.cli.ImageInspect(ctx, imageName); err == nil {
		return nil
	} else if !client.IsErrNotFound(err) {
		telemetry.RecordError(ctx, err)
		return fmt.Errorf("dockerengine: inspecting image %s: %w", imageName, err)
	}

	pullCtx, pullSpan := telemetry.StartImageSpan(ctx, telemetry.SpanImagePull, imageName)
	defer pullSpan.End()

	logger.InfoCtx(ctx, "pulling container image", "image", imageName)

	reader, pullErr := c.cli.ImagePull(pullCtx, imageName, image.PullOptions{})
	if pullErr != nil {
		c.prom.RecordImagePull(imageName, pullErr)
		telemetry.RecordError(pullCtx, pullErr)
		return fmt.Errorf("%w: pulling image %s: %w", ErrImagePullFailed, imageName, pullErr)
	}
	defer reader.Close()

	if _, err := io.Copy(io.Discard, reader); err != nil {
		c.prom.RecordImagePull(imageName, err)
		telemetry.RecordError(pullCtx, err)
		return fmt.Errorf("%w: draining pull output for %s: %w", ErrImagePullFailed, imageName, err)
	}

	c.prom.RecordImagePull(imageName, nil)
	return nil
}

func (c *Coordinator) lockFor(imageName string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()

	lock, ok := c.locks[imageName]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[imageName] = lock
	}
	return lock
}
