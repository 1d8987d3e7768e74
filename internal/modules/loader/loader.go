// Package loader decodes media files off the navigation run loop. A
// small worker pool performs the actual decoding and delivers outcomes
// on a results channel consumed by the browser module, so a slow or
// corrupt file never blocks command handling.
package loader

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/Bawycle/lens/internal/modules/browser"
)

// ErrBusy is delivered when the decode queue is saturated.
var ErrBusy = errors.New("loader queue full")

// ImagePayload is the decoded outcome of an image load.
type ImagePayload struct {
	Image  image.Image
	Width  int
	Height int
}

// VideoPayload is the outcome of a video probe.
type VideoPayload struct {
	Container string
}

// Config configures the loader.
type Config struct {
	Workers   int
	QueueSize int
}

// Loader is a decoding worker pool. It satisfies the browser module's
// Loader interface; Run must be started before any Load call and owns
// the workers until ctx is cancelled.
type Loader struct {
	log     *zap.Logger
	workers int

	jobs    chan browser.LoadRequest
	results chan browser.LoadResult
}

// New creates a loader.
func New(log *zap.Logger, cfg Config) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 32
	}
	return &Loader{
		log:     log,
		workers: cfg.Workers,
		jobs:    make(chan browser.LoadRequest, cfg.QueueSize),
		results: make(chan browser.LoadResult, cfg.QueueSize),
	}
}

// Results returns the channel load outcomes are delivered on.
func (l *Loader) Results() <-chan browser.LoadResult {
	return l.results
}

// Run starts the worker pool and blocks until ctx is cancelled.
func (l *Loader) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < l.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.worker(ctx)
		}()
	}
	wg.Wait()
	return nil
}

// Load enqueues a decode without blocking. A saturated queue is
// reported as an immediate failure so the caller's skip handling
// applies instead of the run loop stalling.
func (l *Loader) Load(ctx context.Context, req browser.LoadRequest) {
	select {
	case l.jobs <- req:
	default:
		l.log.Warn("decode queue full", zap.String("path", req.Path))
		l.deliver(ctx, browser.LoadResult{Path: req.Path, Generation: req.Generation, Err: ErrBusy})
	}
}

func (l *Loader) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-l.jobs:
			payload, err := l.decode(req)
			if err != nil {
				l.log.Debug("decode failed", zap.String("path", req.Path), zap.Error(err))
			}
			l.deliver(ctx, browser.LoadResult{
				Path:       req.Path,
				Generation: req.Generation,
				Payload:    payload,
				Err:        err,
			})
		}
	}
}

func (l *Loader) decode(req browser.LoadRequest) (any, error) {
	switch req.Kind {
	case browser.KindImage:
		return decodeImage(req.Path)
	case browser.KindVideo:
		return probeVideo(req.Path)
	default:
		return nil, fmt.Errorf("unsupported media kind %q", req.Kind)
	}
}

func (l *Loader) deliver(ctx context.Context, res browser.LoadResult) {
	select {
	case l.results <- res:
	case <-ctx.Done():
	}
}

// decodeImage fully decodes the image, honouring the EXIF orientation
// tag. A truncated or corrupt file surfaces as an error here, which is
// what drives the browser's skip behaviour.
func decodeImage(path string) (ImagePayload, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return ImagePayload{}, fmt.Errorf("decode %s: %w", path, err)
	}
	bounds := img.Bounds()
	return ImagePayload{
		Image:  img,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}
