package rodsurface

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Browser is a connected Chrome, launched locally or reached over its DevTools URL.
type Browser struct {
	*rod.Browser
	lnch *launcher.Launcher
}

// Launch connects to the Chrome at remoteURL, or starts a headless one if remoteURL is
// empty.
func Launch(ctx context.Context, remoteURL string, logger *slog.Logger) (*Browser, error) {
	b := &Browser{}

	wsURL := remoteURL
	if wsURL == "" {
		l := launcher.New().Context(ctx).Headless(true)
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		wsURL = u
		b.lnch = l
		if logger != nil {
			logger.Info("Launched local chrome", "url", wsURL)
		}
	} else if logger != nil {
		logger.Info("Connecting to remote chrome", "url", wsURL)
	}

	rb := rod.New().Context(ctx).ControlURL(wsURL)
	if err := rb.Connect(); err != nil {
		b.cleanup()
		return nil, fmt.Errorf("connect chrome: %w", err)
	}
	b.Browser = rb
	return b, nil
}

// NewSurface opens a blank page and attaches a Surface to it.
func (b *Browser) NewSurface(ctx context.Context, logger *slog.Logger) (*Surface, error) {
	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	return New(ctx, page, logger)
}

// Close closes the browser and stops a locally launched Chrome.
func (b *Browser) Close() error {
	var err error
	if b.Browser != nil {
		err = b.Browser.Close()
	}
	b.cleanup()
	return err
}

func (b *Browser) cleanup() {
	if b.lnch != nil {
		b.lnch.Kill()
		b.lnch.Cleanup()
	}
}
