package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
)

// ChromeOptions configure the headless Chrome engine.
type ChromeOptions struct {
	Headless bool
	// ExecPath overrides the browser binary; empty uses chromedp's lookup.
	ExecPath string
}

// ChromeEngine drives headless Chrome via chromedp. Each session gets its
// own browser process, so cookie and storage isolation between domains
// comes for free.
type ChromeEngine struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	logger      *slog.Logger
}

var _ Engine = (*ChromeEngine)(nil)

// NewChromeEngine builds the exec allocator shared by all sessions.
func NewChromeEngine(opts ChromeOptions, logger *slog.Logger) *ChromeEngine {
	if logger == nil {
		logger = slog.Default()
	}

	execOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	execOpts = append(execOpts,
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
	)
	if opts.ExecPath != "" {
		execOpts = append(execOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), execOpts...)
	return &ChromeEngine{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		logger:      logger,
	}
}

// NewSession starts a browser context for one domain crawl.
func (e *ChromeEngine) NewSession(ctx context.Context, opts SessionOptions) (Session, error) {
	sessCtx, sessCancel := chromedp.NewContext(e.allocCtx)

	// Force the browser to start now so a broken Chrome install surfaces
	// here, at domain granularity, instead of on the first navigation.
	if err := chromedp.Run(sessCtx); err != nil {
		sessCancel()
		return nil, fmt.Errorf("%w: %v", ErrSessionOpen, err)
	}

	return &chromeSession{
		ctx:    sessCtx,
		cancel: sessCancel,
		opts:   opts,
		logger: e.logger,
	}, nil
}

// Close tears down the allocator and every remaining session.
func (e *ChromeEngine) Close() error {
	e.allocCancel()
	return nil
}

type chromeSession struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   SessionOptions
	logger *slog.Logger
}

func (s *chromeSession) NewPage(ctx context.Context) (Page, error) {
	tabCtx, tabCancel := chromedp.NewContext(s.ctx)

	var actions []chromedp.Action
	if s.opts.ViewportWidth > 0 && s.opts.ViewportHeight > 0 {
		actions = append(actions, chromedp.EmulateViewport(
			int64(s.opts.ViewportWidth), int64(s.opts.ViewportHeight)))
	}
	if s.opts.UserAgent != "" {
		actions = append(actions, emulation.SetUserAgentOverride(s.opts.UserAgent))
	}
	if len(actions) > 0 {
		if err := chromedp.Run(tabCtx, actions...); err != nil {
			tabCancel()
			return nil, fmt.Errorf("%w: applying session identity: %v", ErrSessionOpen, err)
		}
	}

	return &chromePage{ctx: tabCtx, cancel: tabCancel, logger: s.logger}, nil
}

func (s *chromeSession) Close() error {
	s.cancel()
	return nil
}

type chromePage struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger
}

// runCtx binds one CDP call to both the tab context and the caller's
// context. The returned context descends from the tab context, so it
// carries the chromedp state Run needs, and it is cancelled as soon as the
// caller's context is done (deadline or cancellation). Without this
// bridge a hung evaluate would block past any caller deadline.
func (p *chromePage) runCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	bound, cancel := context.WithCancel(p.ctx)
	stop := context.AfterFunc(ctx, cancel)
	return bound, func() {
		stop()
		cancel()
	}
}

func (p *chromePage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	navCtx, unbind := p.runCtx(ctx)
	defer unbind()
	if timeout > 0 {
		var cancel context.CancelFunc
		navCtx, cancel = context.WithTimeout(navCtx, timeout)
		defer cancel()
	}

	err := chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			// The tab keeps whatever loaded before the deadline.
			return fmt.Errorf("%w: %s", ErrNavigationTimeout, url)
		}
		return fmt.Errorf("%w: %s: %v", ErrNavigation, url, err)
	}
	return nil
}

func (p *chromePage) VisibleText(ctx context.Context) (string, error) {
	runCtx, unbind := p.runCtx(ctx)
	defer unbind()

	var text string
	err := chromedp.Run(runCtx,
		chromedp.Evaluate(`document.body ? document.body.innerText : ""`, &text),
	)
	if err != nil {
		return "", fmt.Errorf("%w: visible text: %v", ErrExtraction, err)
	}
	return text, nil
}

func (p *chromePage) Anchors(ctx context.Context) ([]Anchor, error) {
	runCtx, unbind := p.runCtx(ctx)
	defer unbind()

	var hrefs []string
	err := chromedp.Run(runCtx,
		chromedp.Evaluate(`Array.from(document.querySelectorAll("a")).map(a => a.getAttribute("href") || "")`, &hrefs),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: anchors: %v", ErrExtraction, err)
	}
	anchors := make([]Anchor, 0, len(hrefs))
	for _, h := range hrefs {
		anchors = append(anchors, Anchor{Href: h})
	}
	return anchors, nil
}

func (p *chromePage) RunScript(ctx context.Context, script string) error {
	runCtx, unbind := p.runCtx(ctx)
	defer unbind()

	if err := chromedp.Run(runCtx, chromedp.Evaluate(script, nil)); err != nil {
		return fmt.Errorf("%w: script: %v", ErrExtraction, err)
	}
	return nil
}

func (p *chromePage) Close() error {
	p.cancel()
	return nil
}
