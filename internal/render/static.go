package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/FranksOps/ferret/internal/fingerprint"
	"github.com/FranksOps/ferret/pkg/httpclient"
	"github.com/PuerkitoBio/goquery"
)

// StaticOptions configure the script-free HTTP engine.
type StaticOptions struct {
	// Fingerprint selects the TLS ClientHello profile for outbound
	// requests. Empty defaults to the Chrome profile.
	Fingerprint fingerprint.Profile
	// MaxRedirects caps redirect chains per navigation; 0 means 10,
	// negative disables following entirely.
	MaxRedirects int
	// MaxBodyBytes truncates response bodies; 0 means 10 MiB.
	MaxBodyBytes int64
}

// StaticEngine implements Engine over plain HTTP fetches parsed with
// goquery. It cannot execute scripts, so RunScript is a no-op; lazy-loaded
// content is simply not seen. It is the engine of choice for static sites
// and for tests against httptest servers.
type StaticEngine struct {
	opts   StaticOptions
	logger *slog.Logger
}

var _ Engine = (*StaticEngine)(nil)

// NewStaticEngine returns an HTTP-backed rendering engine.
func NewStaticEngine(opts StaticOptions, logger *slog.Logger) *StaticEngine {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Fingerprint == "" {
		opts.Fingerprint = fingerprint.ProfileChrome
	}
	if opts.MaxRedirects == 0 {
		opts.MaxRedirects = 10
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 10 * 1024 * 1024
	}
	return &StaticEngine{opts: opts, logger: logger}
}

// NewSession builds a session with its own cookie jar, so per-domain
// isolation holds just as it does for browser contexts.
func (e *StaticEngine) NewSession(ctx context.Context, opts SessionOptions) (Session, error) {
	transport, err := fingerprint.Transport(e.opts.Fingerprint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionOpen, err)
	}

	client, err := httpclient.New(httpclient.Config{
		MaxRedirects: e.opts.MaxRedirects,
		UseCookieJar: true,
		Transport:    transport,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionOpen, err)
	}

	return &staticSession{
		client:       client,
		userAgent:    opts.UserAgent,
		maxBodyBytes: e.opts.MaxBodyBytes,
		logger:       e.logger,
	}, nil
}

func (e *StaticEngine) Close() error { return nil }

type staticSession struct {
	client       *httpclient.Client
	userAgent    string
	maxBodyBytes int64
	logger       *slog.Logger
}

func (s *staticSession) NewPage(ctx context.Context) (Page, error) {
	return &staticPage{session: s}, nil
}

func (s *staticSession) Close() error { return nil }

type staticPage struct {
	session *staticSession
	doc     *goquery.Document
}

func (p *staticPage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	navCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		navCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(navCtx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNavigation, url, err)
	}
	if p.session.userAgent != "" {
		req.Header.Set("User-Agent", p.session.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := p.session.client.Do(navCtx, req)
	if err != nil {
		// A previously loaded document stays available on failure, the
		// same way a browser tab keeps its last page.
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s", ErrNavigationTimeout, url)
		}
		return fmt.Errorf("%w: %s: %v", ErrNavigation, url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, p.session.maxBodyBytes))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s", ErrNavigationTimeout, url)
		}
		return fmt.Errorf("%w: %s: reading body: %v", ErrNavigation, url, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %s: parsing: %v", ErrNavigation, url, err)
	}
	p.doc = doc
	return nil
}

func (p *staticPage) VisibleText(ctx context.Context) (string, error) {
	if p.doc == nil {
		return "", fmt.Errorf("%w: no document loaded", ErrExtraction)
	}
	return p.doc.Find("body").Text(), nil
}

// Anchors walks a[*] nodes in document order, which goquery guarantees.
func (p *staticPage) Anchors(ctx context.Context) ([]Anchor, error) {
	if p.doc == nil {
		return nil, fmt.Errorf("%w: no document loaded", ErrExtraction)
	}
	var anchors []Anchor
	p.doc.Find("a").Each(func(i int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		anchors = append(anchors, Anchor{Href: href})
	})
	return anchors, nil
}

// RunScript is a no-op: there is no script runtime in the static engine.
func (p *staticPage) RunScript(ctx context.Context, script string) error { return nil }

func (p *staticPage) Close() error { return nil }
