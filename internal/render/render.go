// Package render abstracts the page rendering engine the crawler drives.
// Two implementations exist: a headless Chrome engine for script-heavy
// sites, and a plain HTTP engine for static sites and tests.
package render

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNavigationTimeout signals that a navigation hit its deadline. The
	// page may still hold partially loaded content worth inspecting.
	ErrNavigationTimeout = errors.New("render: navigation timeout")
	// ErrNavigation signals a navigation failure other than a timeout.
	ErrNavigation = errors.New("render: navigation failed")
	// ErrSessionOpen signals that an isolated browsing session could not be
	// created for a domain.
	ErrSessionOpen = errors.New("render: session open failed")
	// ErrExtraction signals that anchor or text extraction failed; callers
	// treat whatever was gathered before the failure as the result.
	ErrExtraction = errors.New("render: extraction failed")
)

// Anchor is a single anchor element as exposed by the rendered DOM. Href is
// the raw attribute value, unresolved.
type Anchor struct {
	Href string
}

// SessionOptions carry the identity and viewport of one isolated browsing
// session.
type SessionOptions struct {
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
}

// Engine creates isolated browsing sessions. One engine instance may back
// many concurrent sessions; cookie/storage isolation between sessions is
// the engine's responsibility.
type Engine interface {
	NewSession(ctx context.Context, opts SessionOptions) (Session, error)
	Close() error
}

// Session is one isolated browsing context (own cookies and storage).
type Session interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is a single page handle within a session. Implementations are not
// safe for concurrent use; the traversal drives one page sequentially.
type Page interface {
	// Navigate loads the URL, blocking up to timeout. A deadline expiry
	// returns an error wrapping ErrNavigationTimeout; the page keeps
	// whatever content loaded before the deadline.
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	// VisibleText returns the rendered text content of the page body.
	VisibleText(ctx context.Context) (string, error)
	// Anchors returns the page's anchor elements in document order.
	Anchors(ctx context.Context) ([]Anchor, error)
	// RunScript evaluates a script in the page, discarding the result.
	// Engines without a script runtime return nil without doing anything.
	RunScript(ctx context.Context, script string) error
	Close() error
}
