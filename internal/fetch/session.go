// Package fetch obtains rendered page text for a case through a headless
// browser. The pages are client-side rendered, so a plain HTTP GET returns
// an empty shell; a real browser session is the fetch contract.
package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"
)

// Session owns one browser for the duration of a run. Start it once,
// Close it on every exit path.
type Session struct {
	baseURL  string
	timeout  time.Duration
	settle   time.Duration
	headless bool
	log      zerolog.Logger

	launch  *launcher.Launcher
	browser *rod.Browser
}

// NewSession configures a session; no browser is launched until Start.
func NewSession(baseURL string, timeout, settle time.Duration, headless bool, log zerolog.Logger) *Session {
	return &Session{
		baseURL:  baseURL,
		timeout:  timeout,
		settle:   settle,
		headless: headless,
		log:      log,
	}
}

// Start launches the browser and connects to it. Failure here is fatal to
// the run; no cases can be processed without a browser.
func (s *Session) Start(ctx context.Context) error {
	s.launch = launcher.New().Headless(s.headless)
	controlURL, err := s.launch.Launch()
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect browser: %w", err)
	}
	s.browser = browser
	s.log.Debug().Str("control_url", controlURL).Msg("browser started")
	return nil
}

// Close shuts the browser down. Safe to call when Start never succeeded.
func (s *Session) Close() error {
	var err error
	if s.browser != nil {
		err = s.browser.Close()
		s.browser = nil
	}
	if s.launch != nil {
		s.launch.Cleanup()
		s.launch = nil
	}
	return err
}

// CaseText renders the page for one receipt number and returns the body
// text. It waits up to the configured timeout for an element carrying the
// receipt number to appear, then gives the client-side renderer a short
// settle delay before reading the text. Any failure is a per-case fetch
// failure, not fatal to the run.
func (s *Session) CaseText(ctx context.Context, receipt string) (string, error) {
	if s.browser == nil {
		return "", fmt.Errorf("fetch %s: session not started", receipt)
	}
	url := s.baseURL + "/" + receipt

	page, err := s.browser.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return "", fmt.Errorf("fetch %s: open page: %w", receipt, err)
	}
	defer page.Close()

	page = page.Context(ctx).Timeout(s.timeout)
	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("fetch %s: load: %w", receipt, err)
	}
	// The page is ready once any element shows the receipt number.
	if _, err := page.ElementR("*", receipt); err != nil {
		return "", fmt.Errorf("fetch %s: receipt element: %w", receipt, err)
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(s.settle):
	}

	body, err := page.Element("body")
	if err != nil {
		return "", fmt.Errorf("fetch %s: body: %w", receipt, err)
	}
	text, err := body.Text()
	if err != nil {
		return "", fmt.Errorf("fetch %s: text: %w", receipt, err)
	}
	return text, nil
}
