// Package browser owns the single headless Chrome session used for a run.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Config controls the headless session.
type Config struct {
	UserAgent string
	// ExtraHeaders is sent with every request, on top of the UA override.
	ExtraHeaders map[string]string
	NavTimeout   time.Duration
	OpTimeout    time.Duration
}

// Session implements catalog.Browser on top of chromedp. One browser context
// is created at construction, reused for every page in the run, and released
// by Close on every exit path.
type Session struct {
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc
	logger          *zap.Logger
	cfg             Config
}

// New launches headless Chrome and warms up the browser context.
func New(cfg Config, logger *zap.Logger) (*Session, error) {
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 60 * time.Second
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = 15 * time.Second
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}

	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)
	if err := chromedp.Run(browserCtx, bootstrapAction(cfg)); err != nil {
		browserCancel()
		allocatorCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}
	logger.Info("browser session ready", zap.String("user_agent", cfg.UserAgent))

	return &Session{
		allocatorCancel: allocatorCancel,
		browserCtx:      browserCtx,
		browserCancel:   browserCancel,
		logger:          logger,
		cfg:             cfg,
	}, nil
}

// bootstrapAction enables the network domain and applies the user-agent and
// header overrides before the first navigation.
func bootstrapAction(cfg Config) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		if len(cfg.ExtraHeaders) > 0 {
			headers := make(network.Headers, len(cfg.ExtraHeaders))
			for k, v := range cfg.ExtraHeaders {
				headers[k] = v
			}
			if err := network.SetExtraHTTPHeaders(headers).Do(ctx); err != nil {
				return fmt.Errorf("set extra headers: %w", err)
			}
		}
		return nil
	})
}

// Close tears down the browser and allocator contexts.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	s.browserCancel()
	s.allocatorCancel()
	return nil
}

// Navigate loads url in the session page and waits for the body to be ready.
func (s *Session) Navigate(ctx context.Context, url string) error {
	err := s.run(ctx, s.cfg.NavTimeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// WaitVisible blocks until the selector matches a visible node.
func (s *Session) WaitVisible(ctx context.Context, selector string) error {
	if err := s.run(ctx, s.cfg.OpTimeout, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("wait for %q: %w", selector, err)
	}
	return nil
}

// ScrollToBottom triggers the progressive-loading scroll.
func (s *Session) ScrollToBottom(ctx context.Context) error {
	err := s.run(ctx, s.cfg.OpTimeout,
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
	)
	if err != nil {
		return fmt.Errorf("scroll to bottom: %w", err)
	}
	return nil
}

// PageHeight returns document.body.scrollHeight for convergence checks.
func (s *Session) PageHeight(ctx context.Context) (int64, error) {
	var height float64
	err := s.run(ctx, s.cfg.OpTimeout,
		chromedp.Evaluate(`document.body.scrollHeight`, &height),
	)
	if err != nil {
		return 0, fmt.Errorf("read page height: %w", err)
	}
	return int64(height), nil
}

// HTML returns the rendered DOM snapshot.
func (s *Session) HTML(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, s.cfg.OpTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read dom: %w", err)
	}
	return html, nil
}

// LinkHrefs returns the resolved href of every anchor matching selector.
func (s *Session) LinkHrefs(ctx context.Context, selector string) ([]string, error) {
	var hrefs []string
	script := fmt.Sprintf(
		`Array.from(document.querySelectorAll(%q)).map(a => a.href).filter(h => h)`,
		selector,
	)
	if err := s.run(ctx, s.cfg.OpTimeout, chromedp.Evaluate(script, &hrefs)); err != nil {
		return nil, fmt.Errorf("collect links %q: %w", selector, err)
	}
	return hrefs, nil
}

// Location reports the page's current URL.
func (s *Session) Location(ctx context.Context) (string, error) {
	var loc string
	if err := s.run(ctx, s.cfg.OpTimeout, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("read location: %w", err)
	}
	return loc, nil
}

// run executes actions against the session page with a per-operation timeout,
// forwarding cancellation from the caller's context.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	taskCtx, cancelTask := context.WithTimeout(s.browserCtx, timeout)
	defer cancelTask()

	stop := forwardCancel(ctx, cancelTask)
	defer stop()

	if err := chromedp.Run(taskCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// forwardCancel cancels task execution when the outer context finishes.
func forwardCancel(ctx context.Context, cancel context.CancelFunc) func() {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
