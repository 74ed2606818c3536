package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

const (
	maxPageBytes = 5 << 20
	userAgent    = "inspectbot-crawler/1.0"
)

// Fetcher returns the HTML of a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Renderer returns the HTML of a page after its scripts ran. Close releases
// the underlying browser; a later Render starts a new one.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
	Close() error
}

// StaticFetcher downloads pages over plain HTTP.
type StaticFetcher struct {
	client *http.Client
}

// NewStaticFetcher creates a fetcher whose requests time out after timeout.
func NewStaticFetcher(timeout time.Duration) *StaticFetcher {
	return &StaticFetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch implements Fetcher.
func (f *StaticFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch failed: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("read failed: %w", err)
	}
	return string(body), nil
}

// RodRenderer renders pages in a headless Chromium driven by rod. One page is
// rendered at a time; the browser is launched on first use.
type RodRenderer struct {
	bin      string
	headless bool
	timeout  time.Duration
	logger   *zap.Logger

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
}

// NewRodRenderer creates a renderer. An empty bin lets the launcher find or
// download a browser.
func NewRodRenderer(bin string, headless bool, timeout time.Duration, logger *zap.Logger) *RodRenderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RodRenderer{bin: bin, headless: headless, timeout: timeout, logger: logger}
}

func (r *RodRenderer) ensureBrowser() error {
	if r.browser != nil {
		return nil
	}

	l := launcher.New().Headless(r.headless).NoSandbox(true).Set("disable-dev-shm-usage").Set("disable-gpu")
	if r.bin != "" {
		l = l.Bin(r.bin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return fmt.Errorf("connect to browser: %w", err)
	}

	r.launcher = l
	r.browser = browser
	r.logger.Info("browser started")
	return nil
}

// Render implements Renderer.
func (r *RodRenderer) Render(ctx context.Context, url string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureBrowser(); err != nil {
		return "", err
	}

	page, err := r.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", fmt.Errorf("open page: %w", err)
	}
	defer func() { _ = page.Close() }()

	p := page
	if r.timeout > 0 {
		p = page.Timeout(r.timeout)
	}
	if err := p.Navigate(url); err != nil {
		return "", fmt.Errorf("navigate: %w", err)
	}
	if err := p.WaitLoad(); err != nil {
		return "", fmt.Errorf("wait load: %w", err)
	}
	if _, err := p.Element("body"); err != nil {
		return "", fmt.Errorf("wait body: %w", err)
	}

	htmlContent, err := p.HTML()
	if err != nil {
		return "", fmt.Errorf("read html: %w", err)
	}
	return htmlContent, nil
}

// Close implements Renderer.
func (r *RodRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser == nil {
		return nil
	}
	err := r.browser.Close()
	r.launcher.Cleanup()
	r.browser = nil
	r.launcher = nil
	r.logger.Info("browser closed")
	return err
}
