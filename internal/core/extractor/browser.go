package extractor

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/guiyumin/socialdl/internal/core/platform"
)

// BrowserConfig configures the headless render fallback
type BrowserConfig struct {
	Bin         string // browser binary; ROD_BROWSER env var is used when empty
	Headless    bool
	UserDataDir string // parent of the per-render profiles; os.TempDir when empty
	Timeout     time.Duration
	UserAgent   string
}

// Browser renders pages in a headless Chromium so that script payloads
// injected after load become visible. Navigation to any document outside
// the platform allow-list is blocked.
type Browser struct {
	cfg BrowserConfig
}

// NewBrowser returns a renderer. Nothing is launched until Render is called.
func NewBrowser(cfg BrowserConfig) *Browser {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	return &Browser{cfg: cfg}
}

// Render loads rawURL and returns the resulting document HTML
func (b *Browser) Render(ctx context.Context, tag platform.Tag, rawURL string) (html string, err error) {
	if err := platform.ValidateHost(rawURL, tag); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	profile, err := b.newProfileDir()
	if err != nil {
		return "", err
	}
	l := b.createLauncher(profile)
	defer l.Cleanup()

	controlURL, err := l.Context(ctx).Launch()
	if err != nil {
		return "", fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().Context(ctx).ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return "", fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer browser.Close()

	page, err := stealth.Page(browser)
	if err != nil {
		return "", fmt.Errorf("failed to open page: %w", err)
	}
	defer page.Close()

	router := page.HijackRequests()
	router.MustAdd("*", func(h *rod.Hijack) {
		if h.Request.Type() == proto.NetworkResourceTypeDocument {
			if err := platform.ValidateHost(h.Request.URL().String(), tag); err != nil {
				h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
				return
			}
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()
	defer router.Stop()

	if err := page.Navigate(rawURL); err != nil {
		return "", fmt.Errorf("navigate: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("wait load: %w", err)
	}

	return page.HTML()
}

func (b *Browser) createLauncher(profile string) *launcher.Launcher {
	bin := b.cfg.Bin
	if bin == "" {
		bin = os.Getenv("ROD_BROWSER")
	}

	l := launcher.New().
		Headless(b.cfg.Headless).
		UserDataDir(profile).
		Set("no-sandbox").
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("disable-software-rasterizer").
		Set("disable-extensions").
		Set("disable-background-networking").
		Set("disable-sync").
		Set("disable-translate").
		Set("no-first-run").
		Set("window-size", "1920,1080").
		Set("user-agent", b.cfg.UserAgent)

	if bin != "" {
		l = l.Bin(bin)
	}
	return l
}

// newProfileDir creates a fresh Chromium profile for one render. Chromium
// locks its profile, so concurrent renders cannot share one. The launcher
// removes it on Cleanup.
func (b *Browser) newProfileDir() (string, error) {
	parent := b.cfg.UserDataDir
	if parent == "" {
		parent = os.TempDir()
	}
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return "", fmt.Errorf("browser profile dir: %w", err)
	}
	dir, err := os.MkdirTemp(parent, "socialdl-render-*")
	if err != nil {
		return "", fmt.Errorf("browser profile dir: %w", err)
	}
	return dir, nil
}

// renderStrategy wraps a page parser so it runs against browser-rendered HTML
func renderStrategy(b *Browser, tag platform.Tag, parse func(body []byte) (*ExtractedMedia, error)) Strategy {
	return Strategy{
		Name: "browser",
		Run: func(ctx context.Context, rawURL string, _ Quality) (*ExtractedMedia, error) {
			html, err := b.Render(ctx, tag, rawURL)
			if err != nil {
				return nil, err
			}
			return parse([]byte(html))
		},
	}
}
