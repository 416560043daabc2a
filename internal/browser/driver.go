// Package browser implements the C1 browser driver: it owns a single
// playwright browser, context, and page, enforces the four-layer
// timeout hierarchy on every operation, and produces optimized
// screenshots and page-info inventories (spec.md §4.1).
package browser

import (
	"fmt"
	"math"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/wizard-automation/core/internal/config"
	"github.com/wizard-automation/core/internal/domain"
)

// Driver owns one browser process, one context, and one page. It is
// not safe for concurrent use by more than one logical task — spec.md
// §5 assigns exactly one session or execution request per driver.
type Driver struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	ctx     playwright.BrowserContext
	page    playwright.Page

	cfg    config.BrowserConfig
	shots  config.ScreenshotConfig
	l1, l2 time.Duration
	log    *zap.Logger
}

// Launch starts playwright, launches the configured engine, opens a
// context at the configured viewport, and opens a page with L1/L2
// timeouts already installed — spec.md §4.1 requires L1 be set
// immediately after page creation, overriding the native 30s default.
func Launch(cfg config.BrowserConfig, timeouts config.TimeoutConfig, shots config.ScreenshotConfig, log *zap.Logger) (*Driver, error) {
	if log == nil {
		log = zap.NewNop()
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, domain.ErrBrowserCrash("", fmt.Errorf("starting playwright: %w", err))
	}

	browserType, err := engineType(pw, cfg.Engine)
	if err != nil {
		pw.Stop()
		return nil, err
	}

	browser, err := browserType.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
		SlowMo:   playwright.Float(float64(cfg.SlowMoMs)),
	})
	if err != nil {
		pw.Stop()
		return nil, domain.ErrBrowserCrash("", fmt.Errorf("launching %s: %w", cfg.Engine, err))
	}

	browserCtx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: cfg.ViewportW, Height: cfg.ViewportH},
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, domain.ErrBrowserCrash("", fmt.Errorf("creating context: %w", err))
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		browserCtx.Close()
		browser.Close()
		pw.Stop()
		return nil, domain.ErrBrowserCrash("", fmt.Errorf("creating page: %w", err))
	}

	d := &Driver{
		pw:      pw,
		browser: browser,
		ctx:     browserCtx,
		page:    page,
		cfg:     cfg,
		shots:   shots,
		l1:      timeouts.L1(),
		l2:      timeouts.L2(),
		log:     log,
	}

	page.SetDefaultTimeout(float64(d.l1.Milliseconds()))
	page.SetDefaultNavigationTimeout(float64(d.l2.Milliseconds()))

	log.Info("browser launched",
		zap.String("engine", string(cfg.Engine)),
		zap.Bool("headless", cfg.Headless),
		zap.Int("viewport_w", cfg.ViewportW),
		zap.Int("viewport_h", cfg.ViewportH),
	)

	return d, nil
}

func engineType(pw *playwright.Playwright, engine config.Engine) (playwright.BrowserType, error) {
	switch engine {
	case config.EngineChromium:
		return pw.Chromium, nil
	case config.EngineWebKit:
		return pw.WebKit, nil
	case config.EngineFirefox:
		return pw.Firefox, nil
	default:
		return nil, domain.ErrInternal(fmt.Sprintf("unknown browser engine: %s", engine), nil)
	}
}

// Close releases the page, context, browser, and playwright driver in
// order. It is safe to call multiple times and is the single cleanup
// path every exit from C8 (success, timeout, panic-recovered error)
// must reach (spec.md §3 invariant 3).
func (d *Driver) Close() error {
	if d.page != nil {
		d.page.Close()
		d.page = nil
	}
	if d.ctx != nil {
		d.ctx.Close()
		d.ctx = nil
	}
	if d.browser != nil {
		d.browser.Close()
		d.browser = nil
	}
	if d.pw != nil {
		err := d.pw.Stop()
		d.pw = nil
		return err
	}
	return nil
}

// Goto navigates to url under the L2 navigation timeout, waiting for
// network idle the way the teacher's crawler does for SPA frameworks.
func (d *Driver) Goto(url string) error {
	_, err := d.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(float64(d.l2.Milliseconds())),
	})
	if err != nil {
		return domain.ErrNavigationFailed(url, err)
	}
	return nil
}

// WaitForNetworkIdle blocks (up to L2) for the network to settle,
// used after clicking a continue button (spec.md §4.8 step 7d).
func (d *Driver) WaitForNetworkIdle() error {
	err := d.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: playwright.Float(float64(d.l2.Milliseconds())),
	})
	if err != nil {
		return domain.ErrNavigationFailed(d.CurrentURL(), err)
	}
	return nil
}

// CurrentURL returns the page's current URL.
func (d *Driver) CurrentURL() string {
	return d.page.URL()
}

// EvaluateJS runs script in the page context and returns its result.
func (d *Driver) EvaluateJS(script string, args ...interface{}) (interface{}, error) {
	return d.page.Evaluate(script, args...)
}

// Page exposes the raw playwright.Page for the action-primitives
// package (C2), which needs locator-level operations this driver does
// not itself need to wrap.
func (d *Driver) Page() playwright.Page {
	return d.page
}

// zoomForContent computes the intelligent-zoom percentage per spec.md
// §4.1: clamp(30, floor(100*viewport/content), 100).
func zoomForContent(viewportHeight, contentHeight int) int {
	if contentHeight <= viewportHeight || contentHeight <= 0 {
		return 100
	}
	pct := int(math.Floor(100 * float64(viewportHeight) / float64(contentHeight)))
	if pct < 30 {
		return 30
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// Screenshot captures the current viewport as JPEG, applying
// intelligent zoom when content exceeds the viewport, then restoring
// zoom. It steps quality down when the result exceeds the configured
// byte ceiling.
func (d *Driver) Screenshot() ([]byte, error) {
	contentHeight, err := d.contentHeight()
	if err != nil {
		d.log.Warn("measuring content height failed, capturing without zoom", zap.Error(err))
		contentHeight = d.cfg.ViewportH
	}

	zoom := zoomForContent(d.cfg.ViewportH, contentHeight)
	if zoom != 100 {
		if _, err := d.page.Evaluate(fmt.Sprintf("document.body.style.zoom='%d%%'", zoom)); err != nil {
			d.log.Warn("applying css zoom failed", zap.Error(err))
			zoom = 100
		}
	}

	quality := d.shots.Quality
	var data []byte
	for {
		data, err = d.page.Screenshot(playwright.PageScreenshotOptions{
			Type:    playwright.ScreenshotTypeJpeg,
			Quality: playwright.Int(quality),
		})
		if err != nil {
			break
		}
		if len(data) <= d.shots.MaxBytes || quality <= 10 {
			break
		}
		quality -= 10
	}

	if zoom != 100 {
		if _, restoreErr := d.page.Evaluate("document.body.style.zoom='100%'"); restoreErr != nil {
			d.log.Warn("restoring css zoom failed", zap.Error(restoreErr))
		}
	}

	if err != nil {
		return nil, domain.ErrBrowserCrash("", fmt.Errorf("screenshot: %w", err))
	}
	return data, nil
}

func (d *Driver) contentHeight() (int, error) {
	raw, err := d.page.Evaluate("document.documentElement.scrollHeight")
	if err != nil {
		return 0, err
	}
	switch v := raw.(type) {
	case float64:
		return int(v), nil
	case int:
		return v, nil
	default:
		return 0, fmt.Errorf("unexpected scrollHeight type %T", raw)
	}
}
