package visualize

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"
)

// rasterTimeout bounds a single screenshot; rendering a static SVG should be
// near-instant, so a slow browser is treated as unavailable.
const rasterTimeout = 15 * time.Second

// browserBinaries are probed in order by BrowserAvailable.
var browserBinaries = []string{"google-chrome", "chromium", "chromium-browser", "headless-shell"}

// BrowserAvailable reports whether a Chrome binary chromedp can drive is on
// PATH. Callers fall back to returning the SVG directly when it is not.
func BrowserAvailable() bool {
	for _, bin := range browserBinaries {
		if _, err := exec.LookPath(bin); err == nil {
			return true
		}
	}
	return false
}

// RasterizePNG renders an SVG document to a PNG screenshot through headless
// Chrome. The SVG is inlined into a data URL so no temp files or servers are
// involved.
func RasterizePNG(ctx context.Context, svg string, opts Options) ([]byte, error) {
	opts = opts.withDefaults()

	ctx, cancel := context.WithTimeout(ctx, rasterTimeout)
	defer cancel()

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.WindowSize(opts.Width, opts.Height),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	url := "data:image/svg+xml;charset=utf-8," + dataURLEscape(svg)

	var png []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.CaptureScreenshot(&png),
	)
	if err != nil {
		return nil, fmt.Errorf("rasterize svg: %w", err)
	}
	return png, nil
}

// dataURLEscape percent-encodes the characters that break data URLs while
// leaving the bulk of the SVG readable.
func dataURLEscape(s string) string {
	var out []byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '#', '%', '"', '\n':
			out = append(out, fmt.Sprintf("%%%02X", c)...)
		default:
			out = append(out, c)
		}
	}
	return string(out)
}
