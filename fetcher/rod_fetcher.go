package fetcher

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// RodFetcher implements the Fetcher interface using rod (headless browser).
// IHG renders hotel cards and the pet-policy widget client-side, so a real
// browser session is the default fetcher.
type RodFetcher struct {
	browser  *rod.Browser
	throttle *Throttle
	timeout  time.Duration
}

// NewRodFetcher launches a browser and returns a RodFetcher.
func NewRodFetcher(headless bool, timeout time.Duration, throttle *Throttle) (*RodFetcher, error) {
	l := launcher.New().
		Headless(headless).
		Set("disable-blink-features", "AutomationControlled").
		NoSandbox(true).
		Leakless(false).
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("no-first-run").
		Set("no-default-browser-check").
		Set("disable-extensions").
		Set("window-size", "1920,1080").
		Set("lang", "en-US,en;q=0.9")

	// Prefer a system Chrome/Chromium when one is installed
	for _, path := range []string{
		"/usr/bin/google-chrome",
		"/usr/bin/google-chrome-stable",
		"/usr/bin/chromium",
		"/usr/bin/chromium-browser",
		"/snap/bin/chromium",
	} {
		if _, err := os.Stat(path); err == nil {
			l = l.Bin(path)
			break
		}
	}

	browserURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(browserURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	return &RodFetcher{
		browser:  browser,
		throttle: throttle,
		timeout:  timeout,
	}, nil
}

// Fetch navigates to the URL in a fresh tab and returns the rendered HTML.
func (rf *RodFetcher) Fetch(url string) (string, error) {
	if rf.throttle != nil {
		rf.throttle.Wait()
	}

	// MustPage panics on CDP failures; convert that to an error
	var page *rod.Page
	var pageErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				pageErr = fmt.Errorf("panic while creating page: %v", r)
			}
		}()
		page = rf.browser.MustPage()
	}()
	if pageErr != nil {
		return "", pageErr
	}
	if page == nil {
		return "", fmt.Errorf("failed to create page")
	}
	defer page.Close()

	if err := page.Timeout(rf.timeout).Navigate(url); err != nil {
		return "", fmt.Errorf("failed to navigate: %w", err)
	}

	if err := page.Timeout(rf.timeout).WaitLoad(); err != nil {
		return "", fmt.Errorf("page did not load: %w", err)
	}

	// Give client-side rendering a moment, then wait for the DOM to settle
	time.Sleep(1500 * time.Millisecond)
	if err := page.Timeout(10 * time.Second).WaitStable(500 * time.Millisecond); err != nil {
		log.Printf("Warning: page did not stabilize within timeout, continuing anyway: %v\n", err)
	}

	html, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("failed to get HTML: %w", err)
	}

	return html, nil
}

// Close closes the browser.
func (rf *RodFetcher) Close() error {
	if rf.browser != nil {
		return rf.browser.Close()
	}
	return nil
}
