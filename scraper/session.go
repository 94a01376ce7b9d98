package scraper

import (
	"log"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// SessionManager owns one headless browser and hands out pages from it.
// The browser is launched lazily on first use and can be torn down and
// rebuilt when it goes unhealthy mid-run.
type SessionManager struct {
	mu       sync.Mutex
	browser  *rod.Browser
	cleanup  func()
	bin      string
	headless bool
}

// NewSessionManager creates a manager. bin optionally points at a browser
// binary; when empty, a system Chromium is used if present, otherwise rod
// downloads its own.
func NewSessionManager(bin string, headless bool) *SessionManager {
	return &SessionManager{bin: bin, headless: headless}
}

func (s *SessionManager) launch() error {
	l := launcher.New().
		Headless(s.headless).
		NoSandbox(true).
		Leakless(false)

	bin := s.bin
	if bin == "" {
		if _, err := os.Stat("/usr/bin/chromium-browser"); err == nil {
			bin = "/usr/bin/chromium-browser"
		} else if _, err := os.Stat("/usr/bin/chromium"); err == nil {
			bin = "/usr/bin/chromium"
		}
	}
	if bin != "" {
		l = l.Bin(bin)
	}

	url, err := l.Launch()
	if err != nil {
		return &ResourceError{Op: "launch", Err: err}
	}

	browser := rod.New().ControlURL(url)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return &ResourceError{Op: "connect", Err: err}
	}

	s.browser = browser
	s.cleanup = l.Cleanup
	log.Println("Browser session started")
	return nil
}

// Acquire returns the live browser, launching one if needed.
func (s *SessionManager) Acquire() (*rod.Browser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser == nil {
		if err := s.launch(); err != nil {
			return nil, err
		}
	}
	return s.browser, nil
}

// IsLive pings the browser. A dead DevTools connection means the session
// needs a rebuild.
func (s *SessionManager) IsLive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser == nil {
		return false
	}
	_, err := s.browser.Version()
	return err == nil
}

// Rebuild tears the current browser down and launches a fresh one.
func (s *SessionManager) Rebuild() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.teardownLocked()
	return s.launch()
}

// Teardown closes the browser and releases its resources.
func (s *SessionManager) Teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardownLocked()
}

func (s *SessionManager) teardownLocked() {
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			log.Printf("Error closing browser: %v", err)
		}
		s.browser = nil
	}
	if s.cleanup != nil {
		s.cleanup()
		s.cleanup = nil
	}
}

// Page opens a new tab on the given URL with a navigation deadline.
func (s *SessionManager) Page(url string, timeout time.Duration) (*rod.Page, error) {
	browser, err := s.Acquire()
	if err != nil {
		return nil, err
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return nil, &ResourceError{Op: "open page", Err: err}
	}

	if err := page.Timeout(timeout).WaitLoad(); err != nil {
		_ = page.Close()
		return nil, &NavigationError{URL: url, Err: err}
	}
	return page, nil
}
