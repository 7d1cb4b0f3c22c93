package driver

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"engagemon/internal/config"
	"engagemon/internal/fingerprint"
)

// Browser owns the Chrome instance. One process runs one browser; sessions
// are isolated incognito contexts inside it.
type Browser struct {
	cfg     config.BrowserConfig
	log     *zap.Logger
	browser *rod.Browser
}

// NewBrowser creates an unconnected browser manager.
func NewBrowser(cfg config.BrowserConfig, log *zap.Logger) *Browser {
	return &Browser{cfg: cfg, log: log}
}

// Start connects to an existing Chrome or launches a new one.
func (b *Browser) Start(ctx context.Context) error {
	if b.browser != nil {
		return nil
	}

	controlURL := b.cfg.DebuggerURL
	if controlURL == "" {
		l := launcher.New().Headless(b.cfg.Headless)
		if b.cfg.Bin != "" {
			l = l.Bin(b.cfg.Bin)
		}
		url, err := l.Launch()
		if err != nil {
			return fmt.Errorf("launch chrome: %w", err)
		}
		controlURL = url
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect to chrome: %w", err)
	}
	b.browser = browser
	b.log.Info("browser connected", zap.Bool("headless", b.cfg.Headless))
	return nil
}

// Close shuts the browser down.
func (b *Browser) Close() error {
	if b.browser == nil {
		return nil
	}
	err := b.browser.Close()
	b.browser = nil
	return err
}

// NewSession opens an isolated incognito page presenting the account's
// fingerprint. statePath is where login state (cookies) is persisted.
func (b *Browser) NewSession(ctx context.Context, account string, fp fingerprint.Fingerprint, statePath, shotDir string) (*RodSession, error) {
	if b.browser == nil {
		return nil, fmt.Errorf("browser not connected")
	}

	incognito, err := b.browser.Incognito()
	if err != nil {
		return nil, fmt.Errorf("incognito context: %w", err)
	}
	page, err := incognito.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}

	s := &RodSession{
		page:      page.Context(ctx),
		cfg:       b.cfg,
		fp:        fp,
		account:   account,
		statePath: statePath,
		shotDir:   shotDir,
		log:       b.log.With(zap.String("account", account)),
	}
	if err := s.applyFingerprint(); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("apply fingerprint: %w", err)
	}
	return s, nil
}

// RodSession drives one account's page.
type RodSession struct {
	page      *rod.Page
	cfg       config.BrowserConfig
	fp        fingerprint.Fingerprint
	account   string
	statePath string
	shotDir   string
	log       *zap.Logger
}

// applyFingerprint installs every identity override before first navigation.
func (s *RodSession) applyFingerprint() error {
	fp := s.fp
	if err := (proto.NetworkSetUserAgentOverride{
		UserAgent:      fp.UserAgent,
		AcceptLanguage: fp.Locale,
	}).Call(s.page); err != nil {
		return err
	}
	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             fp.ViewportWidth,
		Height:            fp.ViewportHeight,
		DeviceScaleFactor: fp.DeviceScaleFactor,
		Mobile:            fp.Mobile,
	}).Call(s.page); err != nil {
		return err
	}
	if fp.HasTouch {
		maxTouch := 5
		if err := (proto.EmulationSetTouchEmulationEnabled{
			Enabled:        true,
			MaxTouchPoints: &maxTouch,
		}).Call(s.page); err != nil {
			return err
		}
	}
	if err := (proto.EmulationSetTimezoneOverride{TimezoneID: fp.Timezone}).Call(s.page); err != nil {
		return err
	}
	if err := (proto.EmulationSetLocaleOverride{Locale: fp.Locale}).Call(s.page); err != nil {
		return err
	}
	if err := (proto.EmulationSetEmulatedMedia{
		Features: []*proto.EmulationMediaFeature{
			{Name: "prefers-color-scheme", Value: fp.ColorScheme},
			{Name: "prefers-reduced-motion", Value: fp.ReducedMotion},
		},
	}).Call(s.page); err != nil {
		return err
	}
	_, err := s.page.EvalOnNewDocument(stealthScript(fp))
	return err
}

// Navigate loads url and waits for the load event.
func (s *RodSession) Navigate(ctx context.Context, url string) error {
	p := s.page.Context(ctx).Timeout(s.navTimeout())
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return p.WaitLoad()
}

// Probe checks for sel immediately. Exactly one visible match is Found;
// several are Ambiguous; zero visible matches is NotFound.
func (s *RodSession) Probe(sel string) (ProbeResult, error) {
	els, err := s.page.Elements(sel)
	if err != nil {
		return NotFound(), fmt.Errorf("probe %q: %w", sel, err)
	}
	var visible []*rod.Element
	for _, el := range els {
		if ok, err := el.Visible(); err == nil && ok {
			visible = append(visible, el)
		}
	}
	switch len(visible) {
	case 0:
		return NotFound(), nil
	case 1:
		return Found(&rodElement{el: visible[0]}), nil
	default:
		return Ambiguous(len(visible)), nil
	}
}

// WaitVisible waits up to timeout for a visible match.
func (s *RodSession) WaitVisible(ctx context.Context, sel string, timeout time.Duration) (Element, error) {
	p := s.page.Context(ctx).Timeout(timeout)
	el, err := p.Element(sel)
	if err != nil {
		return nil, fmt.Errorf("wait for %q: %w", sel, err)
	}
	if err := el.WaitVisible(); err != nil {
		return nil, fmt.Errorf("wait visible %q: %w", sel, err)
	}
	return &rodElement{el: el.CancelTimeout()}, nil
}

// Elements returns all current matches.
func (s *RodSession) Elements(sel string) ([]Element, error) {
	els, err := s.page.Elements(sel)
	if err != nil {
		return nil, err
	}
	out := make([]Element, 0, len(els))
	for _, el := range els {
		out = append(out, &rodElement{el: el})
	}
	return out, nil
}

// InsertText types into the focused element.
func (s *RodSession) InsertText(text string) error {
	return s.page.InsertText(text)
}

// Backspace deletes one character before the caret.
func (s *RodSession) Backspace() error {
	return s.page.Keyboard.Type(input.Backspace)
}

// MouseMove moves the pointer to a viewport coordinate.
func (s *RodSession) MouseMove(x, y float64) error {
	return s.page.Mouse.MoveTo(proto.Point{X: x, Y: y})
}

// Viewport returns the emulated viewport size.
func (s *RodSession) Viewport() (int, int) {
	return s.fp.ViewportWidth, s.fp.ViewportHeight
}

// Screenshot writes a PNG to path.
func (s *RodSession) Screenshot(path string) error {
	data, err := s.page.Screenshot(false, nil)
	if err != nil {
		return fmt.Errorf("screenshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// URL returns the page's current URL.
func (s *RodSession) URL() string {
	info, err := s.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

// SaveState persists the session's cookies.
func (s *RodSession) SaveState() error {
	res, err := proto.NetworkGetCookies{}.Call(s.page)
	if err != nil {
		return fmt.Errorf("get cookies: %w", err)
	}
	data, err := json.MarshalIndent(res.Cookies, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.statePath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.statePath, data, 0o600)
}

// RestoreState loads persisted cookies into the session.
func (s *RodSession) RestoreState() error {
	data, err := os.ReadFile(s.statePath)
	if err != nil {
		return fmt.Errorf("read session state: %w", err)
	}
	var cookies []*proto.NetworkCookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return fmt.Errorf("parse session state: %w", err)
	}
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: c.SameSite,
			Priority: c.Priority,
		})
	}
	if len(params) == 0 {
		return nil
	}
	return s.page.SetCookies(params)
}

// HasState reports whether persisted login state exists on disk.
func (s *RodSession) HasState() bool {
	_, err := os.Stat(s.statePath)
	return err == nil
}

// Close closes the page.
func (s *RodSession) Close() error {
	return s.page.Close()
}

func (s *RodSession) navTimeout() time.Duration {
	if s.cfg.NavigationTimeoutSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.cfg.NavigationTimeoutSec * float64(time.Second))
}

// rodElement adapts *rod.Element to the Element interface.
type rodElement struct {
	el *rod.Element
}

func (e *rodElement) Text() (string, error) { return e.el.Text() }

func (e *rodElement) Attribute(name string) (*string, error) { return e.el.Attribute(name) }

func (e *rodElement) Visible() (bool, error) { return e.el.Visible() }

func (e *rodElement) Disabled() (bool, error) {
	prop, err := e.el.Property("disabled")
	if err != nil {
		return false, err
	}
	return prop.Bool(), nil
}

func (e *rodElement) Focus() error { return e.el.Focus() }

func (e *rodElement) Click() error { return e.el.Click(proto.InputMouseButtonLeft, 1) }

func (e *rodElement) Point() (float64, float64, error) {
	shape, err := e.el.Shape()
	if err != nil {
		return 0, 0, fmt.Errorf("element shape: %w", err)
	}
	pt := shape.OnePointInside()
	if pt == nil {
		return 0, 0, fmt.Errorf("element has no interactable area")
	}
	return pt.X, pt.Y, nil
}

func (e *rodElement) ScrollIntoView() error { return e.el.ScrollIntoView() }
