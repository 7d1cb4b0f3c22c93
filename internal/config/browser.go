package config

// BrowserConfig configures the underlying browser driver.
type BrowserConfig struct {
	// Bin is the Chrome/Chromium binary. Empty = rod's managed download.
	Bin      string `yaml:"bin,omitempty"`
	Headless bool   `yaml:"headless"`

	// DebuggerURL attaches to an already-running browser instead of
	// launching one.
	DebuggerURL string `yaml:"debugger_url,omitempty"`

	// NavigationTimeoutSec bounds one navigation.
	NavigationTimeoutSec float64 `yaml:"navigation_timeout_sec"`

	// ElementTimeoutSec bounds one bounded element wait.
	ElementTimeoutSec float64 `yaml:"element_timeout_sec"`

	// Site describes how to find things on the target site. The site's
	// markup is deliberately not modeled beyond these selector strings.
	Site SiteConfig `yaml:"site"`
}

// SiteConfig is the selector surface for the monitored site. Defaults fit a
// typical profile-grid site and are expected to be overridden as the site
// changes its markup.
type SiteConfig struct {
	BaseURL  string `yaml:"base_url"`
	LoginURL string `yaml:"login_url"`

	// Login surface.
	UsernameField string `yaml:"username_field"`
	PasswordField string `yaml:"password_field"`
	LoginSubmit   string `yaml:"login_submit"`

	// AuthedMarker is present only when logged in; LoginMarker only when
	// logged out.
	AuthedMarker string `yaml:"authed_marker"`
	LoginMarker  string `yaml:"login_marker"`

	// Transient overlays, dismissed best-effort.
	CookieDismiss   string `yaml:"cookie_dismiss"`
	SaveInfoDismiss string `yaml:"save_info_dismiss"`
	NotifDismiss    string `yaml:"notif_dismiss"`

	// Profile page.
	PrivateMarker  string `yaml:"private_marker"`
	PostLink       string `yaml:"post_link"`
	PinnedBadge    string `yaml:"pinned_badge"`
	PostCountStat  string `yaml:"post_count_stat"`
	FollowerStat   string `yaml:"follower_stat"`

	// Post detail view.
	PostDetail    string   `yaml:"post_detail"`
	Caption       string   `yaml:"caption"`
	VideoMarker   string   `yaml:"video_marker"`
	ImageProbes   []string `yaml:"image_probes"`
	PlaceholderRe string   `yaml:"placeholder_re"`

	// Comment surface.
	CommentBox    string `yaml:"comment_box"`
	CommentSubmit string `yaml:"comment_submit"`
	CommentThread string `yaml:"comment_thread"`

	// MediaURLRe filters network responses down to the post's media
	// resource during the capture window.
	MediaURLRe string `yaml:"media_url_re"`
}

// DefaultBrowserConfig returns driver defaults.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		Headless:             true,
		NavigationTimeoutSec: 30,
		ElementTimeoutSec:    10,
		Site: SiteConfig{
			UsernameField:   `input[name="username"]`,
			PasswordField:   `input[name="password"]`,
			LoginSubmit:     `button[type="submit"]`,
			AuthedMarker:    `nav [aria-label="Home"]`,
			LoginMarker:     `form[id="loginForm"]`,
			CookieDismiss:   `[role="dialog"] button.cookie-accept`,
			SaveInfoDismiss: `[role="dialog"] button.not-now`,
			NotifDismiss:    `[role="dialog"] button.notif-later`,
			PrivateMarker:   `[data-private="true"]`,
			PostLink:        `article a[href*="/p/"]`,
			PinnedBadge:     `svg[aria-label="Pinned"]`,
			PostCountStat:   `header [data-stat="posts"]`,
			FollowerStat:    `header [data-stat="followers"]`,
			PostDetail:      `[role="dialog"] article, main article`,
			Caption:         `article h1`,
			VideoMarker:     `video, [aria-label="Video unavailable"]`,
			ImageProbes: []string{
				`article [role="presentation"] img[srcset]`,
				`article img[decoding="sync"]`,
				`article img`,
			},
			PlaceholderRe: `(?i)(placeholder|blank\.|spacer)`,
			CommentBox:    `form textarea[aria-label="Add a comment"]`,
			CommentSubmit: `form [role="button"][type="submit"], form button[type="submit"]`,
			CommentThread: `ul[role="list"]`,
			MediaURLRe:    `\.(mp4|m3u8)(\?|$)`,
		},
	}
}
