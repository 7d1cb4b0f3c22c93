// Package session drives one account through login, navigation, content
// extraction, comment generation and submission. Every interaction goes
// through the behavior engine; every per-task error is converted to the
// tri-state Result at this package's boundary. Only login and bootstrap
// errors escape as errors.
package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"engagemon/internal/ai"
	"engagemon/internal/config"
	"engagemon/internal/driver"
	"engagemon/internal/humanoid"
	"engagemon/internal/logging"
	"engagemon/internal/store"
)

// ErrLoginFailed marks a fatal authentication failure. The account is
// unusable for this cycle; the caller must not retry within the cycle.
var ErrLoginFailed = errors.New("login failed")

// errSkip marks a non-fatal early exit inside a task.
var errSkip = errors.New("task skipped")

// state tracks the orchestrator through its lifecycle.
type state int

const (
	stateInit state = iota
	stateCheckingLogin
	stateLoggingIn
	stateReady
	stateTaskRunning
	stateClosed
)

// Orchestrator runs tasks for one account on one browser session.
type Orchestrator struct {
	sess    driver.Session
	engine  *humanoid.Engine
	gen     ai.Generator
	ilog    *store.InteractionLog
	acct    config.AccountConfig
	site    config.SiteConfig
	behave  config.BehaviorConfig
	shotDir string
	log     *zap.Logger

	state       state
	elemTimeout time.Duration
	placeholder *regexp.Regexp
}

// New wires an orchestrator. The session must already present the account's
// fingerprint; the engine must be bound to the same session surface.
func New(sess driver.Session, engine *humanoid.Engine, gen ai.Generator, ilog *store.InteractionLog,
	acct config.AccountConfig, browser config.BrowserConfig, behave config.BehaviorConfig,
	shotDir string, log *zap.Logger) *Orchestrator {

	elemTimeout := time.Duration(browser.ElementTimeoutSec * float64(time.Second))
	if elemTimeout <= 0 {
		elemTimeout = 10 * time.Second
	}
	placeholder := regexp.MustCompile(browser.Site.PlaceholderRe)

	return &Orchestrator{
		sess:        sess,
		engine:      engine,
		gen:         gen,
		ilog:        ilog,
		acct:        acct,
		site:        browser.Site,
		behave:      behave,
		shotDir:     shotDir,
		log:         log.With(zap.String("account", acct.Username)),
		elemTimeout: elemTimeout,
		placeholder: placeholder,
	}
}

// Init brings the session to the Ready state: restores persisted login state
// if present, navigates home, dismisses overlays, and logs in when the page
// shows no authenticated marker.
func (o *Orchestrator) Init(ctx context.Context) error {
	o.state = stateCheckingLogin

	hadState := o.sess.HasState()
	if hadState {
		if err := o.sess.RestoreState(); err != nil {
			o.log.Warn("session state restore failed, continuing fresh", zap.Error(err))
			hadState = false
		}
	}

	if err := o.sess.Navigate(ctx, o.site.BaseURL); err != nil {
		return fmt.Errorf("navigate home: %w", err)
	}
	o.dismissOverlays(ctx)

	authed, err := o.probeFound(o.site.AuthedMarker)
	if err != nil {
		return err
	}
	if !authed {
		// Login-form marker present or markers inconclusive: either way
		// the authoritative probe is attempting the login flow itself.
		o.state = stateLoggingIn
		if err := o.login(ctx); err != nil {
			return err
		}
	}

	if !hadState {
		if err := o.sess.SaveState(); err != nil {
			o.log.Warn("persisting session state failed", zap.Error(err))
		}
	}
	o.state = stateReady
	o.log.Info("session ready")
	return nil
}

// login walks the credential flow. Fatal on a missing username field or a
// missing post-submit authenticated marker; both capture diagnostics first.
func (o *Orchestrator) login(ctx context.Context) error {
	onLogin, err := o.probeFound(o.site.LoginMarker)
	if err != nil {
		return err
	}
	if !onLogin {
		if err := o.sess.Navigate(ctx, o.site.LoginURL); err != nil {
			return fmt.Errorf("navigate login: %w", err)
		}
		o.dismissOverlays(ctx)
	}

	userField, err := o.sess.WaitVisible(ctx, o.site.UsernameField, o.elemTimeout)
	if err != nil {
		// The site sometimes fast-paths straight into the feed; an
		// authenticated marker appearing in the interim means we are
		// already logged in.
		if authed, perr := o.probeFound(o.site.AuthedMarker); perr == nil && authed {
			o.log.Info("already authenticated, skipping login")
			return nil
		}
		o.screenshot("login_no_username_field")
		return fmt.Errorf("%w: username field never appeared: %v", ErrLoginFailed, err)
	}

	typing := humanoid.TypingOpts{
		Delay:       o.behave.TypingDelay,
		NoticeDelay: o.behave.TypoNoticeDelay,
		TypoChance:  o.behave.UsernameTypoChance,
	}
	if err := o.engine.HesitateAndClick(ctx, userField); err != nil {
		return fmt.Errorf("focus username: %w", err)
	}
	if err := o.engine.NaturalTyping(ctx, userField, o.acct.Username, typing); err != nil {
		return fmt.Errorf("type username: %w", err)
	}
	logging.Action(o.log, "typed username")

	passField, err := o.sess.WaitVisible(ctx, o.site.PasswordField, o.elemTimeout)
	if err != nil {
		o.screenshot("login_no_password_field")
		return fmt.Errorf("%w: password field never appeared: %v", ErrLoginFailed, err)
	}
	// Passwords come from muscle memory: fewer typos, same rhythm.
	typing.TypoChance = o.behave.PasswordTypoChance
	if err := o.engine.HesitateAndClick(ctx, passField); err != nil {
		return fmt.Errorf("focus password: %w", err)
	}
	if err := o.engine.NaturalTyping(ctx, passField, o.acct.Password, typing); err != nil {
		return fmt.Errorf("type password: %w", err)
	}
	logging.Action(o.log, "typed password")

	submit, err := o.sess.WaitVisible(ctx, o.site.LoginSubmit, o.elemTimeout)
	if err != nil {
		o.screenshot("login_no_submit")
		return fmt.Errorf("%w: submit control never appeared: %v", ErrLoginFailed, err)
	}
	if err := o.engine.HesitateAndClick(ctx, submit); err != nil {
		return fmt.Errorf("submit login: %w", err)
	}
	logging.Action(o.log, "submitted login")

	o.dismissOne(ctx, o.site.SaveInfoDismiss)

	if _, err := o.sess.WaitVisible(ctx, o.site.AuthedMarker, 3*o.elemTimeout); err != nil {
		o.screenshot("login_timeout")
		return fmt.Errorf("%w: no authenticated marker after submit: %v", ErrLoginFailed, err)
	}
	logging.Success(o.log, "logged in")
	return nil
}

// RunTask reacts to target's newest post. All task-path errors are converted
// to the tri-state Result here; diagnostics are captured on every failure.
func (o *Orchestrator) RunTask(ctx context.Context, target, hint string) Result {
	o.state = stateTaskRunning
	defer func() { o.state = stateReady }()

	err := o.runTask(ctx, target, hint)
	switch {
	case err == nil:
		logging.Success(o.log, "task complete", zap.String("target", target))
		return Success
	case errors.Is(err, errSkip):
		o.log.Info("task skipped", zap.String("target", target), zap.String("reason", err.Error()))
		return Skipped
	default:
		o.log.Error("task failed", zap.String("target", target), zap.Error(err))
		o.screenshot("task_failed_" + target)
		return Failed
	}
}

func (o *Orchestrator) runTask(ctx context.Context, target, hint string) error {
	if err := o.sess.Navigate(ctx, o.profileURL(target)); err != nil {
		return fmt.Errorf("navigate profile: %w", err)
	}
	o.dismissOverlays(ctx)

	if private, err := o.probeFound(o.site.PrivateMarker); err != nil {
		return err
	} else if private {
		return fmt.Errorf("%w: profile %s is private", errSkip, target)
	}

	post, err := o.newestCandidate(ctx, target)
	if err != nil {
		return err
	}

	// Capture is open from "post opened" until task end, first match only.
	mediaRe := regexp.MustCompile(o.site.MediaURLRe)
	capture, err := o.sess.OpenCapture(func(url string) bool { return mediaRe.MatchString(url) })
	if err != nil {
		return fmt.Errorf("open media capture: %w", err)
	}
	defer capture.Close()

	if err := o.engine.HesitateAndClick(ctx, post); err != nil {
		return fmt.Errorf("open post: %w", err)
	}
	logging.Action(o.log, "opened post", zap.String("target", target))
	if _, err := o.sess.WaitVisible(ctx, o.site.PostDetail, o.elemTimeout); err != nil {
		return fmt.Errorf("post detail never appeared: %w", err)
	}

	caption := o.extractCaption()
	imageURL, videoURL := o.extractMedia(capture, target)

	// Idle pointer drift while the post is on screen.
	if err := o.engine.MoveMouseRandomly(ctx); err != nil {
		return err
	}
	if err := o.engine.RandomDelay(ctx, o.behave.ReviewPause.MinDuration(), o.behave.ReviewPause.MaxDuration()); err != nil {
		return err
	}
	comment, err := o.gen.Comment(ctx, ai.Request{
		Caption:  caption,
		Target:   target,
		Hint:     hint,
		ImageURL: imageURL,
		VideoURL: videoURL,
	})
	if err != nil {
		return fmt.Errorf("generate comment: %w", err)
	}

	res, err := o.sess.Probe(o.site.CommentBox)
	if err != nil {
		return err
	}
	box, ok := res.Element()
	if !ok {
		o.screenshot("no_comment_box_" + target)
		return fmt.Errorf("%w: no comment surface on %s", errSkip, target)
	}

	if err := o.engine.HesitateAndClick(ctx, box); err != nil {
		return fmt.Errorf("focus comment box: %w", err)
	}
	typing := humanoid.TypingOpts{
		Delay:       o.behave.TypingDelay,
		NoticeDelay: o.behave.TypoNoticeDelay,
		TypoChance:  o.behave.CommentTypoChance,
	}
	if err := o.engine.NaturalTyping(ctx, box, comment, typing); err != nil {
		return fmt.Errorf("type comment: %w", err)
	}
	logging.Action(o.log, "typed comment", zap.String("target", target))

	submit, err := o.sess.WaitVisible(ctx, o.site.CommentSubmit, o.elemTimeout)
	if err != nil {
		o.screenshot("no_submit_" + target)
		return fmt.Errorf("submit control never appeared: %w", err)
	}
	if disabled, err := submit.Disabled(); err == nil && disabled {
		o.screenshot("submit_disabled_" + target)
		return fmt.Errorf("submit control is disabled")
	}
	if err := o.engine.HesitateAndClick(ctx, submit); err != nil {
		return fmt.Errorf("submit comment: %w", err)
	}
	logging.Action(o.log, "submitted comment", zap.String("target", target))

	wait := o.behave.PostSubmitWait
	if err := o.engine.RandomizedWait(ctx, wait.MinDuration(), wait.MaxDuration()-wait.MinDuration()); err != nil {
		return err
	}
	// Verification is diagnostic only: an unverifiable submission is still
	// logged and reported as success.
	if o.verifyComment(comment) {
		o.log.Info("comment visible in thread", zap.String("target", target))
	} else {
		o.log.Warn("comment not verifiable in thread", zap.String("target", target))
	}

	if err := o.ilog.Append(store.InteractionEntry{
		Time:    time.Now(),
		Account: o.acct.Username,
		Target:  target,
		Action:  "comment",
		Comment: comment,
	}); err != nil {
		o.log.Warn("interaction log append failed", zap.Error(err))
	}
	return nil
}

// newestCandidate returns the most recent non-pinned post link, or a skip
// error distinguishing "no posts at all" from "only pinned posts" for the
// logs.
func (o *Orchestrator) newestCandidate(ctx context.Context, target string) (driver.Element, error) {
	all, err := o.sess.Elements(o.site.PostLink)
	if err != nil {
		return nil, fmt.Errorf("enumerate posts: %w", err)
	}
	notPinned := fmt.Sprintf("%s:not(:has(%s))", o.site.PostLink, o.site.PinnedBadge)
	candidates, err := o.sess.Elements(notPinned)
	if err != nil {
		return nil, fmt.Errorf("enumerate non-pinned posts: %w", err)
	}

	if len(candidates) == 0 {
		o.screenshot("no_posts_" + target)
		if len(all) > 0 {
			return nil, fmt.Errorf("%w: only pinned posts on %s", errSkip, target)
		}
		return nil, fmt.Errorf("%w: no posts on %s", errSkip, target)
	}

	post := candidates[0]
	if err := post.ScrollIntoView(); err != nil {
		return nil, fmt.Errorf("scroll to post: %w", err)
	}
	return post, nil
}

// extractCaption reads the caption text. Absence is not an error.
func (o *Orchestrator) extractCaption() string {
	res, err := o.sess.Probe(o.site.Caption)
	if err != nil {
		return ""
	}
	el, ok := res.Element()
	if !ok {
		return ""
	}
	text, err := el.Text()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

// extractMedia classifies the post. A video marker wins and uses the captured
// stream URL if one arrived; otherwise the image probes run in order, taking
// the first visible candidate whose source is not a placeholder.
func (o *Orchestrator) extractMedia(capture *driver.Capture, target string) (imageURL, videoURL string) {
	if isVideo, err := o.probeFound(o.site.VideoMarker); err == nil && isVideo {
		url, ok := capture.First()
		if !ok {
			o.log.Info("video post but no media response captured", zap.String("target", target))
			return "", ""
		}
		return "", url
	}

	for _, sel := range o.site.ImageProbes {
		els, err := o.sess.Elements(sel)
		if err != nil {
			continue
		}
		for _, el := range els {
			if visible, err := el.Visible(); err != nil || !visible {
				continue
			}
			src, err := el.Attribute("src")
			if err != nil || src == nil || *src == "" {
				continue
			}
			if o.placeholder.MatchString(*src) {
				continue
			}
			return *src, ""
		}
	}
	o.log.Info("no usable media found", zap.String("target", target))
	return "", ""
}

// verifyComment best-effort checks the submitted text is now in the thread.
func (o *Orchestrator) verifyComment(comment string) bool {
	els, err := o.sess.Elements(o.site.CommentThread)
	if err != nil {
		return false
	}
	needle := comment
	if len(needle) > 40 {
		needle = needle[:40]
	}
	for _, el := range els {
		text, err := el.Text()
		if err == nil && strings.Contains(text, needle) {
			return true
		}
	}
	return false
}

// FetchSnapshot reads target's public counters. Used by the monitoring
// session's read path; any failure means "no result" for this cycle.
func (o *Orchestrator) FetchSnapshot(ctx context.Context, target string) (store.Snapshot, error) {
	if err := o.sess.Navigate(ctx, o.profileURL(target)); err != nil {
		return store.Snapshot{}, fmt.Errorf("navigate profile: %w", err)
	}

	postEl, err := o.sess.WaitVisible(ctx, o.site.PostCountStat, o.elemTimeout)
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("post count stat: %w", err)
	}
	postText, err := postEl.Text()
	if err != nil {
		return store.Snapshot{}, err
	}
	posts, err := ParseCount(postText)
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("post count %q: %w", postText, err)
	}

	followers := 0
	if res, err := o.sess.Probe(o.site.FollowerStat); err == nil {
		if el, ok := res.Element(); ok {
			if text, err := el.Text(); err == nil {
				if n, err := ParseCount(text); err == nil {
					followers = n
				}
			}
		}
	}
	return store.Snapshot{PostCount: posts, FollowerCount: followers}, nil
}

// Close releases the browser session.
func (o *Orchestrator) Close() error {
	o.state = stateClosed
	return o.sess.Close()
}

// dismissOverlays clears the transient prompts that sit over fresh pages.
// Each dismissal is best-effort; absence is the normal case.
func (o *Orchestrator) dismissOverlays(ctx context.Context) {
	for _, sel := range []string{o.site.CookieDismiss, o.site.NotifDismiss, o.site.SaveInfoDismiss} {
		o.dismissOne(ctx, sel)
	}
}

func (o *Orchestrator) dismissOne(ctx context.Context, sel string) {
	if sel == "" {
		return
	}
	res, err := o.sess.Probe(sel)
	if err != nil {
		return
	}
	if el, ok := res.Element(); ok {
		if err := o.engine.HesitateAndClick(ctx, el); err == nil {
			logging.Action(o.log, "dismissed overlay", zap.String("selector", sel))
			_ = o.engine.RandomDelay(ctx, 300*time.Millisecond, 900*time.Millisecond)
		}
	}
}

// probeFound reports whether sel has at least one visible match right now.
// Ambiguity counts as found: the marker selectors assert presence, not
// uniqueness.
func (o *Orchestrator) probeFound(sel string) (bool, error) {
	if sel == "" {
		return false, nil
	}
	res, err := o.sess.Probe(sel)
	if err != nil {
		return false, err
	}
	return !res.IsNotFound(), nil
}

func (o *Orchestrator) profileURL(target string) string {
	return strings.TrimRight(o.site.BaseURL, "/") + "/" + target + "/"
}

func (o *Orchestrator) screenshot(kind string) {
	path := filepath.Join(o.shotDir, fmt.Sprintf("%s_%s.png", o.acct.Username, kind))
	if err := o.sess.Screenshot(path); err != nil {
		o.log.Warn("screenshot failed", zap.String("path", path), zap.Error(err))
	}
}

// ParseCount parses humanized counters like "1,234", "12.5k" or "1.2m".
func ParseCount(s string) (int, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	// Keep the leading number; stat elements often append a label.
	if i := strings.IndexFunc(s, func(r rune) bool {
		return !(r >= '0' && r <= '9') && r != '.' && r != ',' && r != 'k' && r != 'm'
	}); i > 0 {
		s = s[:i]
	}
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, fmt.Errorf("no digits")
	}

	mult := 1.0
	switch s[len(s)-1] {
	case 'k':
		mult = 1_000
		s = s[:len(s)-1]
	case 'm':
		mult = 1_000_000
		s = s[:len(s)-1]
	}
	val, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	n := int(val * mult)
	if n < 0 {
		return 0, fmt.Errorf("negative count")
	}
	return n, nil
}
