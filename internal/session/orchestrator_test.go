package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"engagemon/internal/ai"
	"engagemon/internal/config"
	"engagemon/internal/driver"
	"engagemon/internal/humanoid"
	"engagemon/internal/store"
)

type fakeElement struct {
	text     string
	attrs    map[string]string
	visible  bool
	disabled bool
	clicks   int
	focused  int
}

func (e *fakeElement) Text() (string, error) { return e.text, nil }

func (e *fakeElement) Attribute(name string) (*string, error) {
	if v, ok := e.attrs[name]; ok {
		return &v, nil
	}
	return nil, nil
}

func (e *fakeElement) Visible() (bool, error)  { return e.visible, nil }
func (e *fakeElement) Disabled() (bool, error) { return e.disabled, nil }
func (e *fakeElement) Focus() error            { e.focused++; return nil }
func (e *fakeElement) Click() error            { e.clicks++; return nil }
func (e *fakeElement) Point() (float64, float64, error) {
	return 320, 240, nil
}
func (e *fakeElement) ScrollIntoView() error { return nil }

// fakeSession scripts the page: selectors map to probe results, wait results
// and element lists. It doubles as the behavior engine's input surface, so
// typed text lands in `typed` exactly as a real page would commit it.
type fakeSession struct {
	probes   map[string]driver.ProbeResult
	probeSeq map[string][]driver.ProbeResult // consumed first, in order
	waits    map[string]driver.Element
	elements map[string][]driver.Element
	capture  *driver.Capture

	navigated   []string
	screenshots []string
	typed       []string
	moves       int

	hasState bool
	saved    int
	restored int
	closed   bool
}

var _ driver.Session = (*fakeSession)(nil)

func newFakeSession() *fakeSession {
	return &fakeSession{
		probes:   map[string]driver.ProbeResult{},
		probeSeq: map[string][]driver.ProbeResult{},
		waits:    map[string]driver.Element{},
		elements: map[string][]driver.Element{},
	}
}

func (s *fakeSession) Navigate(_ context.Context, url string) error {
	s.navigated = append(s.navigated, url)
	return nil
}

func (s *fakeSession) Probe(sel string) (driver.ProbeResult, error) {
	if seq := s.probeSeq[sel]; len(seq) > 0 {
		r := seq[0]
		s.probeSeq[sel] = seq[1:]
		return r, nil
	}
	if r, ok := s.probes[sel]; ok {
		return r, nil
	}
	return driver.NotFound(), nil
}

func (s *fakeSession) WaitVisible(_ context.Context, sel string, _ time.Duration) (driver.Element, error) {
	if el, ok := s.waits[sel]; ok {
		return el, nil
	}
	return nil, fmt.Errorf("no visible match for %s", sel)
}

func (s *fakeSession) Elements(sel string) ([]driver.Element, error) {
	return s.elements[sel], nil
}

func (s *fakeSession) InsertText(text string) error {
	s.typed = append(s.typed, text)
	return nil
}

func (s *fakeSession) Backspace() error {
	if len(s.typed) > 0 {
		s.typed = s.typed[:len(s.typed)-1]
	}
	return nil
}

func (s *fakeSession) MouseMove(_, _ float64) error { s.moves++; return nil }
func (s *fakeSession) Viewport() (int, int)         { return 1280, 800 }

func (s *fakeSession) Screenshot(path string) error {
	s.screenshots = append(s.screenshots, path)
	return nil
}

func (s *fakeSession) OpenCapture(func(string) bool) (*driver.Capture, error) {
	if s.capture == nil {
		s.capture = driver.NewCapture(nil)
	}
	return s.capture, nil
}

func (s *fakeSession) URL() string { return "" }

func (s *fakeSession) SaveState() error    { s.saved++; return nil }
func (s *fakeSession) RestoreState() error { s.restored++; return nil }
func (s *fakeSession) HasState() bool      { return s.hasState }
func (s *fakeSession) Close() error        { s.closed = true; return nil }

func (s *fakeSession) committed() string { return strings.Join(s.typed, "") }

type fakeGen struct {
	comment string
	err     error
	got     []ai.Request
}

func (g *fakeGen) Comment(_ context.Context, req ai.Request) (string, error) {
	g.got = append(g.got, req)
	return g.comment, g.err
}

func fastBehavior() config.BehaviorConfig {
	return config.BehaviorConfig{
		MouseStepsMin: 1,
		MouseStepsMax: 1,
		MouseJitterPx: 2,
	}
}

type fixture struct {
	sess    *fakeSession
	gen     *fakeGen
	orc     *Orchestrator
	site    config.SiteConfig
	logPath string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	sess := newFakeSession()
	gen := &fakeGen{comment: "Gorgeous light in this one"}
	logPath := filepath.Join(dir, "interactions.csv")
	ilog, err := store.OpenInteractionLog(logPath)
	require.NoError(t, err)

	browser := config.DefaultBrowserConfig()
	browser.Site.BaseURL = "https://site.example"
	browser.Site.LoginURL = "https://site.example/accounts/login/"
	behave := fastBehavior()

	engine := humanoid.New(sess, humanoid.NewPauseGate(), behave, zap.NewNop()).
		WithRand(rand.New(rand.NewSource(7)))

	acct := config.AccountConfig{
		Username:   "ember_k",
		Password:   "hunter2",
		PromptHint: "warm, one sentence",
		Targets:    []string{"paws_of_oslo"},
	}
	orc := New(sess, engine, gen, ilog, acct, browser, behave, dir, zap.NewNop())

	return &fixture{sess: sess, gen: gen, orc: orc, site: browser.Site, logPath: logPath}
}

func notPinnedSel(site config.SiteConfig) string {
	return fmt.Sprintf("%s:not(:has(%s))", site.PostLink, site.PinnedBadge)
}

// wireHappyPost scripts a public profile with one fresh image post and a
// working comment surface.
func (f *fixture) wireHappyPost() (post, box, submit *fakeElement) {
	post = &fakeElement{visible: true}
	f.sess.elements[f.site.PostLink] = []driver.Element{post}
	f.sess.elements[notPinnedSel(f.site)] = []driver.Element{post}
	f.sess.waits[f.site.PostDetail] = &fakeElement{visible: true}

	f.sess.probes[f.site.Caption] = driver.Found(&fakeElement{text: " Sunset at the pier \n"})
	img := &fakeElement{visible: true, attrs: map[string]string{"src": "https://cdn.example/p1.jpg"}}
	f.sess.elements[f.site.ImageProbes[0]] = []driver.Element{img}

	box = &fakeElement{visible: true}
	f.sess.probes[f.site.CommentBox] = driver.Found(box)
	submit = &fakeElement{visible: true}
	f.sess.waits[f.site.CommentSubmit] = submit
	return post, box, submit
}

func TestRunTaskSuccess(t *testing.T) {
	f := newFixture(t)
	post, _, submit := f.wireHappyPost()
	thread := &fakeElement{text: "ember_k Gorgeous light in this one"}
	f.sess.elements[f.site.CommentThread] = []driver.Element{thread}

	res := f.orc.RunTask(context.Background(), "paws_of_oslo", "dog photos")
	require.Equal(t, Success, res)

	require.Equal(t, 1, post.clicks)
	require.Equal(t, 1, submit.clicks)
	require.Equal(t, "Gorgeous light in this one", f.sess.committed())

	require.Len(t, f.gen.got, 1)
	req := f.gen.got[0]
	require.Equal(t, "Sunset at the pier", req.Caption)
	require.Equal(t, "paws_of_oslo", req.Target)
	require.Equal(t, "dog photos", req.Hint)
	require.Equal(t, "https://cdn.example/p1.jpg", req.ImageURL)
	require.Empty(t, req.VideoURL)

	data, err := os.ReadFile(f.logPath)
	require.NoError(t, err)
	require.Contains(t, string(data), "ember_k,paws_of_oslo,comment,Gorgeous light in this one")
}

func TestRunTaskUnverifiableSubmissionStillSucceeds(t *testing.T) {
	f := newFixture(t)
	f.wireHappyPost()
	// No comment thread scripted: verification finds nothing.

	res := f.orc.RunTask(context.Background(), "paws_of_oslo", "")
	require.Equal(t, Success, res)

	data, err := os.ReadFile(f.logPath)
	require.NoError(t, err)
	require.Contains(t, string(data), "paws_of_oslo")
}

func TestRunTaskVideoUsesCapturedStream(t *testing.T) {
	f := newFixture(t)
	f.wireHappyPost()
	f.sess.probes[f.site.VideoMarker] = driver.Found(&fakeElement{visible: true})
	f.sess.capture = driver.NewCapture(nil)
	f.sess.capture.Offer("https://cdn.example/clip.mp4")

	res := f.orc.RunTask(context.Background(), "paws_of_oslo", "")
	require.Equal(t, Success, res)

	require.Len(t, f.gen.got, 1)
	require.Equal(t, "https://cdn.example/clip.mp4", f.gen.got[0].VideoURL)
	require.Empty(t, f.gen.got[0].ImageURL)
}

func TestRunTaskPrivateProfileSkips(t *testing.T) {
	f := newFixture(t)
	f.sess.probes[f.site.PrivateMarker] = driver.Found(&fakeElement{visible: true})

	res := f.orc.RunTask(context.Background(), "paws_of_oslo", "")
	require.Equal(t, Skipped, res)
	require.Empty(t, f.gen.got)
}

func TestRunTaskNoPostsSkips(t *testing.T) {
	f := newFixture(t)

	res := f.orc.RunTask(context.Background(), "paws_of_oslo", "")
	require.Equal(t, Skipped, res)
	require.Len(t, f.sess.screenshots, 1)
	require.Contains(t, f.sess.screenshots[0], "no_posts_paws_of_oslo")
}

func TestRunTaskOnlyPinnedSkips(t *testing.T) {
	f := newFixture(t)
	pinned := &fakeElement{visible: true}
	f.sess.elements[f.site.PostLink] = []driver.Element{pinned}
	// The non-pinned filter matches nothing.

	res := f.orc.RunTask(context.Background(), "paws_of_oslo", "")
	require.Equal(t, Skipped, res)
	require.Equal(t, 0, pinned.clicks)
}

func TestRunTaskNoCommentBoxSkips(t *testing.T) {
	f := newFixture(t)
	f.wireHappyPost()
	delete(f.sess.probes, f.site.CommentBox)

	res := f.orc.RunTask(context.Background(), "paws_of_oslo", "")
	require.Equal(t, Skipped, res)
	require.Len(t, f.gen.got, 1, "comment is generated before the box probe")

	var found bool
	for _, s := range f.sess.screenshots {
		if strings.Contains(s, "no_comment_box_") {
			found = true
		}
	}
	require.True(t, found)
}

func TestRunTaskSubmitDisabledFails(t *testing.T) {
	f := newFixture(t)
	_, _, submit := f.wireHappyPost()
	submit.disabled = true

	res := f.orc.RunTask(context.Background(), "paws_of_oslo", "")
	require.Equal(t, Failed, res)
	require.Equal(t, 0, submit.clicks)

	data, err := os.ReadFile(f.logPath)
	require.True(t, os.IsNotExist(err) || len(data) == 0, "failed task must not be logged as an interaction")
}

func TestRunTaskGeneratorFailureFails(t *testing.T) {
	f := newFixture(t)
	f.wireHappyPost()
	f.gen.err = errors.New("model unavailable")

	res := f.orc.RunTask(context.Background(), "paws_of_oslo", "")
	require.Equal(t, Failed, res)
	require.Empty(t, f.sess.committed(), "nothing typed when generation fails")
}

func TestInitAlreadyAuthenticated(t *testing.T) {
	f := newFixture(t)
	f.sess.probes[f.site.AuthedMarker] = driver.Found(&fakeElement{visible: true})

	require.NoError(t, f.orc.Init(context.Background()))
	require.Equal(t, []string{f.site.BaseURL}, f.sess.navigated)
	require.Equal(t, 1, f.sess.saved, "fresh session state persisted")
	require.Equal(t, 0, f.sess.restored)
}

func TestInitRestoresPersistedState(t *testing.T) {
	f := newFixture(t)
	f.sess.hasState = true
	f.sess.probes[f.site.AuthedMarker] = driver.Found(&fakeElement{visible: true})

	require.NoError(t, f.orc.Init(context.Background()))
	require.Equal(t, 1, f.sess.restored)
	require.Equal(t, 0, f.sess.saved, "existing state not rewritten")
}

func TestInitLoginFlow(t *testing.T) {
	f := newFixture(t)
	f.sess.probes[f.site.LoginMarker] = driver.Found(&fakeElement{visible: true})
	user := &fakeElement{visible: true}
	pass := &fakeElement{visible: true}
	submit := &fakeElement{visible: true}
	f.sess.waits[f.site.UsernameField] = user
	f.sess.waits[f.site.PasswordField] = pass
	f.sess.waits[f.site.LoginSubmit] = submit
	f.sess.waits[f.site.AuthedMarker] = &fakeElement{visible: true}

	require.NoError(t, f.orc.Init(context.Background()))

	require.Equal(t, "ember_khunter2", f.sess.committed())
	require.Equal(t, 1, user.clicks)
	require.Equal(t, 1, pass.clicks)
	require.Equal(t, 1, submit.clicks)
	// Already on the login form, so only the home navigation happened.
	require.Equal(t, []string{f.site.BaseURL}, f.sess.navigated)
}

func TestInitLoginFormNeverAppears(t *testing.T) {
	f := newFixture(t)
	// No markers, no fields: cold page that never renders a login form.

	err := f.orc.Init(context.Background())
	require.ErrorIs(t, err, ErrLoginFailed)
	require.Equal(t, []string{f.site.BaseURL, f.site.LoginURL}, f.sess.navigated)
	require.Len(t, f.sess.screenshots, 1)
	require.Contains(t, f.sess.screenshots[0], "login_no_username_field")
}

func TestInitFastPathIntoFeed(t *testing.T) {
	f := newFixture(t)
	// Unauthenticated on arrival, but the site fast-paths into the feed:
	// the username field never renders, and by the time login re-checks,
	// the authenticated marker is there.
	f.sess.probeSeq[f.site.AuthedMarker] = []driver.ProbeResult{driver.NotFound()}
	f.sess.probes[f.site.AuthedMarker] = driver.Found(&fakeElement{visible: true})
	f.sess.probes[f.site.LoginMarker] = driver.Found(&fakeElement{visible: true})

	require.NoError(t, f.orc.Init(context.Background()))
	require.Empty(t, f.sess.committed(), "no credentials typed on the fast path")
	require.Empty(t, f.sess.screenshots)
}

func TestFetchSnapshot(t *testing.T) {
	f := newFixture(t)
	f.sess.waits[f.site.PostCountStat] = &fakeElement{text: "1,234 posts"}
	f.sess.probes[f.site.FollowerStat] = driver.Found(&fakeElement{text: "12.5k followers"})

	snap, err := f.orc.FetchSnapshot(context.Background(), "paws_of_oslo")
	require.NoError(t, err)
	require.Equal(t, store.Snapshot{PostCount: 1234, FollowerCount: 12500}, snap)
	require.Equal(t, []string{"https://site.example/paws_of_oslo/"}, f.sess.navigated)
}

func TestFetchSnapshotMissingFollowerStat(t *testing.T) {
	f := newFixture(t)
	f.sess.waits[f.site.PostCountStat] = &fakeElement{text: "87"}

	snap, err := f.orc.FetchSnapshot(context.Background(), "paws_of_oslo")
	require.NoError(t, err)
	require.Equal(t, store.Snapshot{PostCount: 87}, snap)
}

func TestFetchSnapshotBadCount(t *testing.T) {
	f := newFixture(t)
	f.sess.waits[f.site.PostCountStat] = &fakeElement{text: "—"}

	_, err := f.orc.FetchSnapshot(context.Background(), "paws_of_oslo")
	require.Error(t, err)
}

func TestParseCount(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "532", want: 532},
		{in: "1,234", want: 1234},
		{in: "12.5k", want: 12500},
		{in: "1.2m", want: 1200000},
		{in: "87 posts", want: 87},
		{in: " 4,021 Followers ", want: 4021},
		{in: "0", want: 0},
		{in: "", wantErr: true},
		{in: "abc", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseCount(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestResultStrings(t *testing.T) {
	require.Equal(t, "success", Success.String())
	require.Equal(t, "skipped", Skipped.String())
	require.Equal(t, "failed", Failed.String())
	require.True(t, Failed.Retryable())
	require.False(t, Skipped.Retryable())
	require.False(t, Success.Retryable())
}
