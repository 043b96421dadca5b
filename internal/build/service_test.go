package build

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katattakd/katsite/internal/config"
	kserrors "github.com/katattakd/katsite/internal/errors"
	"github.com/katattakd/katsite/internal/eventstore"
	"github.com/katattakd/katsite/internal/metrics"
	"github.com/katattakd/katsite/internal/testutil"
)

// site is a throwaway project: sources, plugins and output in separate dirs.
type site struct {
	root    string
	src     string
	out     string
	plugins string
}

func newSite(t *testing.T) *site {
	t.Helper()
	root := t.TempDir()
	s := &site{
		root:    root,
		src:     filepath.Join(root, "src"),
		out:     filepath.Join(root, "public"),
		plugins: filepath.Join(root, "plugins"),
	}
	require.NoError(t, os.MkdirAll(s.src, 0o755))
	require.NoError(t, os.MkdirAll(s.plugins, 0o755))
	return s
}

func (s *site) config(plugins ...string) *config.Config {
	cfg := config.Default()
	cfg.Files.InputGlob = filepath.Join(s.src, "*.md")
	cfg.Files.OutputDir = s.out
	cfg.Hooks.PluginDir = s.plugins
	cfg.ThreadPoolSize = 2
	cfg.Plugins = plugins
	return cfg
}

func (s *site) read(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(s.out, rel))
	require.NoError(t, err)
	return string(data)
}

func quietService(opts ...Option) *Service {
	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithPluginStderr(io.Discard),
	}
	return NewService(append(base, opts...)...)
}

type peakRecorder struct {
	metrics.NoopRecorder
	mu       sync.Mutex
	inFlight int
	peak     int
	outcomes []metrics.BuildOutcomeLabel
}

func (r *peakRecorder) AddJobsInFlight(delta int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inFlight += delta
	if r.inFlight > r.peak {
		r.peak = r.inFlight
	}
}

func (r *peakRecorder) IncBuildOutcome(o metrics.BuildOutcomeLabel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
}

func TestRun_NoPluginsRendersPlainMarkdown(t *testing.T) {
	s := newSite(t)
	testutil.WriteFile(t, s.src, "a.md", "# Hi")
	testutil.WriteFile(t, s.src, "b.md", "plain text")

	rec := &peakRecorder{}
	res, err := quietService(WithRecorder(rec)).Run(context.Background(), s.config())
	require.NoError(t, err)

	assert.Equal(t, BuildStatusSuccess, res.Status)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, 2, res.Files)
	assert.Equal(t, 2, res.Built)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, "<h1>Hi</h1>\n", s.read(t, "a.html"))
	assert.Equal(t, "<p>plain text</p>\n", s.read(t, "b.html"))
	assert.Equal(t, []metrics.BuildOutcomeLabel{metrics.BuildOutcomeSuccess}, rec.outcomes)
}

func TestRun_PreludeFlags(t *testing.T) {
	s := newSite(t)
	testutil.WriteFile(t, s.src, "a.md", "# Hi")
	cfg := s.config()
	cfg.HTML.AppendDoctype = true
	cfg.HTML.AppendViewport = true

	_, err := quietService().Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, doctypePrelude+viewportPrelude+"<h1>Hi</h1>\n", s.read(t, "a.html"))
}

func TestRun_StylesheetLinkedFromEveryPage(t *testing.T) {
	s := newSite(t)
	testutil.WriteFile(t, s.src, "index.md", "# Home")
	testutil.WriteFile(t, s.src, "guide/install.md", "# Install")
	cfg := s.config()
	cfg.Files.InputGlob = filepath.Join(s.src, "**", "*.md")
	cfg.HTML.AppendCSSLink = true
	cfg.HTML.CustomCSS = "body{margin:0}"
	cfg.HTML.CustomHTML = "<link rel=icon href=/favicon.ico>"

	_, err := quietService().Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "body{margin:0}", s.read(t, StylesheetName))
	assert.Equal(t, "<link rel=stylesheet href=style.css><link rel=icon href=/favicon.ico><h1>Home</h1>\n", s.read(t, "index.html"))
	assert.Equal(t, "<link rel=stylesheet href=../style.css><link rel=icon href=/favicon.ico><h1>Install</h1>\n",
		s.read(t, filepath.Join("guide", "install.html")))
}

func TestRun_InlineCSSWritesNoStylesheet(t *testing.T) {
	s := newSite(t)
	testutil.WriteFile(t, s.src, "a.md", "# Hi")
	cfg := s.config()
	cfg.HTML.CustomCSS = "h1{color:red}"

	_, err := quietService().Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "<style>h1{color:red}</style><h1>Hi</h1>\n", s.read(t, "a.html"))
	assert.NoFileExists(t, filepath.Join(s.out, StylesheetName))
}

func TestRun_UncreatableStylesheetIsFatal(t *testing.T) {
	s := newSite(t)
	testutil.WriteFile(t, s.src, "a.md", "# Hi")
	require.NoError(t, os.MkdirAll(filepath.Join(s.out, StylesheetName), 0o755))
	cfg := s.config()
	cfg.HTML.AppendCSSLink = true
	cfg.HTML.CustomCSS = "p{}"

	res, err := quietService().Run(context.Background(), cfg)
	require.Error(t, err)
	assert.Equal(t, kserrors.ExitCantCreate, kserrors.ExitCodeFor(err))
	assert.Equal(t, BuildStatusFailed, res.Status)
	assert.NoFileExists(t, filepath.Join(s.out, "a.html"))
}

func TestRun_FooterPlugin(t *testing.T) {
	s := newSite(t)
	const footer = "<footer>built by katsite</footer>"
	testutil.WritePlugin(t, s.plugins, "footer", testutil.OnHook("html", "cat; printf '%s' '"+footer+"'"))
	for i := range 4 {
		testutil.WriteFile(t, s.src, fmt.Sprintf("page%d.md", i), fmt.Sprintf("# Page %d", i))
	}

	res, err := quietService().Run(context.Background(), s.config("footer"))
	require.NoError(t, err)
	assert.Equal(t, BuildStatusSuccess, res.Status)
	for i := range 4 {
		out := s.read(t, fmt.Sprintf("page%d.html", i))
		assert.True(t, strings.HasSuffix(out, footer), out)
	}
}

func TestRun_ChainOrderFollowsPluginList(t *testing.T) {
	s := newSite(t)
	var names []string
	for i := 1; i <= 3; i++ {
		name := fmt.Sprintf("p%d", i)
		names = append(names, name)
		testutil.WritePlugin(t, s.plugins, name, fmt.Sprintf(`case "$1" in
markdown) cat; printf ' m%d' ;;
html) cat; printf '<!--p%d-->' ;;
esac`, i, i))
	}
	testutil.WriteFile(t, s.src, "b.md", "plain text")

	res, err := quietService().Run(context.Background(), s.config(names...))
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, "<p>plain text m1 m2 m3</p>\n<!--p1--><!--p2--><!--p3-->", s.read(t, "b.html"))
}

func TestRun_MarkdownHookReceivesFilename(t *testing.T) {
	s := newSite(t)
	testutil.WritePlugin(t, s.plugins, "name", testutil.OnHook("markdown", `cat >/dev/null; printf '# %s' "$(basename "$2")"`))
	testutil.WriteFile(t, s.src, "about.md", "ignored")

	_, err := quietService().Run(context.Background(), s.config("name"))
	require.NoError(t, err)
	assert.Equal(t, "<h1>about.md</h1>\n", s.read(t, "about.html"))
}

func TestRun_HTMLHookReceivesSourceFilename(t *testing.T) {
	s := newSite(t)
	testutil.WritePlugin(t, s.plugins, "name", testutil.OnHook("html", `cat >/dev/null; printf '<p>%s</p>' "$(basename "$2")"`))
	testutil.WriteFile(t, s.src, "about.md", "ignored")

	_, err := quietService().Run(context.Background(), s.config("name"))
	require.NoError(t, err)
	assert.Equal(t, "<p>about.md</p>", s.read(t, "about.html"))
}

func TestRun_FailingPluginWarnsAndKeepsBuffer(t *testing.T) {
	s := newSite(t)
	testutil.WritePlugin(t, s.plugins, "broken", testutil.OnHook("html", "cat >/dev/null; echo garbage; exit 3"))
	testutil.WriteFile(t, s.src, "a.md", "# Hi")
	testutil.WriteFile(t, s.src, "b.md", "plain text")

	res, err := quietService().Run(context.Background(), s.config("broken"))
	require.NoError(t, err)
	assert.Equal(t, BuildStatusWarning, res.Status)
	assert.Equal(t, "<h1>Hi</h1>\n", s.read(t, "a.html"))
	assert.Equal(t, "<p>plain text</p>\n", s.read(t, "b.html"))

	require.Len(t, res.Warnings, 2, "one warning per failed invocation")
	for _, w := range res.Warnings {
		assert.Equal(t, "broken", w.Plugin)
		assert.Equal(t, "html", w.Hook)
		assert.Equal(t, 3, w.ExitCode)
	}
}

func TestRun_FailingLifecycleHookIsNotFatal(t *testing.T) {
	s := newSite(t)
	testutil.WritePlugin(t, s.plugins, "flaky", `case "$1" in init|postinit) exit 1 ;; esac; cat`)
	testutil.WriteFile(t, s.src, "a.md", "# Hi")

	res, err := quietService().Run(context.Background(), s.config("flaky"))
	require.NoError(t, err)
	assert.Equal(t, BuildStatusWarning, res.Status)
	assert.Len(t, res.Warnings, 2)
	assert.Equal(t, "<h1>Hi</h1>\n", s.read(t, "a.html"))
}

func TestRun_PostinitSeesEveryOutput(t *testing.T) {
	s := newSite(t)
	state := t.TempDir()
	testutil.WritePlugin(t, s.plugins, "counter", testutil.OnHook("postinit",
		fmt.Sprintf(`ls "$KATSITE_OUTPUT_DIR" | grep -c '\.html$' > %q`, filepath.Join(state, "count"))))
	const files = 7
	for i := range files {
		testutil.WriteFile(t, s.src, fmt.Sprintf("doc%d.md", i), "text")
	}

	_, err := quietService().Run(context.Background(), s.config("counter"))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(state, "count"))
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(files), strings.TrimSpace(string(data)))
}

func TestRun_InitIsJoinedBeforeReturn(t *testing.T) {
	s := newSite(t)
	state := t.TempDir()
	marker := filepath.Join(state, "init-done")
	testutil.WritePlugin(t, s.plugins, "warmup", testutil.OnHook("init", fmt.Sprintf("sleep 0.3; touch %q", marker)))

	_, err := quietService().Run(context.Background(), s.config("warmup"))
	require.NoError(t, err)
	assert.FileExists(t, marker)
}

func TestRun_ConcurrencyBound(t *testing.T) {
	s := newSite(t)
	state := t.TempDir()
	testutil.WritePlugin(t, s.plugins, "hold", testutil.OnHook("markdown", fmt.Sprintf(`
marker=$(mktemp %[1]q/inflight.XXXXXX)
ls %[1]q | grep -c '^inflight\.' >> %[2]q
sleep 0.2
rm -f "$marker"
cat`, state, filepath.Join(t.TempDir(), "observed"))))
	const files = 6
	for i := range files {
		testutil.WriteFile(t, s.src, fmt.Sprintf("f%d.md", i), "x")
	}

	cfg := s.config("hold")
	cfg.ThreadPoolSize = 2
	rec := &peakRecorder{}
	res, err := quietService(WithRecorder(rec)).Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, files, res.Built)

	assert.LessOrEqual(t, rec.peak, 2)
	assert.GreaterOrEqual(t, rec.peak, 1)
	assert.Equal(t, 0, rec.inFlight)
}

func TestRun_ConcurrencyBoundObservedByPlugin(t *testing.T) {
	s := newSite(t)
	state := t.TempDir()
	observed := filepath.Join(t.TempDir(), "observed")
	testutil.WritePlugin(t, s.plugins, "hold", testutil.OnHook("markdown", fmt.Sprintf(`
marker=$(mktemp %[1]q/inflight.XXXXXX)
ls %[1]q | grep -c '^inflight\.' >> %[2]q
sleep 0.2
rm -f "$marker"
cat`, state, observed)))
	const files = 6
	for i := range files {
		testutil.WriteFile(t, s.src, fmt.Sprintf("f%d.md", i), "x")
	}
	cfg := s.config("hold")
	cfg.ThreadPoolSize = 3

	_, err := quietService().Run(context.Background(), cfg)
	require.NoError(t, err)

	data, err := os.ReadFile(observed)
	require.NoError(t, err)
	lines := strings.Fields(string(data))
	require.Len(t, lines, files)
	for _, l := range lines {
		n, err := strconv.Atoi(l)
		require.NoError(t, err)
		assert.LessOrEqual(t, n, 3)
	}
}

func TestRun_NestedOutputMirrorsInput(t *testing.T) {
	s := newSite(t)
	testutil.WriteFile(t, s.src, "guide/install.md", "# Install")
	testutil.WriteFile(t, s.src, "index.md", "# Home")
	cfg := s.config()
	cfg.Files.InputGlob = filepath.Join(s.src, "**", "*.md")

	res, err := quietService().Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Built)
	assert.Equal(t, "<h1>Install</h1>\n", s.read(t, filepath.Join("guide", "install.html")))
	assert.Equal(t, "<h1>Home</h1>\n", s.read(t, "index.html"))
}

func invalidUTF8Site(t *testing.T) *site {
	s := newSite(t)
	testutil.WritePlugin(t, s.plugins, "mangle", testutil.OnHook("markdown", `case "$2" in
*bad.md) cat >/dev/null; printf 'broken \377 bytes' ;;
*) cat ;;
esac`))
	testutil.WriteFile(t, s.src, "bad.md", "fine before the plugin")
	testutil.WriteFile(t, s.src, "good.md", "# Good")
	return s
}

func TestRun_InvalidUTF8Skip(t *testing.T) {
	s := invalidUTF8Site(t)
	cfg := s.config("mangle")
	cfg.Markdown.InvalidUTF8 = config.InvalidUTF8Skip

	res, err := quietService().Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, BuildStatusWarning, res.Status)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1, res.Built)
	assert.NoFileExists(t, filepath.Join(s.out, "bad.html"))
	assert.Equal(t, "<h1>Good</h1>\n", s.read(t, "good.html"))
}

func TestRun_InvalidUTF8Abort(t *testing.T) {
	s := invalidUTF8Site(t)
	cfg := s.config("mangle")
	cfg.Markdown.InvalidUTF8 = config.InvalidUTF8Abort
	cfg.ThreadPoolSize = 1

	res, err := quietService().Run(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, kserrors.IsCategory(err, kserrors.CategoryData))
	assert.Equal(t, BuildStatusFailed, res.Status)
	assert.NoFileExists(t, filepath.Join(s.out, "bad.html"))
}

func TestRun_MissingPluginIsFatal(t *testing.T) {
	s := newSite(t)
	testutil.WriteFile(t, s.src, "a.md", "# Hi")

	res, err := quietService().Run(context.Background(), s.config("not-installed"))
	require.Error(t, err)
	assert.True(t, kserrors.IsCategory(err, kserrors.CategoryPlugin))
	assert.Equal(t, BuildStatusFailed, res.Status)
	assert.NoFileExists(t, filepath.Join(s.out, "a.html"))
}

func TestRun_InvalidGlobIsFatalAndJoinsInit(t *testing.T) {
	s := newSite(t)
	marker := filepath.Join(t.TempDir(), "init-done")
	testutil.WritePlugin(t, s.plugins, "warmup", testutil.OnHook("init", fmt.Sprintf("sleep 0.2; touch %q", marker)))
	cfg := s.config("warmup")
	cfg.Files.InputGlob = filepath.Join(s.src, "[*.md")

	res, err := quietService().Run(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, kserrors.IsCategory(err, kserrors.CategoryConfig))
	assert.Equal(t, BuildStatusFailed, res.Status)
	assert.FileExists(t, marker, "init hook finished before Run returned")
}

func TestRun_UnreadableInputIsFatal(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	s := newSite(t)
	path := testutil.WriteFile(t, s.src, "secret.md", "# Hidden")
	require.NoError(t, os.Chmod(path, 0o000))

	_, err := quietService().Run(context.Background(), s.config())
	require.Error(t, err)
	assert.True(t, kserrors.IsCategory(err, kserrors.CategoryFileSystem))
}

func TestRun_HookTimeout(t *testing.T) {
	s := newSite(t)
	testutil.WritePlugin(t, s.plugins, "slow", testutil.OnHook("html", "sleep 10; cat"))
	testutil.WriteFile(t, s.src, "a.md", "# Hi")

	cfg, err := config.Parse("conf.toml", []byte(fmt.Sprintf(`
thread_pool_size = 1
plugins = ["slow"]
[files]
input_glob = %q
output_dir = %q
[hooks]
plugin_dir = %q
timeout = "200ms"
`, filepath.Join(s.src, "*.md"), s.out, s.plugins)))
	require.NoError(t, err)

	start := time.Now()
	res, err := quietService().Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	require.Len(t, res.Warnings, 1)
	assert.True(t, res.Warnings[0].TimedOut)
	assert.Equal(t, "<h1>Hi</h1>\n", s.read(t, "a.html"))
}

func TestRun_PluginEnvironment(t *testing.T) {
	s := newSite(t)
	testutil.WritePlugin(t, s.plugins, "env", testutil.OnHook("html",
		`cat >/dev/null; printf '%s|%s|%s' "$KATSITE_HOOK" "$KATSITE_OUTPUT_DIR" "$KATSITE_RUN_ID"`))
	testutil.WriteFile(t, s.src, "a.md", "x")

	res, err := quietService().Run(context.Background(), s.config("env"))
	require.NoError(t, err)
	assert.Equal(t, "html|"+s.out+"|"+res.RunID, s.read(t, "a.html"))
}

func TestRun_Journal(t *testing.T) {
	s := newSite(t)
	testutil.WritePlugin(t, s.plugins, "broken", testutil.OnHook("html", "exit 1"))
	testutil.WriteFile(t, s.src, "a.md", "# Hi")

	store, err := eventstore.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	res, err := quietService(WithJournal(store)).Run(context.Background(), s.config("broken"))
	require.NoError(t, err)

	events, err := store.GetByRunID(context.Background(), res.RunID)
	require.NoError(t, err)
	var types []string
	for _, e := range events {
		types = append(types, e.Type())
	}
	assert.Equal(t, eventstore.TypeRunStarted, types[0])
	assert.Equal(t, eventstore.TypeRunCompleted, types[len(types)-1])
	assert.Contains(t, types, eventstore.TypeFileBuilt)
	assert.Contains(t, types, eventstore.TypePluginWarning)

	summaries := eventstore.Summarize(events)
	require.Len(t, summaries, 1)
	assert.Equal(t, string(BuildStatusWarning), summaries[0].Status)
	assert.Equal(t, 1, summaries[0].Built)
	assert.Equal(t, 1, summaries[0].Warnings)
}

func TestRun_Cancelled(t *testing.T) {
	s := newSite(t)
	testutil.WriteFile(t, s.src, "a.md", "# Hi")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := quietService().Run(ctx, s.config())
	require.Error(t, err)
	assert.Equal(t, BuildStatusCancelled, res.Status)
}

func TestRun_CancelledMidRunIsNotAPluginFailure(t *testing.T) {
	s := newSite(t)
	testutil.WritePlugin(t, s.plugins, "slow", testutil.OnHook("markdown", "sleep 3; cat"))
	testutil.WriteFile(t, s.src, "a.md", "# Hi")
	cfg := s.config("slow")
	cfg.ThreadPoolSize = 1

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)

	start := time.Now()
	res, err := quietService().Run(ctx, cfg)
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.False(t, kserrors.IsCategory(err, kserrors.CategoryPlugin))
	assert.Equal(t, BuildStatusCancelled, res.Status)
	assert.Empty(t, res.Warnings, "a plugin killed by cancellation is not a plugin warning")
	assert.Equal(t, kserrors.ExitInterrupted, kserrors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))
	assert.NoFileExists(t, filepath.Join(s.out, "a.html"))
}

func TestRun_PreflightFailureIsJournaledAsAStartedRun(t *testing.T) {
	s := newSite(t)
	store, err := eventstore.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	res, err := quietService(WithJournal(store)).Run(context.Background(), s.config("not-installed"))
	require.Error(t, err)

	events, err := store.GetByRunID(context.Background(), res.RunID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, eventstore.TypeRunStarted, events[0].Type())
	assert.Equal(t, eventstore.TypeRunCompleted, events[1].Type())

	summaries := eventstore.Summarize(events)
	require.Len(t, summaries, 1)
	assert.Equal(t, []string{"not-installed"}, summaries[0].Plugins)
	assert.Equal(t, string(BuildStatusFailed), summaries[0].Status)
}
