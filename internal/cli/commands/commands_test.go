package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emlanis/secret-ai-writer/internal/cli/bootstrap"
	fsrepo "github.com/emlanis/secret-ai-writer/internal/cli/repo/fs"
	"github.com/emlanis/secret-ai-writer/internal/cli/service"
	"github.com/emlanis/secret-ai-writer/internal/config"
	"github.com/emlanis/secret-ai-writer/internal/middleware"
)

// fakeCmd позволяет управлять возвратом ошибок из Run
type fakeCmd struct {
	name, usage, desc string
	run               func(ctx context.Context, cfg *config.Config, args []string) error
}

func (f fakeCmd) Name() string        { return f.name }
func (f fakeCmd) Description() string { return f.desc }
func (f fakeCmd) Usage() string       { return f.usage }
func (f fakeCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	return f.run(ctx, cfg, args)
}

type echoCompleter struct{ err error }

func (e echoCompleter) Complete(_ context.Context, _, user string) (string, error) {
	if e.err != nil {
		return "", e.err
	}
	return "echo: " + user, nil
}

// перехват stdout на время теста
func withStdoutCapture(t *testing.T, fn func()) string {
	t.Helper()
	old := Out
	var buf bytes.Buffer
	Out = &buf
	defer func() { Out = old }()
	fn()
	return buf.String()
}

// withTestApp подменяет сборку приложения: режим симуляции, журнал в памяти,
// модель — echoCompleter.
func withTestApp(t *testing.T, completer service.Completer) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		DevMode:       true,
		LCDURL:        config.DefaultLCDURL,
		LedgerTimeout: time.Second,
		AuthSecret:    "test-secret",
		OllamaModel:   "test-model",
		CacheDir:      filepath.Join(dir, "cache"),
		ClientDBPath:  filepath.Join(dir, "client"),
		DatabaseDSN:   "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	}
	// общий журнал на весь тест: cleanup откладывается до конца теста
	app, cleanup, err := bootstrap.Open(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cleanup() })
	app.Writer = service.NewWriter(completer, app.Storage, app.Cache, cfg.OllamaModel, nil)

	old := openApp
	openApp = func(*config.Config) (*bootstrap.App, func() error, error) {
		return app, func() error { return nil }, nil
	}
	t.Cleanup(func() { openApp = old })
	return cfg
}

func run(t *testing.T, cfg *config.Config, args ...string) (string, int) {
	t.Helper()
	var code int
	out := withStdoutCapture(t, func() { code = Dispatch(context.Background(), cfg, args) })
	return out, code
}

func decodeLine(t *testing.T, out string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out)), &m), out)
	return m
}

func TestDispatcher_HelpAndUnknown(t *testing.T) {
	out, code := run(t, &config.Config{})
	assert.Contains(t, out, "Secret AI Writer CLI")
	assert.Equal(t, 2, code)

	out, code = run(t, &config.Config{}, "help")
	assert.Contains(t, out, "Usage:")
	assert.Equal(t, 0, code)

	_, code = run(t, &config.Config{}, "help", "generate")
	assert.Equal(t, 0, code)

	out, code = run(t, &config.Config{}, "help", "nope")
	assert.Contains(t, out, "Unknown command")
	assert.Equal(t, 2, code)

	_, code = run(t, &config.Config{}, "no-such")
	assert.Equal(t, 2, code)
}

func TestDispatcher_RunPaths(t *testing.T) {
	RegisterCmd(fakeCmd{name: "x", usage: "x", run: func(context.Context, *config.Config, []string) error { return nil }})
	_, code := run(t, &config.Config{}, "x")
	assert.Equal(t, 0, code)

	RegisterCmd(fakeCmd{name: "u", usage: "u <arg>", run: func(context.Context, *config.Config, []string) error { return ErrUsage }})
	out, code := run(t, &config.Config{}, "u")
	assert.Contains(t, out, "Usage: u <arg>")
	assert.Equal(t, 2, code)

	// ошибка выполнения — JSON с полем error и код 0
	RegisterCmd(fakeCmd{name: "e", usage: "e", run: func(context.Context, *config.Config, []string) error { return errors.New("boom") }})
	out, code = run(t, &config.Config{}, "e")
	assert.Equal(t, 0, code)
	assert.Equal(t, "boom", decodeLine(t, out)["error"])
}

func TestGenerate_PrintsResultAndCaches(t *testing.T) {
	cfg := withTestApp(t, echoCompleter{})

	out, code := run(t, cfg, "generate", `{"prompt":"hi there"}`)
	require.Equal(t, 0, code)
	res := decodeLine(t, out)
	assert.Equal(t, "echo: hi there", res["content"])
	assert.Equal(t, false, res["cached"])
	meta := res["metadata"].(map[string]any)
	assert.Equal(t, "test-model", meta["model"])
	assert.True(t, strings.HasPrefix(meta["tx_hash"].(string), service.MockTxPrefix))

	out, _ = run(t, cfg, "generate", `{"prompt":"hi there"}`)
	assert.Equal(t, true, decodeLine(t, out)["cached"])
}

func TestGenerate_ArgumentErrors(t *testing.T) {
	cfg := withTestApp(t, echoCompleter{})

	out, code := run(t, cfg, "generate")
	assert.Equal(t, 2, code)
	assert.Contains(t, out, "Usage: generate")

	out, code = run(t, cfg, "generate", `{not json`)
	assert.Equal(t, 2, code)
	assert.Contains(t, decodeLine(t, out)["error"], "invalid JSON payload")
}

func TestGenerate_CompletionFailureIsReportedWithExitZero(t *testing.T) {
	cfg := withTestApp(t, echoCompleter{err: errors.New("ollama unreachable")})
	out, code := run(t, cfg, "generate", `{"prompt":"p"}`)
	assert.Equal(t, 0, code)
	assert.Contains(t, decodeLine(t, out)["error"], "ollama unreachable")
}

func TestEnhance_DefaultType(t *testing.T) {
	cfg := withTestApp(t, echoCompleter{})
	out, code := run(t, cfg, "enhance", `{"draft_text":"teh cat"}`)
	require.Equal(t, 0, code)
	content := decodeLine(t, out)["content"].(string)
	assert.Contains(t, content, "Improve the grammar")
	assert.Contains(t, content, "teh cat")
}

func TestStoreRetrieveListDelete(t *testing.T) {
	cfg := withTestApp(t, echoCompleter{})

	out, code := run(t, cfg, "store", `{"content":"my secret draft","metadata":{"title":"t"}}`)
	require.Equal(t, 0, code)
	stored := decodeLine(t, out)
	assert.Equal(t, true, stored["success"])
	assert.Equal(t, true, stored["simulated"])
	assert.True(t, strings.HasPrefix(stored["tx_hash"].(string), service.MockTxPrefix))
	draftID := stored["draft_id"].(string)
	require.NotEmpty(t, draftID)

	out, code = run(t, cfg, "retrieve")
	require.Equal(t, 0, code)
	got := decodeLine(t, out)
	assert.Equal(t, "my secret draft", got["content"])
	assert.Equal(t, true, got["found"])
	assert.Equal(t, "t", got["metadata"].(map[string]any)["title"])

	out, _ = run(t, cfg, "drafts")
	list := decodeLine(t, out)
	assert.Equal(t, service.DevAddress, list["owner"])
	assert.Len(t, list["drafts"], 1)

	out, code = run(t, cfg, "delete", `{"draft_id":"`+draftID+`"}`)
	require.Equal(t, 0, code)
	assert.Equal(t, true, decodeLine(t, out)["journal_deleted"])

	out, _ = run(t, cfg, "retrieve", `{"user_address":"`+service.DevAddress+`"}`)
	assert.Equal(t, false, decodeLine(t, out)["found"])
}

func TestDelete_RequiresDraftID(t *testing.T) {
	cfg := withTestApp(t, echoCompleter{})
	out, code := run(t, cfg, "delete", `{}`)
	assert.Equal(t, 2, code)
	assert.Contains(t, decodeLine(t, out)["error"], "draft_id")
}

func TestToken_IssuesAndSaves(t *testing.T) {
	cfg := withTestApp(t, echoCompleter{})

	out, code := run(t, cfg, "token")
	require.Equal(t, 0, code)
	res := decodeLine(t, out)
	assert.Equal(t, service.DevAddress, res["address"])

	addr, err := middleware.ParseToken(cfg.AuthSecret, res["token"].(string))
	require.NoError(t, err)
	assert.Equal(t, service.DevAddress, addr)

	store := fsrepo.AuthFSStore{Dir: cfg.ClientDBPath}
	saved, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, res["token"], saved)

	_, code = run(t, cfg, "token", "a", "b")
	assert.Equal(t, 2, code)
}

func TestStatus_Simulated(t *testing.T) {
	cfg := withTestApp(t, echoCompleter{})
	out, code := run(t, cfg, "status")
	require.Equal(t, 0, code)
	st := decodeLine(t, out)
	assert.Equal(t, "simulated", st["mode"])
	assert.Equal(t, service.DevAddress, st["address"])
	assert.Contains(t, st["missing_live"], "DEV_MODE")
	assert.Contains(t, st["contract_error"], "live mode")

	_, code = run(t, cfg, "status", "extra")
	assert.Equal(t, 2, code)
}
