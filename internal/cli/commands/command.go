package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/emlanis/secret-ai-writer/internal/cli/bootstrap"
	"github.com/emlanis/secret-ai-writer/internal/config"
)

// ErrUsage is returned by a command when arguments are invalid and usage should be shown.
var ErrUsage = errors.New("usage")

// ErrPayload: JSON-аргумент команды не разбирается.
var ErrPayload = errors.New("invalid JSON payload")

// Command represents a CLI subcommand.
type Command interface {
	// Name returns the command name as typed by the user, e.g. "generate".
	Name() string
	// Description is a short human-readable description shown in help.
	Description() string
	// Usage returns the exact usage string, e.g. "generate <json>".
	Usage() string
	// Run executes the command with provided args (without the command name).
	Run(ctx context.Context, cfg *config.Config, args []string) error
}

// registry holds available commands by name.
var registry = map[string]Command{}

// Out: общий writer для вывода CLI. По умолчанию os.Stdout, но в тестах может переназначаться.
var Out io.Writer = os.Stdout

var logger = zap.NewNop().Sugar()

// SetLogger задаёт логгер команд. Логи CLI пишутся в stderr, stdout остаётся чистым JSON.
func SetLogger(l *zap.SugaredLogger) {
	if l != nil {
		logger = l
	}
}

// openApp собирает компоненты клиента; в тестах подменяется.
var openApp = func(cfg *config.Config) (*bootstrap.App, func() error, error) {
	return bootstrap.Open(cfg, logger)
}

// withApp открывает приложение на время выполнения fn.
func withApp(cfg *config.Config, fn func(app *bootstrap.App) error) error {
	app, cleanup, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := cleanup(); cerr != nil {
			logger.Warnw("cleanup failed", "error", cerr)
		}
	}()
	return fn(app)
}

// RegisterCmd adds a command to the registry. Should be called from init() of each command.
func RegisterCmd(cmd Command) {
	registry[cmd.Name()] = cmd
}

// Get returns a command by name.
func Get(name string) (Command, bool) {
	c, ok := registry[name]
	return c, ok
}

// List returns all registered commands sorted by name.
func List() []Command {
	list := make([]Command, 0, len(registry))
	for _, c := range registry {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name() < list[j].Name() })
	return list
}

// FormatGlobalUsage builds a help text for all commands.
func FormatGlobalUsage() string {
	lines := []string{
		"Secret AI Writer CLI",
		"",
		"Usage:",
		"  saw [--dev] [--contract <addr>] [--lcd-url URL] <command> [json]",
		"",
		"Commands:",
	}
	for _, c := range List() {
		lines = append(lines, fmt.Sprintf("  %-28s %s", c.Usage(), c.Description()))
	}
	return strings.Join(lines, "\n") + "\n"
}
