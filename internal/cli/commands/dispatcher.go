package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/emlanis/secret-ai-writer/internal/config"
)

// Dispatch is the single entry point to execute CLI commands.
// Ошибки команд печатаются как {"error": ...} с кодом 0; код 2 — только
// для отсутствующих или некорректных аргументов.
func Dispatch(ctx context.Context, cfg *config.Config, args []string) int {
	// If user passed global --help after flags parsing, show global usage
	for _, a := range os.Args[1:] {
		if a == "--help" || a == "-h" {
			fmt.Fprint(Out, FormatGlobalUsage())
			return 0
		}
	}

	if len(args) == 0 {
		fmt.Fprint(Out, FormatGlobalUsage())
		return 2
	}

	name := strings.ToLower(args[0])
	if name == "help" {
		if len(args) == 1 {
			fmt.Fprint(Out, FormatGlobalUsage())
			return 0
		}
		if c, ok := Get(args[1]); ok {
			fmt.Fprintf(Out, "Usage: %s\n", c.Usage())
			return 0
		}
		fmt.Fprintf(Out, "Unknown command: %s\n\n", args[1])
		fmt.Fprint(Out, FormatGlobalUsage())
		return 2
	}

	c, ok := Get(name)
	if !ok {
		fmt.Fprintf(Out, "Unknown command: %s\n\n", name)
		fmt.Fprint(Out, FormatGlobalUsage())
		return 2
	}

	err := c.Run(ctx, cfg, args[1:])
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrUsage):
		fmt.Fprintf(Out, "Usage: %s\n", c.Usage())
		return 2
	case errors.Is(err, ErrPayload):
		printError(err)
		return 2
	default:
		logger.Errorw("command failed", "command", name, "error", err)
		printError(err)
		return 0
	}
}

func printError(err error) {
	_ = json.NewEncoder(Out).Encode(map[string]string{"error": err.Error()})
}

// printJSON печатает результат команды одной строкой JSON.
func printJSON(v any) error {
	return json.NewEncoder(Out).Encode(v)
}

// decodePayload разбирает единственный JSON-аргумент команды.
// optional разрешает запуск без аргумента.
func decodePayload(args []string, v any, optional bool) error {
	switch {
	case len(args) == 0 && optional:
		return nil
	case len(args) != 1:
		return ErrUsage
	}
	if err := json.Unmarshal([]byte(args[0]), v); err != nil {
		return fmt.Errorf("%w: %v", ErrPayload, err)
	}
	return nil
}
