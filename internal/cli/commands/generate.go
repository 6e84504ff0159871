package commands

import (
	"context"

	"github.com/emlanis/secret-ai-writer/internal/cli/bootstrap"
	"github.com/emlanis/secret-ai-writer/internal/cli/service"
	"github.com/emlanis/secret-ai-writer/internal/config"
)

type generateCmd struct{}

func (generateCmd) Name() string        { return "generate" }
func (generateCmd) Description() string { return "Generate text from a prompt" }
func (generateCmd) Usage() string {
	return `generate '{"prompt":"...","user_address":"...","system_instruction":"..."}'`
}

func (generateCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	var req service.GenerateRequest
	if err := decodePayload(args, &req, false); err != nil {
		return err
	}
	return withApp(cfg, func(app *bootstrap.App) error {
		res, err := app.Writer.Generate(ctx, req)
		if err != nil {
			return err
		}
		return printJSON(res)
	})
}

type enhanceCmd struct{}

func (enhanceCmd) Name() string        { return "enhance" }
func (enhanceCmd) Description() string { return "Improve a draft (grammar, creativity, conciseness, professional, casual)" }
func (enhanceCmd) Usage() string {
	return `enhance '{"draft_text":"...","enhancement_type":"grammar","user_address":"..."}'`
}

func (enhanceCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	var req service.EnhanceRequest
	if err := decodePayload(args, &req, false); err != nil {
		return err
	}
	return withApp(cfg, func(app *bootstrap.App) error {
		res, err := app.Writer.Enhance(ctx, req)
		if err != nil {
			return err
		}
		return printJSON(res)
	})
}

func init() {
	RegisterCmd(generateCmd{})
	RegisterCmd(enhanceCmd{})
}
