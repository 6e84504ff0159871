package commands

import (
	"context"

	"github.com/emlanis/secret-ai-writer/internal/cli/bootstrap"
	"github.com/emlanis/secret-ai-writer/internal/config"
)

type statusCmd struct{}

func (statusCmd) Name() string        { return "status" }
func (statusCmd) Description() string { return "Show operating mode, wallet address and contract state" }
func (statusCmd) Usage() string       { return "status" }

func (statusCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	return withApp(cfg, func(app *bootstrap.App) error {
		out := map[string]any{
			"mode":           app.Storage.Mode().String(),
			"reason":         app.Storage.ModeReason(),
			"address":        app.Storage.Address(),
			"contract":       app.Storage.Contract(),
			"chain_id":       cfg.ChainID,
			"lcd_url":        cfg.LCDURL,
			"missing_live":   cfg.MissingLive(),
			"has_credential": cfg.HasCredential(),
			"model":          cfg.OllamaModel,
		}
		if app.Cache != nil {
			out["cache_dir"] = app.Cache.Dir()
		}
		if tokenAddr, err := tokenStore(cfg).LoadAddress(); err == nil {
			out["token_address"] = tokenAddr
		}
		if info, err := app.Storage.ContractInfo(ctx); err == nil {
			out["contract_info"] = info
		} else {
			out["contract_error"] = err.Error()
		}
		return printJSON(out)
	})
}

func init() { RegisterCmd(statusCmd{}) }
