package commands

import (
	"context"
	"errors"
	"time"

	"github.com/emlanis/secret-ai-writer/internal/cli/bootstrap"
	"github.com/emlanis/secret-ai-writer/internal/cli/repo"
	fsrepo "github.com/emlanis/secret-ai-writer/internal/cli/repo/fs"
	"github.com/emlanis/secret-ai-writer/internal/config"
	"github.com/emlanis/secret-ai-writer/internal/middleware"
)

// tokenStore возвращает хранилище токена CLI.
var tokenStore = func(cfg *config.Config) repo.TokenStore {
	return fsrepo.AuthFSStore{Dir: cfg.ClientDBPath}
}

type tokenCmd struct{}

func (tokenCmd) Name() string        { return "token" }
func (tokenCmd) Description() string { return "Issue an API token for the HTTP server and save it locally" }
func (tokenCmd) Usage() string       { return "token [address]" }

func (tokenCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) > 1 {
		return ErrUsage
	}
	addr := ""
	if len(args) == 1 {
		addr = args[0]
	} else {
		err := withApp(cfg, func(app *bootstrap.App) error {
			addr = app.Storage.Address()
			return nil
		})
		if err != nil {
			return err
		}
	}
	if addr == "" {
		return errors.New("no address: pass one or configure MNEMONIC")
	}

	token, err := middleware.IssueToken(cfg.AuthSecret, addr, middleware.TokenTTL)
	if err != nil {
		return err
	}
	store := tokenStore(cfg)
	if err := store.Save(token); err != nil {
		return err
	}
	if err := store.SaveAddress(addr); err != nil {
		return err
	}
	return printJSON(map[string]any{
		"token":      token,
		"address":    addr,
		"expires_at": time.Now().Add(middleware.TokenTTL).UTC().Format(time.RFC3339),
	})
}

func init() { RegisterCmd(tokenCmd{}) }
