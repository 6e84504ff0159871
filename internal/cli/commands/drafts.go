package commands

import (
	"context"
	"fmt"

	"github.com/emlanis/secret-ai-writer/internal/cli/bootstrap"
	"github.com/emlanis/secret-ai-writer/internal/config"
)

const defaultListLimit = 20

type storePayload struct {
	Content     string         `json:"content"`
	UserAddress string         `json:"user_address"`
	Metadata    map[string]any `json:"metadata"`
}

type addressPayload struct {
	UserAddress string `json:"user_address"`
	Limit       int    `json:"limit,omitempty"`
	DraftID     string `json:"draft_id,omitempty"`
}

type storeCmd struct{}

func (storeCmd) Name() string        { return "store" }
func (storeCmd) Description() string { return "Store an encrypted draft in the contract" }
func (storeCmd) Usage() string {
	return `store '{"content":"...","metadata":{...}}'`
}

func (storeCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	var p storePayload
	if err := decodePayload(args, &p, false); err != nil {
		return err
	}
	return withApp(cfg, func(app *bootstrap.App) error {
		if p.UserAddress != "" && p.UserAddress != app.Storage.Address() {
			logger.Infow("store: draft is signed by the configured wallet", "user_address", p.UserAddress, "signer", app.Storage.Address())
		}
		return printJSON(app.Storage.StoreDraft(ctx, p.Content, p.Metadata))
	})
}

type retrieveCmd struct{}

func (retrieveCmd) Name() string        { return "retrieve" }
func (retrieveCmd) Description() string { return "Retrieve and decrypt the latest draft of an address" }
func (retrieveCmd) Usage() string       { return `retrieve ['{"user_address":"secret1..."}']` }

func (retrieveCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	var p addressPayload
	if err := decodePayload(args, &p, true); err != nil {
		return err
	}
	return withApp(cfg, func(app *bootstrap.App) error {
		res, err := app.Storage.RetrieveDraft(ctx, p.UserAddress)
		if err != nil {
			return err
		}
		return printJSON(res)
	})
}

type draftsCmd struct{}

func (draftsCmd) Name() string        { return "drafts" }
func (draftsCmd) Description() string { return "List the local draft journal, newest first" }
func (draftsCmd) Usage() string       { return `drafts ['{"user_address":"secret1...","limit":20}']` }

func (draftsCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	var p addressPayload
	if err := decodePayload(args, &p, true); err != nil {
		return err
	}
	if p.Limit <= 0 {
		p.Limit = defaultListLimit
	}
	return withApp(cfg, func(app *bootstrap.App) error {
		list, err := app.Storage.ListDrafts(ctx, p.UserAddress, p.Limit)
		if err != nil {
			return err
		}
		owner := p.UserAddress
		if owner == "" {
			owner = app.Storage.Address()
		}
		return printJSON(map[string]any{"owner": owner, "drafts": list})
	})
}

type deleteCmd struct{}

func (deleteCmd) Name() string        { return "delete" }
func (deleteCmd) Description() string { return "Delete a journal entry and the stored draft" }
func (deleteCmd) Usage() string       { return `delete '{"draft_id":"..."}'` }

func (deleteCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	var p addressPayload
	if err := decodePayload(args, &p, false); err != nil {
		return err
	}
	if p.DraftID == "" {
		return fmt.Errorf("%w: draft_id is required", ErrPayload)
	}
	return withApp(cfg, func(app *bootstrap.App) error {
		return printJSON(app.Storage.DeleteDraft(ctx, p.DraftID))
	})
}

func init() {
	RegisterCmd(storeCmd{})
	RegisterCmd(retrieveCmd{})
	RegisterCmd(draftsCmd{})
	RegisterCmd(deleteCmd{})
}
