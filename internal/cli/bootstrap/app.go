package bootstrap

import (
	"go.uber.org/zap"

	"github.com/emlanis/secret-ai-writer/internal/cli/api"
	"github.com/emlanis/secret-ai-writer/internal/cli/crypto"
	"github.com/emlanis/secret-ai-writer/internal/cli/ledger"
	fsrepo "github.com/emlanis/secret-ai-writer/internal/cli/repo/fs"
	"github.com/emlanis/secret-ai-writer/internal/cli/service"
	"github.com/emlanis/secret-ai-writer/internal/config"
	"github.com/emlanis/secret-ai-writer/internal/repo"
)

// App: собранные из конфигурации компоненты клиента.
type App struct {
	Storage *service.StorageClient
	Writer  *service.Writer
	Cache   *fsrepo.ResultCache
	Log     *zap.SugaredLogger
}

// Open собирает клиент хранилища, журнал, кэш и конвейер генерации
// и возвращает (app, cleanup, error). cleanup закрывает соединение с БД журнала.
// Отсутствие контракта или мнемоники ошибкой не считается: клиент уходит в режим симуляции.
// Недоступный журнал тоже: команды работают без него, как и без кэша.
func Open(cfg *config.Config, log *zap.SugaredLogger) (*App, func() error, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	journal, cleanup := openJournal(cfg, log)

	opts := service.Options{
		ContractAddress: cfg.ContractAddress,
		DevMode:         cfg.DevMode,
		Journal:         journal,
		Log:             log,
	}
	if cfg.HasCredential() {
		w, err := crypto.NewWalletFromMnemonic(cfg.Mnemonic)
		if err != nil {
			log.Warnw("MNEMONIC is set but unusable, signing calls will be simulated", "err", err)
		} else {
			opts.Wallet = w
		}
	}
	if len(cfg.MissingLive()) == 0 {
		wireLedger(cfg, &opts, log)
	}

	cache, err := fsrepo.NewResultCache(cfg.CacheDir, log)
	if err != nil {
		// генерация работает и без кэша
		log.Warnw("result cache disabled", "dir", cfg.CacheDir, "err", err)
		cache = nil
	}

	storage := service.NewStorageClient(opts)
	completer := api.NewOllamaClient(cfg.OllamaBaseURL, cfg.OllamaModel, service.CompletionTimeout)

	var c service.Cache
	if cache != nil {
		c = cache
	}
	writer := service.NewWriter(completer, storage, c, completer.Model(), log)

	return &App{Storage: storage, Writer: writer, Cache: cache, Log: log}, cleanup, nil
}

// openJournal открывает локальный журнал черновиков. При ошибке журнал
// отключается (nil), а cleanup ничего не делает.
func openJournal(cfg *config.Config, log *zap.SugaredLogger) (*service.Journal, func() error) {
	noop := func() error { return nil }

	db, err := repo.InitDB(cfg.DatabaseDSN)
	if err != nil {
		log.Warnw("draft journal disabled", "reason", "open journal db", "err", err)
		return nil, noop
	}
	cleanup := func() error { return repo.Close(db) }

	journalKey, err := crypto.LoadOrCreateKey(cfg.ClientDBPath, "journal")
	if err != nil {
		log.Warnw("draft journal disabled", "reason", "journal key", "err", err)
		if cerr := cleanup(); cerr != nil {
			log.Warnw("close journal db", "err", cerr)
		}
		return nil, noop
	}
	return service.NewJournal(repo.NewDraftRepository(db), journalKey, log), cleanup
}

func wireLedger(cfg *config.Config, opts *service.Options, log *zap.SugaredLogger) {
	lcd := api.NewLCDClient(cfg.LCDURL, cfg.LedgerTimeout, log)
	txCfg := ledger.TxConfig{
		ChainID:  cfg.ChainID,
		CodeHash: cfg.ContractHash,
		Gas:      cfg.Gas,
		GasPrice: cfg.GasPrice,
	}

	var signer ledger.Signer
	if opts.Wallet != nil {
		signer = opts.Wallet
		seed, err := crypto.SeedFromPrivateKey(opts.Wallet.PrivateKeyBytes())
		if err == nil {
			var codec *crypto.LiveCodec
			if codec, err = crypto.NewLiveCodec(seed); err == nil {
				opts.Codec = codec
			}
		}
		if err != nil {
			log.Warnw("encryption codec unavailable", "err", err)
		}
	}

	opts.Keys = ledger.NewKeyResolver(lcd, log)
	opts.Ledger = ledger.NewTransactor(lcd, signer, txCfg, log)
}
