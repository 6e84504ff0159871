package service

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/zeebo/blake3"
	"go.uber.org/zap"

	"github.com/emlanis/secret-ai-writer/internal/cli/crypto"
	"github.com/emlanis/secret-ai-writer/internal/cli/ledger"
	view "github.com/emlanis/secret-ai-writer/internal/cli/model/view"
)

// Mode: режим работы клиента, выбирается один раз при создании.
type Mode int

const (
	ModeSimulated Mode = iota
	ModeLive
)

func (m Mode) String() string {
	if m == ModeLive {
		return "live"
	}
	return "simulated"
}

const (
	// MockTxPrefix отмечает идентификаторы транзакций, созданные локально.
	MockTxPrefix = "mock_tx_"
	// DevAddress: адрес владельца в режиме симуляции без кошелька.
	DevAddress = "secret1devmodexxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx"

	placeholderContent = "This is a mock draft created when retrieval failed."
)

// ErrNoAddress: в режиме live не задан ни явный адрес, ни кошелёк.
var ErrNoAddress = errors.New("no address to query: pass an address or configure MNEMONIC")

// KeyResolver получает ключ шифрования транзакций.
type KeyResolver interface {
	Resolve(ctx context.Context) (*crypto.TransportKey, error)
}

// Ledger отправляет вызовы контракта и выполняет запросы.
type Ledger interface {
	SubmitStore(ctx context.Context, contract string, msg any) (ledger.TxHandle, error)
	Query(ctx context.Context, contract string, q any) (ledger.Response, error)
}

// StoreResult: итог записи. Success всегда true; Simulated и Reason показывают,
// что запись не дошла до сети.
type StoreResult struct {
	TxHash    string `json:"tx_hash"`
	Success   bool   `json:"success"`
	Simulated bool   `json:"simulated"`
	Reason    string `json:"reason,omitempty"`
	DraftID   string `json:"draft_id,omitempty"`
}

// RetrieveResult: черновик, прочитанный из сети или журнала.
type RetrieveResult struct {
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata"`
	Found     bool           `json:"found"`
	Owner     string         `json:"owner"`
	Simulated bool           `json:"simulated"`
	Reason    string         `json:"reason,omitempty"`
}

// TxReceipt: подтверждение записи метаданных.
type TxReceipt struct {
	TxHash    string `json:"tx_hash"`
	Simulated bool   `json:"simulated"`
	Reason    string `json:"reason,omitempty"`
}

// DeleteResult: итог удаления черновика.
type DeleteResult struct {
	StoreResult
	JournalDeleted bool `json:"journal_deleted"`
}

// Options: зависимости StorageClient. Отсутствующие live-зависимости переводят клиент в симуляцию.
type Options struct {
	ContractAddress string
	DevMode         bool
	Wallet          *crypto.Wallet // nil, если мнемоника не задана или невалидна
	Keys            KeyResolver
	Ledger          Ledger
	Codec           crypto.Codec // live-кодек; nil без кошелька
	Journal         *Journal     // nil отключает локальный журнал
	Log             *zap.SugaredLogger
}

// StorageClient: конфиденциальное хранилище черновиков и метаданных.
// Публичные операции не возвращают ошибок наружу (кроме RetrieveDraft без адреса):
// сбои логируются и превращаются в результат с пометкой Simulated.
type StorageClient struct {
	mu sync.Mutex

	mode     Mode
	reason   string
	contract string
	wallet   *crypto.Wallet
	keys     KeyResolver
	ledger   Ledger
	codec    crypto.Codec
	sim      crypto.SimulatedCodec
	journal  *Journal
	log      *zap.SugaredLogger
	now      func() time.Time

	key *crypto.TransportKey // кэшируется после первого успешного получения
}

// NewStorageClient решает режим один раз: live требует выключенного DEV_MODE,
// адреса контракта и транспорта к сети.
func NewStorageClient(opts Options) *StorageClient {
	log := opts.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	c := &StorageClient{
		contract: opts.ContractAddress,
		wallet:   opts.Wallet,
		keys:     opts.Keys,
		ledger:   opts.Ledger,
		codec:    opts.Codec,
		journal:  opts.Journal,
		log:      log,
		now:      time.Now,
	}
	switch {
	case opts.DevMode:
		c.reason = "DEV_MODE is enabled"
	case opts.ContractAddress == "":
		c.reason = "CONTRACT_ADDRESS is not configured"
	case opts.Keys == nil || opts.Ledger == nil:
		c.reason = "ledger endpoint is not configured"
	default:
		c.mode = ModeLive
	}
	log.Infow("storage client initialized", "mode", c.mode.String(), "reason", c.reason, "address", c.Address())
	return c
}

// Mode возвращает режим, выбранный при создании.
func (c *StorageClient) Mode() Mode { return c.mode }

// ModeReason объясняет, почему выбран режим симуляции.
func (c *StorageClient) ModeReason() string { return c.reason }

// Contract возвращает адрес контракта.
func (c *StorageClient) Contract() string { return c.contract }

// Address возвращает адрес кошелька; в режиме симуляции без кошелька — DevAddress.
func (c *StorageClient) Address() string {
	if c.wallet != nil {
		return c.wallet.Address()
	}
	if c.mode == ModeSimulated {
		return DevAddress
	}
	return ""
}

func (c *StorageClient) mockTxID() string {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(c.now().UnixNano()))
	sum := blake3.Sum256(b[:])
	return MockTxPrefix + hex.EncodeToString(sum[:])[:16]
}

func (c *StorageClient) degraded(op, reason string, err error) StoreResult {
	if err != nil {
		c.log.Warnw("live call degraded to simulated", "op", op, "reason", reason, "err", err)
		reason = reason + ": " + err.Error()
	}
	return StoreResult{TxHash: c.mockTxID(), Success: true, Simulated: true, Reason: reason}
}

// transportKey возвращает закэшированный ключ или получает новый. Ошибки не кэшируются.
func (c *StorageClient) transportKey(ctx context.Context) (*crypto.TransportKey, error) {
	if c.key != nil {
		return c.key, nil
	}
	key, err := c.keys.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	c.key = key
	return key, nil
}

type storeDraftMsg struct {
	StoreDraft struct {
		EncryptedContent  string `json:"encrypted_content"`
		EncryptedMetadata string `json:"encrypted_metadata"`
	} `json:"store_draft"`
}

// sealPayload шифрует содержимое и метаданные для отправки в контракт.
// Без транспортного ключа или при сбое live-шифрования поле кодируется
// simulated-кодеком только для этого вызова; причина возвращается в reason.
func (c *StorageClient) sealPayload(ctx context.Context, content string, metadata map[string]any) (msg storeDraftMsg, reason string, err error) {
	key, kerr := c.transportKey(ctx)
	if kerr != nil {
		c.log.Warnw("transport key unavailable, encoding with simulated codec", "err", kerr)
		reason = "payload encoded with simulated codec: " + kerr.Error()
	}
	seal := func(field string, plain []byte) string {
		if key != nil {
			blob, err := c.codec.Encrypt(key, plain)
			if err == nil {
				return blob
			}
			c.log.Warnw("live encrypt failed, falling back to simulated codec", "field", field, "err", err)
			reason = "payload encoded with simulated codec: live encryption failed: " + err.Error()
		}
		blob, _ := c.sim.Encrypt(nil, plain)
		return blob
	}

	if content != "" {
		msg.StoreDraft.EncryptedContent = seal("content", []byte(content))
	}
	if len(metadata) > 0 {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return msg, reason, err
		}
		msg.StoreDraft.EncryptedMetadata = seal("metadata", raw)
	}
	return msg, reason, nil
}

func (c *StorageClient) canSign() bool { return c.wallet != nil && c.codec != nil }

// StoreDraft сохраняет черновик. Результат всегда успешен; при сбое транзакции
// возвращается локальный mock-идентификатор с пометкой Simulated. Без
// транспортного ключа полезная нагрузка кодируется simulated-кодеком, но
// транзакция всё равно отправляется, а причина попадает в Reason.
func (c *StorageClient) StoreDraft(ctx context.Context, content string, metadata map[string]any) StoreResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	res := c.storeDraft(ctx, content, metadata)
	if c.journal != nil {
		id, err := c.journal.Record(ctx, c.Address(), content, metadata, res)
		if err != nil {
			c.log.Warnw("journal record failed", "err", err)
		} else {
			res.DraftID = id
		}
	}
	return res
}

func (c *StorageClient) storeDraft(ctx context.Context, content string, metadata map[string]any) StoreResult {
	if c.mode == ModeSimulated {
		return c.degraded("store_draft", c.reason, nil)
	}
	if !c.canSign() {
		return c.degraded("store_draft", "no credential configured", nil)
	}
	msg, reason, err := c.sealPayload(ctx, content, metadata)
	if err != nil {
		return c.degraded("store_draft", "metadata is not serializable", err)
	}
	h, err := c.ledger.SubmitStore(ctx, c.contract, msg)
	if err != nil {
		return c.degraded("store_draft", "transaction failed", err)
	}
	c.log.Infow("draft stored", "tx_hash", h.Hash, "reason", reason)
	return StoreResult{TxHash: h.Hash, Success: true, Reason: reason}
}

// StoreMetadata сохраняет только метаданные. В режиме live сбой даёт nil:
// это телеметрия, а не данные пользователя.
func (c *StorageClient) StoreMetadata(ctx context.Context, address string, metadata map[string]any) *TxReceipt {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode == ModeSimulated {
		return &TxReceipt{TxHash: c.mockTxID(), Simulated: true, Reason: c.reason}
	}
	if !c.canSign() {
		c.log.Warnw("metadata not stored", "address", address, "reason", "no credential configured")
		return nil
	}
	msg, reason, err := c.sealPayload(ctx, "", metadata)
	if err != nil {
		c.log.Warnw("metadata not stored", "address", address, "reason", "metadata is not serializable", "err", err)
		return nil
	}
	h, err := c.ledger.SubmitStore(ctx, c.contract, msg)
	if err != nil {
		c.log.Warnw("metadata not stored", "address", address, "reason", "transaction failed", "err", err)
		return nil
	}
	return &TxReceipt{TxHash: h.Hash, Reason: reason}
}

// RetrieveDraft читает черновик адреса (по умолчанию — собственного).
// Единственная ошибка — ErrNoAddress в режиме live без адреса.
func (c *StorageClient) RetrieveDraft(ctx context.Context, address string) (RetrieveResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	addr := address
	if addr == "" {
		addr = c.Address()
	}
	if addr == "" {
		return RetrieveResult{}, ErrNoAddress
	}
	if c.mode == ModeSimulated {
		return c.retrieveLocal(ctx, addr), nil
	}

	resp, err := c.ledger.Query(ctx, c.contract, map[string]any{"get_draft": map[string]string{"address": addr}})
	if errors.Is(err, ledger.ErrNotFound) {
		return RetrieveResult{Metadata: map[string]any{}, Owner: addr}, nil
	}
	if err != nil {
		c.log.Warnw("retrieve failed, returning placeholder", "address", addr, "err", err)
		return RetrieveResult{
			Content:   placeholderContent,
			Metadata:  map[string]any{"timestamp": c.now().Unix(), "error_fallback": true},
			Found:     true,
			Owner:     addr,
			Simulated: true,
			Reason:    "retrieval failed: " + err.Error(),
		}, nil
	}

	encContent, _ := resp["encrypted_content"].(string)
	encMetadata, _ := resp["encrypted_metadata"].(string)
	res := RetrieveResult{Metadata: map[string]any{}, Found: true, Owner: addr}
	key, err := c.transportKey(ctx)
	if err != nil {
		c.log.Warnw("transport key unavailable, decoding with simulated codec", "err", err)
		res.Reason = "transport key unavailable"
	}
	res.Content = string(c.open(key, encContent))
	if encMetadata != "" {
		if err := json.Unmarshal(c.open(key, encMetadata), &res.Metadata); err != nil {
			c.log.Warnw("draft metadata unreadable", "address", addr, "err", err)
			res.Metadata = map[string]any{}
		}
	}
	return res, nil
}

// open расшифровывает блоб live-кодеком; при сбое — simulated-кодеком (логируется).
func (c *StorageClient) open(key *crypto.TransportKey, blob string) []byte {
	if blob == "" {
		return nil
	}
	if key != nil && c.codec != nil {
		plain, err := c.codec.Decrypt(key, blob)
		if err == nil {
			return plain
		}
		c.log.Warnw("live decrypt failed, falling back to simulated codec", "err", err)
	}
	plain, _ := c.sim.Decrypt(nil, blob)
	return plain
}

func (c *StorageClient) retrieveLocal(ctx context.Context, addr string) RetrieveResult {
	res := RetrieveResult{Metadata: map[string]any{}, Owner: addr, Simulated: true, Reason: c.reason}
	if c.journal == nil {
		return res
	}
	d, found, err := c.journal.Latest(ctx, addr)
	if err != nil {
		c.log.Warnw("journal read failed", "address", addr, "err", err)
		return res
	}
	if !found {
		return res
	}
	res.Found = true
	res.Content = d.Content
	if d.Metadata != nil {
		res.Metadata = d.Metadata
	}
	return res
}

// DeleteDraft удаляет запись журнала и, в режиме live, черновик в контракте.
// Как и StoreDraft, результат всегда успешен.
func (c *StorageClient) DeleteDraft(ctx context.Context, draftID string) DeleteResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out DeleteResult
	if c.journal != nil && draftID != "" {
		deleted, err := c.journal.Delete(ctx, c.Address(), draftID)
		if err != nil {
			c.log.Warnw("journal delete failed", "id", draftID, "err", err)
		}
		out.JournalDeleted = deleted
	}
	switch {
	case c.mode == ModeSimulated:
		out.StoreResult = c.degraded("delete_draft", c.reason, nil)
	case !c.canSign():
		out.StoreResult = c.degraded("delete_draft", "no credential configured", nil)
	default:
		h, err := c.ledger.SubmitStore(ctx, c.contract, map[string]any{"delete_draft": map[string]any{}})
		if err != nil {
			out.StoreResult = c.degraded("delete_draft", "transaction failed", err)
		} else {
			out.StoreResult = StoreResult{TxHash: h.Hash, Success: true}
		}
	}
	out.DraftID = draftID
	return out
}

// ListDrafts возвращает историю черновиков из локального журнала, новые первыми.
func (c *StorageClient) ListDrafts(ctx context.Context, address string, limit int) ([]view.DraftRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	addr := address
	if addr == "" {
		addr = c.Address()
	}
	if addr == "" {
		return nil, ErrNoAddress
	}
	if c.journal == nil {
		return []view.DraftRecord{}, nil
	}
	return c.journal.List(ctx, addr, limit)
}

// ContractInfo запрашивает get_config контракта (только режим live).
func (c *StorageClient) ContractInfo(ctx context.Context) (ledger.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != ModeLive {
		return nil, errors.New("contract info requires live mode: " + c.reason)
	}
	return c.ledger.Query(ctx, c.contract, map[string]any{"get_config": map[string]any{}})
}
