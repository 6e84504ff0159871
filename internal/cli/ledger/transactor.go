package ledger

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/emlanis/secret-ai-writer/internal/cli/api"
	"github.com/emlanis/secret-ai-writer/internal/cli/crypto"
)

// Chain: операции узла, нужные транзактору. Реализуется api.LCDClient.
type Chain interface {
	Account(ctx context.Context, addr string) (api.Account, error)
	BroadcastTx(ctx context.Context, txBytes []byte) (api.BroadcastResult, error)
	BroadcastLegacy(ctx context.Context, stdTx any) (api.BroadcastResult, error)
	QueryContract(ctx context.Context, contract string, query []byte) (json.RawMessage, error)
}

// Signer: ключ отправителя транзакций. Реализуется crypto.Wallet.
type Signer interface {
	Address() string
	PubKey() []byte
	Sign(msg []byte) ([]byte, error)
}

// TxConfig: параметры сети и комиссии.
type TxConfig struct {
	ChainID  string
	CodeHash string
	Gas      uint64
	GasPrice float64
	Memo     string
}

// TxHandle: непрозрачный идентификатор принятой транзакции.
type TxHandle struct {
	Hash   string
	RawLog string
}

// Response: нормализованный ответ запроса к контракту.
type Response map[string]any

// TxRequest: подготовленный вызов контракта.
type TxRequest struct {
	Contract string
	Msg      []byte // JSON ExecuteMsg
	Account  api.Account
}

// TxStrategy: один способ отправить вызов контракта.
// Submit возвращает ошибку, обёрнутую в ErrUnsupportedInvocation, если узел не принимает эту форму вызова.
type TxStrategy interface {
	Name() string
	Submit(ctx context.Context, req TxRequest) (TxHandle, error)
}

// Transactor отправляет вызовы контракта, перебирая стратегии, и выполняет запросы.
type Transactor struct {
	chain      Chain
	signer     Signer
	strategies []TxStrategy
	log        *zap.SugaredLogger
}

// NewTransactor создаёт транзактор. Без явных стратегий используются execute и execute-batch.
func NewTransactor(chain Chain, signer Signer, cfg TxConfig, log *zap.SugaredLogger, strategies ...TxStrategy) *Transactor {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if len(strategies) == 0 {
		strategies = DefaultStrategies(chain, signer, cfg)
	}
	return &Transactor{chain: chain, signer: signer, strategies: strategies, log: log}
}

// DefaultStrategies возвращает стратегии в порядке приоритета.
func DefaultStrategies(chain Chain, signer Signer, cfg TxConfig) []TxStrategy {
	return []TxStrategy{
		&executeStrategy{chain: chain, signer: signer, cfg: cfg},
		&executeBatchStrategy{chain: chain, signer: signer, cfg: cfg},
	}
}

func isUnsupported(err error) bool { return errors.Is(err, ErrUnsupportedInvocation) }

// SubmitStore отправляет msg в контракт. Следующая стратегия пробуется только
// если предыдущая сообщила ErrUnsupportedInvocation; иначе возвращается *TxError.
func (t *Transactor) SubmitStore(ctx context.Context, contract string, msg any) (TxHandle, error) {
	if t.signer == nil {
		return TxHandle{}, &TxError{Strategy: "sign", Err: errors.New("no signer configured")}
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return TxHandle{}, &TxError{Strategy: "encode", Err: err}
	}
	acc, err := t.chain.Account(ctx, t.signer.Address())
	if err != nil {
		return TxHandle{}, &TxError{Strategy: "account", Err: err}
	}
	req := TxRequest{Contract: contract, Msg: raw, Account: acc}

	attempts := make([]Attempt[TxHandle], 0, len(t.strategies))
	for _, s := range t.strategies {
		s := s
		attempts = append(attempts, Attempt[TxHandle]{
			Name: s.Name(),
			Run:  func(ctx context.Context) (TxHandle, error) { return s.Submit(ctx, req) },
		})
	}
	h, name, err := FirstSuccess(ctx, attempts, isUnsupported, t.log)
	if err != nil {
		var txErr *TxError
		if errors.As(err, &txErr) {
			return TxHandle{}, txErr
		}
		return TxHandle{}, &TxError{Strategy: name, Err: err}
	}
	t.log.Infow("transaction broadcast", "contract", contract, "tx_hash", h.Hash)
	return h, nil
}

// Query выполняет запрос только на чтение. Отсутствие значения — ErrNotFound.
func (t *Transactor) Query(ctx context.Context, contract string, q any) (Response, error) {
	raw, err := json.Marshal(q)
	if err != nil {
		return nil, &TxError{Strategy: "encode", Err: err}
	}
	body, err := t.chain.QueryContract(ctx, contract, raw)
	if err != nil {
		if isNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, &TxError{Strategy: "query", Err: err}
	}
	resp, err := normalizeResponse(body)
	if err != nil {
		return nil, &TxError{Strategy: "query", Err: err}
	}
	if len(resp) == 0 {
		return nil, ErrNotFound
	}
	return resp, nil
}

func isNotFoundError(err error) bool {
	var se *api.StatusError
	if !errors.As(err, &se) {
		return false
	}
	// ошибки контракта приходят JSON-объектом; голый 404 маршрута сюда не относится
	body := strings.TrimSpace(se.Body)
	return strings.HasPrefix(body, "{") && strings.Contains(strings.ToLower(body), "not found")
}

// normalizeResponse приводит разные формы ответа к одному словарю:
// {"data":"<b64>"}, {"result":{"smart":"<b64>"}}, {"result":{...}} или сам объект.
func normalizeResponse(raw json.RawMessage) (Response, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var env map[string]json.RawMessage
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode query response: %w", err)
	}
	if data, ok := env["data"]; ok {
		var s string
		if json.Unmarshal(data, &s) == nil {
			return decodeB64Object(s)
		}
	}
	if result, ok := env["result"]; ok {
		var inner map[string]json.RawMessage
		if json.Unmarshal(result, &inner) == nil {
			if smart, ok := inner["smart"]; ok {
				var s string
				if json.Unmarshal(smart, &s) == nil {
					return decodeB64Object(s)
				}
			}
			var out Response
			if err := json.Unmarshal(result, &out); err != nil {
				return nil, err
			}
			return out, nil
		}
	}
	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeB64Object(s string) (Response, error) {
	if s == "" {
		return nil, nil
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode query data: %w", err)
	}
	var out Response
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode query data: %w", err)
	}
	return out, nil
}

// classifyBroadcast переводит ответ узла в TxHandle или ошибку стратегии.
func classifyBroadcast(strategy string, res api.BroadcastResult, err error) (TxHandle, error) {
	if err != nil {
		if api.IsUnsupported(err) {
			return TxHandle{}, fmt.Errorf("%s: %w: %v", strategy, ErrUnsupportedInvocation, err)
		}
		return TxHandle{}, &TxError{Strategy: strategy, Err: err}
	}
	if res.Code != 0 {
		// codespace sdk, code 2 — узел не смог разобрать транзакцию этой формы
		if res.Codespace == "sdk" && res.Code == 2 {
			return TxHandle{}, fmt.Errorf("%s: %w: %s", strategy, ErrUnsupportedInvocation, res.RawLog)
		}
		return TxHandle{}, &TxError{Strategy: strategy, Err: fmt.Errorf("tx %s failed with code %d: %s", res.TxHash, res.Code, res.RawLog)}
	}
	if res.TxHash == "" {
		return TxHandle{}, &TxError{Strategy: strategy, Err: errors.New("node returned no tx hash")}
	}
	return TxHandle{Hash: res.TxHash, RawLog: res.RawLog}, nil
}

// executeStrategy: MsgExecuteContract в protobuf-транзакции SIGN_MODE_DIRECT.
type executeStrategy struct {
	chain  Chain
	signer Signer
	cfg    TxConfig
}

func (s *executeStrategy) Name() string { return "execute" }

func (s *executeStrategy) Submit(ctx context.Context, req TxRequest) (TxHandle, error) {
	sender, err := crypto.DecodeAddress(s.signer.Address())
	if err != nil {
		return TxHandle{}, &TxError{Strategy: s.Name(), Err: err}
	}
	contract, err := crypto.DecodeAddress(req.Contract)
	if err != nil {
		return TxHandle{}, &TxError{Strategy: s.Name(), Err: err}
	}
	tx := directTx{
		ChainID:       s.cfg.ChainID,
		AccountNumber: req.Account.AccountNumber,
		Sequence:      req.Account.Sequence,
		Gas:           s.cfg.Gas,
		Fee:           FeeFor(s.cfg.Gas, s.cfg.GasPrice),
		Memo:          s.cfg.Memo,
		PubKey:        s.signer.PubKey(),
		Messages: [][]byte{
			encodeAny(typeURLExecuteContract, encodeExecuteContract(sender, contract, req.Msg, s.cfg.CodeHash)),
		},
	}
	body, authInfo := tx.bodyBytes(), tx.authInfoBytes()
	sig, err := s.signer.Sign(signDoc(body, authInfo, tx.ChainID, tx.AccountNumber))
	if err != nil {
		return TxHandle{}, &TxError{Strategy: s.Name(), Err: err}
	}
	res, err := s.chain.BroadcastTx(ctx, txRaw(body, authInfo, sig))
	return classifyBroadcast(s.Name(), res, err)
}

// executeBatchStrategy: amino StdTx со списком из одного сообщения через /txs.
type executeBatchStrategy struct {
	chain  Chain
	signer Signer
	cfg    TxConfig
}

func (s *executeBatchStrategy) Name() string { return "execute-batch" }

func (s *executeBatchStrategy) Submit(ctx context.Context, req TxRequest) (TxHandle, error) {
	msgs := []aminoMsg{{
		Type: aminoTypeExecuteContract,
		Value: aminoExecuteValue{
			Sender:           s.signer.Address(),
			Contract:         req.Contract,
			Msg:              base64.StdEncoding.EncodeToString(req.Msg),
			CallbackCodeHash: s.cfg.CodeHash,
			SentFunds:        []Coin{},
		},
	}}
	fee := stdFee{
		Amount: []Coin{FeeFor(s.cfg.Gas, s.cfg.GasPrice)},
		Gas:    strconv.FormatUint(s.cfg.Gas, 10),
	}
	signBytes, err := aminoSignBytes(s.cfg.ChainID, req.Account.AccountNumber, req.Account.Sequence, fee, s.cfg.Memo, msgs)
	if err != nil {
		return TxHandle{}, &TxError{Strategy: s.Name(), Err: err}
	}
	sig, err := s.signer.Sign(signBytes)
	if err != nil {
		return TxHandle{}, &TxError{Strategy: s.Name(), Err: err}
	}
	tx := stdTx{
		Msg:        msgs,
		Fee:        fee,
		Signatures: []stdSignature{newStdSignature(s.signer.PubKey(), sig)},
		Memo:       s.cfg.Memo,
	}
	res, err := s.chain.BroadcastLegacy(ctx, tx)
	return classifyBroadcast(s.Name(), res, err)
}
