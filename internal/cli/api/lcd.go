package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

var ErrEmptyKey = errors.New("node returned an empty key")

// LCDClient: тонкий клиент REST-интерфейса (LCD) узла сети.
type LCDClient struct {
	base string
	hc   *http.Client
	log  *zap.SugaredLogger
}

// NewLCDClient создаёт клиента; timeout ограничивает каждый запрос к узлу.
func NewLCDClient(baseURL string, timeout time.Duration, log *zap.SugaredLogger) *LCDClient {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &LCDClient{
		base: strings.TrimRight(baseURL, "/"),
		hc:   NewHTTPClient(timeout),
		log:  log,
	}
}

// BaseURL возвращает адрес узла без завершающего слеша.
func (c *LCDClient) BaseURL() string { return c.base }

// TxKey читает ключ шифрования транзакций с маршрута registration/v1beta1.
func (c *LCDClient) TxKey(ctx context.Context) ([]byte, error) {
	var resp struct {
		Key string `json:"key"`
	}
	if err := GetJSON(ctx, c.hc, c.base+"/registration/v1beta1/tx-key", &resp); err != nil {
		return nil, err
	}
	return decodeKey(resp.Key)
}

// TxKeyLegacy читает ключ со старого маршрута /reg/tx-key.
func (c *LCDClient) TxKeyLegacy(ctx context.Context) ([]byte, error) {
	var resp struct {
		Key    string `json:"key"`
		Result struct {
			TxKey string `json:"TxKey"`
		} `json:"result"`
	}
	if err := GetJSON(ctx, c.hc, c.base+"/reg/tx-key", &resp); err != nil {
		return nil, err
	}
	if resp.Result.TxKey != "" {
		return decodeKey(resp.Result.TxKey)
	}
	return decodeKey(resp.Key)
}

func decodeKey(s string) ([]byte, error) {
	if strings.TrimSpace(s) == "" {
		return nil, ErrEmptyKey
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode tx key: %w", err)
	}
	if len(b) == 0 {
		return nil, ErrEmptyKey
	}
	return b, nil
}

// Account: номер аккаунта и sequence, нужные для подписи.
type Account struct {
	Address       string
	AccountNumber uint64
	Sequence      uint64
}

// Account читает состояние аккаунта addr.
func (c *LCDClient) Account(ctx context.Context, addr string) (Account, error) {
	var resp struct {
		Account struct {
			Address       string `json:"address"`
			AccountNumber string `json:"account_number"`
			Sequence      string `json:"sequence"`
		} `json:"account"`
	}
	if err := GetJSON(ctx, c.hc, c.base+"/cosmos/auth/v1beta1/accounts/"+url.PathEscape(addr), &resp); err != nil {
		return Account{}, err
	}
	acc := Account{Address: resp.Account.Address}
	var err error
	if acc.AccountNumber, err = parseUint(resp.Account.AccountNumber); err != nil {
		return Account{}, fmt.Errorf("account_number: %w", err)
	}
	if acc.Sequence, err = parseUint(resp.Account.Sequence); err != nil {
		return Account{}, fmt.Errorf("sequence: %w", err)
	}
	return acc, nil
}

func parseUint(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseUint(s, 10, 64)
}

// BroadcastResult: результат синхронной рассылки транзакции.
type BroadcastResult struct {
	TxHash    string `json:"txhash"`
	Code      uint32 `json:"code"`
	Codespace string `json:"codespace"`
	RawLog    string `json:"raw_log"`
}

// BroadcastTx рассылает protobuf-транзакцию через cosmos/tx/v1beta1.
func (c *LCDClient) BroadcastTx(ctx context.Context, txBytes []byte) (BroadcastResult, error) {
	req := map[string]string{
		"tx_bytes": base64.StdEncoding.EncodeToString(txBytes),
		"mode":     "BROADCAST_MODE_SYNC",
	}
	var resp struct {
		TxResponse BroadcastResult `json:"tx_response"`
	}
	if err := PostJSON(ctx, c.hc, c.base+"/cosmos/tx/v1beta1/txs", req, &resp); err != nil {
		return BroadcastResult{}, err
	}
	return resp.TxResponse, nil
}

// BroadcastLegacy рассылает amino StdTx через старый маршрут /txs.
func (c *LCDClient) BroadcastLegacy(ctx context.Context, stdTx any) (BroadcastResult, error) {
	req := map[string]any{"tx": stdTx, "mode": "sync"}
	var resp BroadcastResult
	if err := PostJSON(ctx, c.hc, c.base+"/txs", req, &resp); err != nil {
		return BroadcastResult{}, err
	}
	return resp, nil
}

// QueryContract выполняет smart-запрос к контракту и возвращает тело ответа как есть.
func (c *LCDClient) QueryContract(ctx context.Context, contract string, query []byte) (json.RawMessage, error) {
	u := fmt.Sprintf("%s/compute/v1beta1/query/%s?query=%s",
		c.base, url.PathEscape(contract), url.QueryEscape(base64.StdEncoding.EncodeToString(query)))
	resp, body, err := DoJSON(ctx, c.hc, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if err := decode(resp, body, nil); err != nil {
		return nil, err
	}
	c.log.Debugw("contract query", "contract", contract, "bytes", len(body))
	return json.RawMessage(body), nil
}
