package ledger

import (
	"encoding/base64"
	"strconv"

	"github.com/emlanis/secret-ai-writer/internal/cli/model"
)

const (
	aminoTypeExecuteContract = "wasm/MsgExecuteContract"
	aminoTypePubKey          = "tendermint/PubKeySecp256k1"
)

type aminoMsg struct {
	Type  string `json:"type"`
	Value any    `json:"value"`
}

type aminoExecuteValue struct {
	Sender           string `json:"sender"`
	Contract         string `json:"contract"`
	Msg              string `json:"msg"` // base64
	CallbackCodeHash string `json:"callback_code_hash"`
	SentFunds        []Coin `json:"sent_funds"`
}

type stdFee struct {
	Amount []Coin `json:"amount"`
	Gas    string `json:"gas"`
}

type aminoPubKey struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type stdSignature struct {
	PubKey    aminoPubKey `json:"pub_key"`
	Signature string      `json:"signature"`
}

// stdTx: транзакция в формате amino JSON для маршрута /txs.
type stdTx struct {
	Msg        []aminoMsg     `json:"msg"`
	Fee        stdFee         `json:"fee"`
	Signatures []stdSignature `json:"signatures"`
	Memo       string         `json:"memo"`
}

type aminoSignDoc struct {
	AccountNumber string     `json:"account_number"`
	ChainID       string     `json:"chain_id"`
	Fee           stdFee     `json:"fee"`
	Memo          string     `json:"memo"`
	Msgs          []aminoMsg `json:"msgs"`
	Sequence      string     `json:"sequence"`
}

// aminoSignBytes возвращает канонический JSON документа подписи (ключи отсортированы).
func aminoSignBytes(chainID string, accountNumber, sequence uint64, fee stdFee, memo string, msgs []aminoMsg) ([]byte, error) {
	return model.CanonicalJSON(aminoSignDoc{
		AccountNumber: strconv.FormatUint(accountNumber, 10),
		ChainID:       chainID,
		Fee:           fee,
		Memo:          memo,
		Msgs:          msgs,
		Sequence:      strconv.FormatUint(sequence, 10),
	})
}

func newStdSignature(pub, sig []byte) stdSignature {
	return stdSignature{
		PubKey:    aminoPubKey{Type: aminoTypePubKey, Value: base64.StdEncoding.EncodeToString(pub)},
		Signature: base64.StdEncoding.EncodeToString(sig),
	}
}
