package ledger

import (
	"math"
	"strconv"

	"google.golang.org/protobuf/encoding/protowire"
)

const (
	typeURLExecuteContract = "/secret.compute.v1beta1.MsgExecuteContract"
	typeURLSecp256k1PubKey = "/cosmos.crypto.secp256k1.PubKey"

	// SIGN_MODE_DIRECT
	signModeDirect = 1

	FeeDenom = "uscrt"
)

// Coin: сумма в минимальных единицах.
type Coin struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

// FeeFor возвращает комиссию ceil(gas * gasPrice) в uscrt.
func FeeFor(gas uint64, gasPrice float64) Coin {
	amount := uint64(math.Ceil(float64(gas) * gasPrice))
	return Coin{Denom: FeeDenom, Amount: strconv.FormatUint(amount, 10)}
}

// directTx: поля, из которых собирается protobuf-транзакция SIGN_MODE_DIRECT.
type directTx struct {
	ChainID       string
	AccountNumber uint64
	Sequence      uint64
	Gas           uint64
	Fee           Coin
	Memo          string
	PubKey        []byte
	Messages      [][]byte // закодированные google.protobuf.Any
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// encodeAny кодирует google.protobuf.Any{type_url, value}.
func encodeAny(typeURL string, value []byte) []byte {
	var b []byte
	b = appendString(b, 1, typeURL)
	return appendBytes(b, 2, value)
}

// encodeExecuteContract кодирует MsgExecuteContract. Адреса передаются сырыми байтами.
func encodeExecuteContract(sender, contract, msg []byte, codeHash string) []byte {
	var b []byte
	b = appendBytes(b, 1, sender)
	b = appendBytes(b, 2, contract)
	b = appendBytes(b, 3, msg)
	return appendString(b, 4, codeHash)
}

func encodeCoin(c Coin) []byte {
	var b []byte
	b = appendString(b, 1, c.Denom)
	return appendString(b, 2, c.Amount)
}

func (tx directTx) bodyBytes() []byte {
	var b []byte
	for _, m := range tx.Messages {
		b = appendBytes(b, 1, m)
	}
	return appendString(b, 2, tx.Memo)
}

func (tx directTx) authInfoBytes() []byte {
	var pub []byte
	pub = appendBytes(pub, 1, tx.PubKey)

	// mode_info { single { mode } }
	var single []byte
	single = appendVarint(single, 1, signModeDirect)
	var modeInfo []byte
	modeInfo = appendBytes(modeInfo, 1, single)

	var signer []byte
	signer = appendBytes(signer, 1, encodeAny(typeURLSecp256k1PubKey, pub))
	signer = appendBytes(signer, 2, modeInfo)
	signer = appendVarint(signer, 3, tx.Sequence)

	var fee []byte
	fee = appendBytes(fee, 1, encodeCoin(tx.Fee))
	fee = appendVarint(fee, 2, tx.Gas)

	var b []byte
	b = appendBytes(b, 1, signer)
	return appendBytes(b, 2, fee)
}

// signDoc кодирует SignDoc{body_bytes, auth_info_bytes, chain_id, account_number}.
func signDoc(body, authInfo []byte, chainID string, accountNumber uint64) []byte {
	var b []byte
	b = appendBytes(b, 1, body)
	b = appendBytes(b, 2, authInfo)
	b = appendString(b, 3, chainID)
	return appendVarint(b, 4, accountNumber)
}

// txRaw кодирует TxRaw{body_bytes, auth_info_bytes, signatures}.
func txRaw(body, authInfo, signature []byte) []byte {
	var b []byte
	b = appendBytes(b, 1, body)
	b = appendBytes(b, 2, authInfo)
	return appendBytes(b, 3, signature)
}
