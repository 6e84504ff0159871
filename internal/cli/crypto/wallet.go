package crypto

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/cosmos/go-bip39"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // cosmos addresses are defined over RIPEMD-160
)

const (
	// AddressPrefix: bech32-префикс адресов сети.
	AddressPrefix = "secret"
	// CoinType: SLIP-44 coin type сети (m/44'/529'/0'/0/0).
	CoinType uint32 = 529
)

var ErrInvalidMnemonic = errors.New("invalid mnemonic")

// Wallet: ключ secp256k1, выведенный из мнемоники, и его адрес.
type Wallet struct {
	priv    *btcec.PrivateKey
	pub     []byte
	address string
}

// NewWalletFromMnemonic выводит ключ по пути BIP44 m/44'/529'/0'/0/0.
func NewWalletFromMnemonic(mnemonic string) (*Wallet, error) {
	mnemonic = strings.Join(strings.Fields(mnemonic), " ")
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	seed := bip39.NewSeed(mnemonic, "")

	key, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("master key: %w", err)
	}
	path := []uint32{
		hdkeychain.HardenedKeyStart + 44,
		hdkeychain.HardenedKeyStart + CoinType,
		hdkeychain.HardenedKeyStart + 0,
		0,
		0,
	}
	for _, idx := range path {
		key, err = key.Derive(idx)
		if err != nil {
			return nil, fmt.Errorf("derive %d: %w", idx, err)
		}
	}
	priv, err := key.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("private key: %w", err)
	}
	return newWallet(priv)
}

func newWallet(priv *btcec.PrivateKey) (*Wallet, error) {
	pub := priv.PubKey().SerializeCompressed()
	addr, err := AddressFromPubKey(pub)
	if err != nil {
		return nil, err
	}
	return &Wallet{priv: priv, pub: pub, address: addr}, nil
}

// Address возвращает bech32-адрес кошелька.
func (w *Wallet) Address() string { return w.address }

// PubKey возвращает сжатый публичный ключ (33 байта).
func (w *Wallet) PubKey() []byte {
	out := make([]byte, len(w.pub))
	copy(out, w.pub)
	return out
}

// PrivateKeyBytes используется только для вывода seed кодека.
func (w *Wallet) PrivateKeyBytes() []byte { return w.priv.Serialize() }

// Sign подписывает sha256(msg) и возвращает подпись R||S (64 байта, low-S).
func (w *Wallet) Sign(msg []byte) ([]byte, error) {
	hash := sha256.Sum256(msg)
	sig := ecdsa.SignCompact(w.priv, hash[:], true)
	// первый байт — recovery id
	return sig[1:], nil
}

// AddressFromPubKey вычисляет bech32(ripemd160(sha256(pub))).
func AddressFromPubKey(pub []byte) (string, error) {
	sha := sha256.Sum256(pub)
	h := ripemd160.New()
	_, _ = h.Write(sha[:])
	return EncodeAddress(h.Sum(nil))
}

// EncodeAddress кодирует сырые байты адреса в bech32 с префиксом сети.
func EncodeAddress(raw []byte) (string, error) {
	conv, err := bech32.ConvertBits(raw, 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.Encode(AddressPrefix, conv)
}

// DecodeAddress проверяет префикс и возвращает сырые байты адреса.
func DecodeAddress(addr string) ([]byte, error) {
	hrp, data, err := bech32.Decode(addr)
	if err != nil {
		return nil, fmt.Errorf("decode address %q: %w", addr, err)
	}
	if hrp != AddressPrefix {
		return nil, fmt.Errorf("address %q has prefix %q, want %q", addr, hrp, AddressPrefix)
	}
	return bech32.ConvertBits(data, 5, 8, false)
}
