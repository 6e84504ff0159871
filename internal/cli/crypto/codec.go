package crypto

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

// TransportKey: публичный ключ шифрования транзакций, полученный от узла сети.
type TransportKey struct {
	Key        []byte
	ResolvedAt time.Time
}

// Codec шифрует и расшифровывает полезную нагрузку. Результат Encrypt — base64-текст.
type Codec interface {
	Encrypt(key *TransportKey, plain []byte) (string, error)
	Decrypt(key *TransportKey, blob string) ([]byte, error)
}

var (
	ErrNoTransportKey = errors.New("transport key is not available")
	ErrForeignBlob    = errors.New("blob was encrypted for another client seed")
	ErrShortBlob      = errors.New("encrypted blob is too short")
)

const (
	seedLen      = 32
	msgNonceLen  = 32
	gcmNonceLen  = 12
	gcmTagLen    = 16
	blobOverhead = msgNonceLen + seedLen + gcmNonceLen + gcmTagLen
)

// hkdfSalt совпадает с солью, которую использует сеть при выводе ключа транзакции.
var hkdfSalt, _ = hex.DecodeString("000000000000000000024bead8df69990852c202db0e0097c1a12ea637d7e96d")

// LiveCodec реализует шифрование в стиле сети: X25519(seed, txKey) -> HKDF -> AES-256-GCM.
// Каждое сообщение получает свой nonce, поэтому ключ AES уникален для сообщения.
type LiveCodec struct {
	seed [seedLen]byte
	pub  [seedLen]byte
}

var _ Codec = (*LiveCodec)(nil)

// NewLiveCodec создаёт кодек для клиентского seed (приватный ключ X25519).
func NewLiveCodec(seed [seedLen]byte) (*LiveCodec, error) {
	pub, err := curve25519.X25519(seed[:], curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("derive client public key: %w", err)
	}
	c := &LiveCodec{seed: seed}
	copy(c.pub[:], pub)
	return c, nil
}

// PublicKey возвращает публичный ключ клиента, который передаётся вместе с шифртекстом.
func (c *LiveCodec) PublicKey() []byte {
	out := make([]byte, seedLen)
	copy(out, c.pub[:])
	return out
}

func (c *LiveCodec) Encrypt(key *TransportKey, plain []byte) (string, error) {
	if key == nil || len(key.Key) == 0 {
		return "", ErrNoTransportKey
	}
	nonce := make([]byte, msgNonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	aesKey, err := c.messageKey(key.Key, nonce)
	if err != nil {
		return "", err
	}
	ct, gcmNonce, err := Encrypt(plain, aesKey)
	if err != nil {
		return "", err
	}
	out := make([]byte, 0, len(nonce)+seedLen+len(gcmNonce)+len(ct))
	out = append(out, nonce...)
	out = append(out, c.pub[:]...)
	out = append(out, gcmNonce...)
	out = append(out, ct...)
	return base64.StdEncoding.EncodeToString(out), nil
}

func (c *LiveCodec) Decrypt(key *TransportKey, blob string) ([]byte, error) {
	if key == nil || len(key.Key) == 0 {
		return nil, ErrNoTransportKey
	}
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, fmt.Errorf("decode blob: %w", err)
	}
	if len(raw) < blobOverhead {
		return nil, ErrShortBlob
	}
	nonce := raw[:msgNonceLen]
	pub := raw[msgNonceLen : msgNonceLen+seedLen]
	if !bytes.Equal(pub, c.pub[:]) {
		return nil, ErrForeignBlob
	}
	gcmNonce := raw[msgNonceLen+seedLen : msgNonceLen+seedLen+gcmNonceLen]
	ct := raw[msgNonceLen+seedLen+gcmNonceLen:]

	aesKey, err := c.messageKey(key.Key, nonce)
	if err != nil {
		return nil, err
	}
	return Decrypt(ct, gcmNonce, aesKey)
}

func (c *LiveCodec) messageKey(txKey, nonce []byte) ([]byte, error) {
	shared, err := curve25519.X25519(c.seed[:], txKey)
	if err != nil {
		return nil, fmt.Errorf("x25519: %w", err)
	}
	ikm := make([]byte, 0, len(shared)+len(nonce))
	ikm = append(ikm, shared...)
	ikm = append(ikm, nonce...)
	out := make([]byte, keyLen)
	if _, err := io.ReadFull(hkdf.New(sha256.New, ikm, hkdfSalt, nil), out); err != nil {
		return nil, fmt.Errorf("hkdf: %w", err)
	}
	return out, nil
}

// SeedFromPrivateKey детерминированно выводит seed кодека из приватного ключа кошелька,
// чтобы черновик, зашифрованный одним процессом, расшифровывался следующим.
func SeedFromPrivateKey(priv []byte) ([seedLen]byte, error) {
	var seed [seedLen]byte
	r := hkdf.New(sha256.New, priv, hkdfSalt, []byte("secret-ai-writer/tx-encryption-seed"))
	if _, err := io.ReadFull(r, seed[:]); err != nil {
		return seed, err
	}
	return seed, nil
}

// SimulatedCodec: обратимая подмена шифрования: base64(base64(x)).
// Это НЕ механизм защиты, а заглушка для режима симуляции.
type SimulatedCodec struct{}

var _ Codec = SimulatedCodec{}

func (SimulatedCodec) Encrypt(_ *TransportKey, plain []byte) (string, error) {
	inner := base64.StdEncoding.EncodeToString(plain)
	return base64.StdEncoding.EncodeToString([]byte(inner)), nil
}

// Decrypt никогда не возвращает ошибку: некорректный вход отдаётся без изменений.
func (SimulatedCodec) Decrypt(_ *TransportKey, blob string) ([]byte, error) {
	inner, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return []byte(blob), nil
	}
	plain, err := base64.StdEncoding.DecodeString(string(inner))
	if err != nil {
		return []byte(blob), nil
	}
	return plain, nil
}
