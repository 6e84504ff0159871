package fs

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"
	"go.uber.org/zap"

	"github.com/emlanis/secret-ai-writer/internal/cli/model"
)

// cacheFormatVersion: первый байт каждого файла кэша. Записи другой версии считаются промахом.
const cacheFormatVersion byte = 1

const entrySuffix = ".entry"

var (
	encMode cbor.EncMode
	decMode cbor.DecMode

	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("fs: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("fs: CBOR decoder initialization failed: " + err.Error())
	}
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("fs: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("fs: zstd decoder initialization failed: " + err.Error())
	}
}

type cacheEntry struct {
	Action   string `cbor:"1,keyasint"`
	Params   []byte `cbor:"2,keyasint"` // канонический JSON параметров
	Result   []byte `cbor:"3,keyasint"`
	StoredAt int64  `cbor:"4,keyasint"`
}

// ResultCache: файловый кэш результатов, адресуемый хешем (action, params).
// Записи не вытесняются и не устаревают; очистка каталога — внешняя задача.
type ResultCache struct {
	dir string
	log *zap.SugaredLogger
	now func() time.Time
}

// NewResultCache создаёт каталог кэша, если его нет.
func NewResultCache(dir string, log *zap.SugaredLogger) (*ResultCache, error) {
	if dir == "" {
		return nil, errors.New("empty cache dir")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &ResultCache{dir: dir, log: log, now: time.Now}, nil
}

// Dir возвращает каталог кэша.
func (c *ResultCache) Dir() string { return c.dir }

// Key возвращает hex BLAKE3 от канонического JSON {"action":..,"data":..}.
// Порядок ключей в params не влияет на результат.
func Key(action string, params any) (string, error) {
	canon, err := model.CanonicalJSON(map[string]any{"action": action, "data": params})
	if err != nil {
		return "", fmt.Errorf("canonicalize cache key: %w", err)
	}
	sum := blake3.Sum256(canon)
	return hex.EncodeToString(sum[:]), nil
}

func (c *ResultCache) path(key string) string {
	return filepath.Join(c.dir, key+entrySuffix)
}

// Get возвращает сохранённый результат. Повреждённая или нечитаемая запись — промах.
func (c *ResultCache) Get(action string, params any) ([]byte, bool) {
	key, err := Key(action, params)
	if err != nil {
		c.log.Warnw("cache key failed", "action", action, "err", err)
		return nil, false
	}
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.log.Warnw("cache entry unreadable", "key", key, "err", err)
		}
		return nil, false
	}
	entry, err := decodeEntry(data)
	if err != nil {
		c.log.Warnw("cache entry corrupt, treating as miss", "key", key, "err", err)
		return nil, false
	}
	if entry.Action != action {
		c.log.Warnw("cache entry action mismatch", "key", key, "want", action, "got", entry.Action)
		return nil, false
	}
	return entry.Result, true
}

// Put атомарно записывает результат: временный файл и rename, поэтому читатель
// никогда не видит запись наполовину. Параллельные записи одного ключа — last write wins.
func (c *ResultCache) Put(action string, params any, result []byte) error {
	canon, err := model.CanonicalJSON(params)
	if err != nil {
		return fmt.Errorf("canonicalize params: %w", err)
	}
	key, err := Key(action, params)
	if err != nil {
		return err
	}
	data, err := encodeEntry(cacheEntry{
		Action:   action,
		Params:   canon,
		Result:   result,
		StoredAt: c.now().Unix(),
	})
	if err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(c.dir, "entry-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp cache file: %w", err)
	}
	tmpPath := tmpFile.Name()
	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing cache entry: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp cache file: %w", err)
	}
	if err := os.Rename(tmpPath, c.path(key)); err != nil {
		return fmt.Errorf("renaming cache entry: %w", err)
	}
	success = true
	c.log.Debugw("cache put", "action", action, "key", key, "bytes", len(result))
	return nil
}

// GetJSON декодирует сохранённый JSON-результат в out. Ошибка декодирования — промах.
func (c *ResultCache) GetJSON(action string, params, out any) bool {
	raw, ok := c.Get(action, params)
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		c.log.Warnw("cache entry is not valid JSON, treating as miss", "action", action, "err", err)
		return false
	}
	return true
}

// PutJSON сохраняет v как JSON.
func (c *ResultCache) PutJSON(action string, params, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}
	return c.Put(action, params, raw)
}

func encodeEntry(e cacheEntry) ([]byte, error) {
	body, err := encMode.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode cache entry: %w", err)
	}
	out := make([]byte, 0, len(body)/2+1)
	out = append(out, cacheFormatVersion)
	return zstdEncoder.EncodeAll(body, out), nil
}

func decodeEntry(data []byte) (cacheEntry, error) {
	var e cacheEntry
	if len(data) == 0 {
		return e, errors.New("empty entry")
	}
	if data[0] != cacheFormatVersion {
		return e, fmt.Errorf("format version %d, want %d", data[0], cacheFormatVersion)
	}
	body, err := zstdDecoder.DecodeAll(data[1:], nil)
	if err != nil {
		return e, fmt.Errorf("decompress: %w", err)
	}
	if err := decMode.Unmarshal(body, &e); err != nil {
		return e, fmt.Errorf("decode: %w", err)
	}
	return e, nil
}
