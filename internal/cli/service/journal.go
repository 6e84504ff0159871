package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/emlanis/secret-ai-writer/internal/cli/crypto"
	"github.com/emlanis/secret-ai-writer/internal/cli/model"
	view "github.com/emlanis/secret-ai-writer/internal/cli/model/view"
	dbmodel "github.com/emlanis/secret-ai-writer/internal/model"
	"github.com/emlanis/secret-ai-writer/internal/repo"
)

// Journal: локальная история черновиков. Содержимое шифруется локальным ключом
// (AES-GCM) и не покидает машину.
type Journal struct {
	repo repo.DraftRepository
	key  []byte
	log  *zap.SugaredLogger
	now  func() time.Time
}

// NewJournal создаёт журнал поверх репозитория и локального ключа.
func NewJournal(r repo.DraftRepository, key []byte, log *zap.SugaredLogger) *Journal {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Journal{repo: r, key: key, log: log, now: time.Now}
}

// Record шифрует и сохраняет черновик вместе с результатом отправки. Возвращает ID записи.
func (j *Journal) Record(ctx context.Context, owner, content string, metadata map[string]any, res StoreResult) (string, error) {
	contentCipher, contentNonce, err := crypto.Encrypt([]byte(content), j.key)
	if err != nil {
		return "", fmt.Errorf("encrypt content: %w", err)
	}
	rec := &dbmodel.DraftRecord{
		Owner:         owner,
		ContentCipher: contentCipher,
		ContentNonce:  contentNonce,
		TxHash:        res.TxHash,
		Simulated:     res.Simulated,
		Reason:        res.Reason,
		CreatedAt:     j.now().UTC(),
	}
	if metadata != nil {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return "", fmt.Errorf("marshal metadata: %w", err)
		}
		if rec.MetadataCipher, rec.MetadataNonce, err = crypto.Encrypt(raw, j.key); err != nil {
			return "", fmt.Errorf("encrypt metadata: %w", err)
		}
	}
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	rec.ID = id.String()
	if err := j.repo.Create(ctx, rec); err != nil {
		return "", fmt.Errorf("save journal record: %w", err)
	}
	return rec.ID, nil
}

// Latest возвращает самый свежий черновик владельца; found=false если записей нет.
func (j *Journal) Latest(ctx context.Context, owner string) (model.Draft, bool, error) {
	rec, err := j.repo.Latest(ctx, owner)
	if errors.Is(err, repo.ErrDraftNotFound) {
		return model.Draft{}, false, nil
	}
	if err != nil {
		return model.Draft{}, false, err
	}
	v, err := j.open(rec)
	if err != nil {
		return model.Draft{}, false, err
	}
	return model.Draft{Content: v.Content, Metadata: v.Metadata, Owner: v.Owner}, true, nil
}

// List возвращает расшифрованную историю владельца, новые первыми.
// Записи, которые не удалось расшифровать, пропускаются с предупреждением.
func (j *Journal) List(ctx context.Context, owner string, limit int) ([]view.DraftRecord, error) {
	recs, err := j.repo.ListByOwner(ctx, owner, limit)
	if err != nil {
		return nil, err
	}
	out := make([]view.DraftRecord, 0, len(recs))
	for i := range recs {
		v, err := j.open(&recs[i])
		if err != nil {
			j.log.Warnw("skip unreadable journal record", "id", recs[i].ID, "err", err)
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// Delete удаляет запись владельца.
func (j *Journal) Delete(ctx context.Context, owner, id string) (bool, error) {
	return j.repo.Delete(ctx, owner, id)
}

func (j *Journal) open(rec *dbmodel.DraftRecord) (view.DraftRecord, error) {
	plain, err := crypto.Decrypt(rec.ContentCipher, rec.ContentNonce, j.key)
	if err != nil {
		return view.DraftRecord{}, fmt.Errorf("decrypt content: %w", err)
	}
	v := view.DraftRecord{
		ID:        rec.ID,
		Owner:     rec.Owner,
		Content:   string(plain),
		Metadata:  map[string]any{},
		TxHash:    rec.TxHash,
		Simulated: rec.Simulated,
		CreatedAt: rec.CreatedAt.UTC().Format(time.RFC3339),
	}
	// метаданные не блокируют выдачу содержимого
	if len(rec.MetadataCipher) > 0 {
		raw, err := crypto.Decrypt(rec.MetadataCipher, rec.MetadataNonce, j.key)
		if err == nil {
			_ = json.Unmarshal(raw, &v.Metadata)
		} else {
			j.log.Warnw("journal metadata unreadable", "id", rec.ID, "err", err)
		}
	}
	return v, nil
}
