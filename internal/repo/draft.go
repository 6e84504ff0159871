package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/emlanis/secret-ai-writer/internal/model"
)

var ErrDraftNotFound = errors.New("draft not found")

// DraftRepository: доступ к локальному журналу черновиков.
type DraftRepository interface {
	// Create сохраняет новую запись журнала.
	Create(ctx context.Context, rec *model.DraftRecord) error
	// Latest возвращает самую свежую запись владельца или ErrDraftNotFound.
	Latest(ctx context.Context, owner string) (*model.DraftRecord, error)
	// ListByOwner возвращает записи владельца, новые первыми. limit <= 0 — без ограничения.
	ListByOwner(ctx context.Context, owner string, limit int) ([]model.DraftRecord, error)
	// Get возвращает запись по ID или ErrDraftNotFound.
	Get(ctx context.Context, id string) (*model.DraftRecord, error)
	// Delete удаляет запись владельца; deleted=false если записи не было.
	Delete(ctx context.Context, owner, id string) (deleted bool, err error)
}

type draftRepo struct {
	db *gorm.DB
}

// NewDraftRepository создаёт реализацию репозитория журнала на gorm.
func NewDraftRepository(db *gorm.DB) DraftRepository {
	return &draftRepo{db: db}
}

func (r *draftRepo) Create(ctx context.Context, rec *model.DraftRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *draftRepo) Latest(ctx context.Context, owner string) (*model.DraftRecord, error) {
	var rec model.DraftRecord
	err := r.db.WithContext(ctx).
		Where("owner = ?", owner).
		Order("created_at DESC").Order("id DESC").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDraftNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *draftRepo) ListByOwner(ctx context.Context, owner string, limit int) ([]model.DraftRecord, error) {
	var out []model.DraftRecord
	q := r.db.WithContext(ctx).
		Where("owner = ?", owner).
		Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *draftRepo) Get(ctx context.Context, id string) (*model.DraftRecord, error) {
	var rec model.DraftRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDraftNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *draftRepo) Delete(ctx context.Context, owner, id string) (bool, error) {
	tx := r.db.WithContext(ctx).Where("id = ? AND owner = ?", id, owner).Delete(&model.DraftRecord{})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}
