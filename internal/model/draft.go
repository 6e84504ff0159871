package model

import "time"

// DraftRecord: запись локального журнала черновиков.
// Содержимое и метаданные хранятся зашифрованными локальным ключом.
type DraftRecord struct {
	ID    string `gorm:"primaryKey;type:uuid"`
	Owner string `gorm:"not null;index"`

	ContentCipher  []byte `gorm:"not null"`
	ContentNonce   []byte `gorm:"not null"`
	MetadataCipher []byte
	MetadataNonce  []byte

	TxHash    string `gorm:"index"`
	Simulated bool   `gorm:"not null;default:false"`
	Reason    string

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
