package model

// Draft: текст пользователя и его метаданные, адресуемые адресом владельца.
type Draft struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
	Owner    string         `json:"owner"`
}

// UsageMetadata: статистика одного вызова генерации.
type UsageMetadata struct {
	Timestamp       int64   `json:"timestamp"` // unix, секунды
	PromptLength    int     `json:"prompt_length"`
	ResponseLength  int     `json:"response_length"`
	ProcessingTime  float64 `json:"processing_time"` // секунды, 2 знака
	EstimatedTokens int     `json:"estimated_tokens"`
	Model           string  `json:"model"`
	ContentType     string  `json:"content_type"`
	TxHash          *string `json:"tx_hash"`
}

// Map возвращает метаданные в виде словаря для шифрования и отправки в контракт.
func (m UsageMetadata) Map() map[string]any {
	out := map[string]any{
		"timestamp":        m.Timestamp,
		"prompt_length":    m.PromptLength,
		"response_length":  m.ResponseLength,
		"processing_time":  m.ProcessingTime,
		"estimated_tokens": m.EstimatedTokens,
		"model":            m.Model,
		"content_type":     m.ContentType,
	}
	if m.TxHash != nil {
		out["tx_hash"] = *m.TxHash
	} else {
		out["tx_hash"] = nil
	}
	return out
}
