package view

// DraftRecord: DTO для вывода истории черновиков в CLI и HTTP API.
type DraftRecord struct {
	ID        string         `json:"id"`
	Owner     string         `json:"owner"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata"`
	TxHash    string         `json:"tx_hash"`
	Simulated bool           `json:"simulated"`
	CreatedAt string         `json:"created_at"`
}
