package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	defaultOllamaEndpoint = "http://localhost:11434"
	defaultOllamaModel    = "llama2"
	ollamaTemperature     = 0.7
)

// OllamaClient генерирует текст через локальный сервер Ollama (/api/chat).
type OllamaClient struct {
	endpoint string
	model    string
	client   *http.Client
}

// NewOllamaClient создаёт клиента; пустые значения заменяются значениями по умолчанию.
func NewOllamaClient(endpoint, model string, timeout time.Duration) *OllamaClient {
	if endpoint == "" {
		endpoint = defaultOllamaEndpoint
	}
	if model == "" {
		model = defaultOllamaModel
	}
	return &OllamaClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		model:    model,
		client:   NewHTTPClient(timeout),
	}
}

// Model возвращает имя модели, которой отправляются запросы.
func (o *OllamaClient) Model() string { return o.model }

// Complete отправляет системную инструкцию и сообщение пользователя и возвращает ответ модели.
func (o *OllamaClient) Complete(ctx context.Context, system, user string) (string, error) {
	req := ollamaChatRequest{
		Model:  o.model,
		Stream: false,
		Messages: []ollamaMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Options: ollamaOptions{Temperature: ollamaTemperature},
	}
	var resp ollamaChatResponse
	if err := PostJSON(ctx, o.client, o.endpoint+"/api/chat", req, &resp); err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	if resp.Error != "" {
		return "", fmt.Errorf("ollama: %s", resp.Error)
	}
	if strings.TrimSpace(resp.Message.Content) == "" {
		return "", errors.New("ollama returned an empty message")
	}
	return resp.Message.Content, nil
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  ollamaOptions   `json:"options"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Error   string        `json:"error"`
}
