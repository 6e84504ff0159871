package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/emlanis/secret-ai-writer/internal/cli/model"
)

// CompletionTimeout: потолок времени одного вызова модели.
const CompletionTimeout = 120 * time.Second

const (
	ActionGenerate = "generate"
	ActionEnhance  = "enhance"

	DefaultEnhancement = "grammar"

	defaultSystemInstruction = "You are a helpful AI writing assistant. " +
		"Provide creative, well-structured content while maintaining the user's privacy. " +
		"Focus on clarity, engagement, and proper grammar."
	genericEnhancement = "Improve this text while maintaining its core meaning:"
)

var enhancementPrompts = map[string]string{
	"grammar":      "Improve the grammar and correct any errors in this text while preserving meaning:",
	"creativity":   "Make this text more creative and engaging while preserving key points:",
	"conciseness":  "Make this text more concise without losing important information:",
	"professional": "Make this text more professional and formal:",
	"casual":       "Make this text more casual and conversational:",
}

var (
	ErrEmptyPrompt = errors.New("prompt is required")
	ErrEmptyDraft  = errors.New("draft_text is required")
)

// Completer: внешняя модель, генерирующая текст.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Cache: кэш результатов генерации.
type Cache interface {
	GetJSON(action string, params, out any) bool
	PutJSON(action string, params, v any) error
}

// MetadataStore сохраняет метаданные генерации.
type MetadataStore interface {
	StoreMetadata(ctx context.Context, address string, metadata map[string]any) *TxReceipt
}

type GenerateRequest struct {
	Prompt            string `json:"prompt"`
	UserAddress       string `json:"user_address"`
	SystemInstruction string `json:"system_instruction,omitempty"`
}

type EnhanceRequest struct {
	DraftText       string `json:"draft_text"`
	EnhancementType string `json:"enhancement_type"`
	UserAddress     string `json:"user_address"`
}

// GenerationResult: текст модели и метаданные вызова.
type GenerationResult struct {
	Content  string              `json:"content"`
	Metadata model.UsageMetadata `json:"metadata"`
	Cached   bool                `json:"cached"`
}

// Writer: конвейер генерации: кэш, модель, метаданные.
// Ошибки модели возвращаются вызывающему, ошибки сохранения метаданных — нет.
type Writer struct {
	completer Completer
	store     MetadataStore
	cache     Cache
	model     string
	log       *zap.SugaredLogger
	now       func() time.Time
}

// NewWriter создаёт конвейер. cache может быть nil.
func NewWriter(c Completer, store MetadataStore, cache Cache, modelName string, log *zap.SugaredLogger) *Writer {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Writer{completer: c, store: store, cache: cache, model: modelName, log: log, now: time.Now}
}

// Generate генерирует текст по запросу пользователя.
func (w *Writer) Generate(ctx context.Context, req GenerateRequest) (GenerationResult, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return GenerationResult{}, ErrEmptyPrompt
	}
	system := req.SystemInstruction
	if strings.TrimSpace(system) == "" {
		system = defaultSystemInstruction
	}
	return w.cached(ActionGenerate, req, func() (GenerationResult, error) {
		return w.run(ctx, system, req.Prompt, req.UserAddress)
	})
}

// Enhance улучшает готовый текст согласно типу улучшения; неизвестный тип — общая инструкция.
func (w *Writer) Enhance(ctx context.Context, req EnhanceRequest) (GenerationResult, error) {
	if strings.TrimSpace(req.DraftText) == "" {
		return GenerationResult{}, ErrEmptyDraft
	}
	if req.EnhancementType == "" {
		req.EnhancementType = DefaultEnhancement
	}
	instruction, ok := enhancementPrompts[req.EnhancementType]
	if !ok {
		instruction = genericEnhancement
	}
	system := fmt.Sprintf("You are a writing enhancement specialist focused on %s.\n"+
		"Provide the improved version without explaining your changes unless asked.", req.EnhancementType)
	prompt := instruction + "\n\n" + req.DraftText
	return w.cached(ActionEnhance, req, func() (GenerationResult, error) {
		return w.run(ctx, system, prompt, req.UserAddress)
	})
}

func (w *Writer) cached(action string, params any, produce func() (GenerationResult, error)) (GenerationResult, error) {
	if w.cache != nil {
		var hit GenerationResult
		if w.cache.GetJSON(action, params, &hit) {
			w.log.Debugw("cache hit", "action", action)
			hit.Cached = true
			return hit, nil
		}
	}
	res, err := produce()
	if err != nil {
		return GenerationResult{}, err
	}
	if w.cache != nil {
		if err := w.cache.PutJSON(action, params, res); err != nil {
			w.log.Warnw("cache put failed", "action", action, "err", err)
		}
	}
	return res, nil
}

func (w *Writer) run(ctx context.Context, system, prompt, address string) (GenerationResult, error) {
	start := w.now()
	cctx, cancel := context.WithTimeout(ctx, CompletionTimeout)
	defer cancel()

	content, err := w.completer.Complete(cctx, system, prompt)
	if err != nil {
		return GenerationResult{}, fmt.Errorf("content generation failed: %w", err)
	}
	end := w.now()

	meta := model.UsageMetadata{
		Timestamp:       end.Unix(),
		PromptLength:    utf8.RuneCountInString(prompt),
		ResponseLength:  utf8.RuneCountInString(content),
		ProcessingTime:  math.Round(end.Sub(start).Seconds()*100) / 100,
		EstimatedTokens: len(strings.Fields(prompt)) + len(strings.Fields(content)),
		Model:           w.model,
		ContentType:     "text",
	}
	if w.store != nil {
		if receipt := w.store.StoreMetadata(ctx, address, meta.Map()); receipt != nil {
			h := receipt.TxHash
			meta.TxHash = &h
		} else {
			w.log.Warnw("metadata not persisted, generation continues", "address", address)
		}
	}
	return GenerationResult{Content: content, Metadata: meta}, nil
}
