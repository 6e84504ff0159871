package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/emlanis/secret-ai-writer/internal/cli/model/view"
	"github.com/emlanis/secret-ai-writer/internal/cli/service"
	"github.com/emlanis/secret-ai-writer/internal/config"
	"github.com/emlanis/secret-ai-writer/internal/middleware"
)

// Writer: конвейер генерации текста.
type Writer interface {
	Generate(ctx context.Context, req service.GenerateRequest) (service.GenerationResult, error)
	Enhance(ctx context.Context, req service.EnhanceRequest) (service.GenerationResult, error)
}

// DraftStore: клиент конфиденциального хранилища черновиков.
type DraftStore interface {
	StoreDraft(ctx context.Context, content string, metadata map[string]any) service.StoreResult
	RetrieveDraft(ctx context.Context, address string) (service.RetrieveResult, error)
	ListDrafts(ctx context.Context, address string, limit int) ([]view.DraftRecord, error)
	DeleteDraft(ctx context.Context, draftID string) service.DeleteResult
	Mode() service.Mode
	ModeReason() string
	Address() string
	Contract() string
}

type Handler struct {
	Router chi.Router
}

// NewHandler разводящий для хендлеров
func NewHandler(writer Writer, store DraftStore, logger *zap.SugaredLogger, cfg *config.Config) *Handler {
	r := chi.NewRouter()

	r.Use(middleware.WithGzip)
	r.Use(middleware.WithLogging)
	r.Use(middleware.WithAuth(cfg.AuthSecret))

	gen := NewGenerationHandler(writer, logger)
	drafts := NewDraftHandler(store, logger)

	r.Post("/api/generate", gen.Generate)
	r.Post("/api/enhance", gen.Enhance)

	r.Post("/api/store-draft", drafts.Store)
	r.Post("/api/retrieve-draft", drafts.Retrieve)
	r.Post("/api/retrieve-all-drafts", drafts.List)
	r.Post("/api/delete-draft", drafts.Delete)

	r.Get("/api/status", drafts.Status)
	r.Get("/api/health", drafts.Status)

	return &Handler{Router: r}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// userAddress берёт адрес из тела запроса, иначе из JWT.
func userAddress(r *http.Request, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	addr, _ := middleware.GetUserAddressFromContext(r.Context())
	return addr
}
