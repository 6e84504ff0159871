package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/emlanis/secret-ai-writer/internal/cli/model/view"
	"github.com/emlanis/secret-ai-writer/internal/cli/service"
)

// listLimit: сколько записей журнала отдаёт retrieve-all-drafts.
const listLimit = 100

// DraftHandler обслуживает хранилище черновиков.
type DraftHandler struct {
	Service DraftStore
	Logger  *zap.SugaredLogger
}

func NewDraftHandler(store DraftStore, logger *zap.SugaredLogger) *DraftHandler {
	return &DraftHandler{Service: store, Logger: logger}
}

type storeDraftRequest struct {
	Content     string         `json:"content"`
	UserAddress string         `json:"user_address"`
	Metadata    map[string]any `json:"metadata"`
}

type addressRequest struct {
	UserAddress string `json:"user_address"`
	DraftID     string `json:"draft_id,omitempty"`
}

type listResponse struct {
	Owner  string             `json:"owner"`
	Drafts []view.DraftRecord `json:"drafts"`
}

// Store POST /api/store-draft
func (h *DraftHandler) Store(w http.ResponseWriter, r *http.Request) {
	var req storeDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Warnw("Store: invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "Content is required")
		return
	}
	addr := userAddress(r, req.UserAddress)
	if addr == "" {
		writeError(w, http.StatusBadRequest, "User address is required")
		return
	}
	if own := h.Service.Address(); own != "" && own != addr {
		// черновик подписывается кошельком сервера, а не адресом из запроса
		h.Logger.Infow("Store: request address differs from signer", "user_address", addr, "signer", own)
	}
	res := h.Service.StoreDraft(r.Context(), req.Content, req.Metadata)
	writeJSON(w, http.StatusOK, res)
}

// Retrieve POST /api/retrieve-draft
func (h *DraftHandler) Retrieve(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeAddress(w, r, "Retrieve")
	if !ok {
		return
	}
	res, err := h.Service.RetrieveDraft(r.Context(), req.UserAddress)
	if err != nil {
		h.respondFailure(w, "Retrieve", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// List POST /api/retrieve-all-drafts
func (h *DraftHandler) List(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeAddress(w, r, "List")
	if !ok {
		return
	}
	drafts, err := h.Service.ListDrafts(r.Context(), req.UserAddress, listLimit)
	if err != nil {
		h.respondFailure(w, "List", err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Owner: req.UserAddress, Drafts: drafts})
}

// Delete POST /api/delete-draft
func (h *DraftHandler) Delete(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeAddress(w, r, "Delete")
	if !ok {
		return
	}
	if req.DraftID == "" {
		writeError(w, http.StatusBadRequest, "Draft ID is required")
		return
	}
	writeJSON(w, http.StatusOK, h.Service.DeleteDraft(r.Context(), req.DraftID))
}

// Status GET /api/status
func (h *DraftHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"mode":     h.Service.Mode().String(),
		"reason":   h.Service.ModeReason(),
		"address":  h.Service.Address(),
		"contract": h.Service.Contract(),
	})
}

func (h *DraftHandler) decodeAddress(w http.ResponseWriter, r *http.Request, op string) (addressRequest, bool) {
	var req addressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Warnw(op+": invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "invalid request")
		return req, false
	}
	req.UserAddress = userAddress(r, req.UserAddress)
	if req.UserAddress == "" {
		writeError(w, http.StatusBadRequest, "User address is required")
		return req, false
	}
	return req, true
}

func (h *DraftHandler) respondFailure(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, service.ErrNoAddress) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.Logger.Errorw(op+": storage error", "error", err)
	writeError(w, http.StatusInternalServerError, err.Error())
}
