package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/emlanis/secret-ai-writer/internal/cli/service"
)

// GenerationHandler обслуживает генерацию и улучшение текста.
type GenerationHandler struct {
	Writer Writer
	Logger *zap.SugaredLogger
}

func NewGenerationHandler(w Writer, logger *zap.SugaredLogger) *GenerationHandler {
	return &GenerationHandler{Writer: w, Logger: logger}
}

// Generate POST /api/generate
func (h *GenerationHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req service.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Warnw("Generate: invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "Prompt is required")
		return
	}
	req.UserAddress = userAddress(r, req.UserAddress)

	res, err := h.Writer.Generate(r.Context(), req)
	if err != nil {
		h.respondFailure(w, "Generate", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Enhance POST /api/enhance
func (h *GenerationHandler) Enhance(w http.ResponseWriter, r *http.Request) {
	var req service.EnhanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Warnw("Enhance: invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.DraftText == "" {
		writeError(w, http.StatusBadRequest, "Draft text is required")
		return
	}
	if req.EnhancementType == "" {
		writeError(w, http.StatusBadRequest, "Enhancement type is required")
		return
	}
	req.UserAddress = userAddress(r, req.UserAddress)

	res, err := h.Writer.Enhance(r.Context(), req)
	if err != nil {
		h.respondFailure(w, "Enhance", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *GenerationHandler) respondFailure(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, service.ErrEmptyPrompt) || errors.Is(err, service.ErrEmptyDraft) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.Logger.Errorw(op+": generation failed", "error", err)
	writeError(w, http.StatusInternalServerError, err.Error())
}
