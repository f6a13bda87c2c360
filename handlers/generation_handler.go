package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"reelcomposer/models"
	"reelcomposer/services"
)

// Generator produces segment resources
type Generator interface {
	Enabled() bool
	Generate(ctx context.Context, req models.GenerateRequest) (*models.GenerateResponse, error)
}

// GenerationHandler serves POST /api/segments/generate
type GenerationHandler struct {
	generator Generator
}

func NewGenerationHandler(generator Generator) *GenerationHandler {
	return &GenerationHandler{generator: generator}
}

func (h *GenerationHandler) Generate(c *gin.Context) {
	if !h.generator.Enabled() {
		writeError(c, services.ErrGenerationDisabled)
		return
	}

	var req models.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request", Details: err.Error()})
		return
	}

	resp, err := h.generator.Generate(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
