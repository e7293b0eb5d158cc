package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/puttlab/backend/internal/middleware"
	"github.com/puttlab/backend/internal/services"
	"github.com/puttlab/backend/pkg/response"
)

type PracticeHandler struct {
	practiceService *services.PracticeService
}

func NewPracticeHandler(practiceService *services.PracticeService) *PracticeHandler {
	return &PracticeHandler{practiceService: practiceService}
}

// ListTemplates returns the caller's templates
// GET /api/templates
func (h *PracticeHandler) ListTemplates(c *gin.Context) {
	var req services.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	items, total, err := h.practiceService.ListTemplates(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, practiceError(err, "Template not found"))
		return
	}

	response.Success(c, response.Page{Items: items, Total: total, Page: req.Page, PageSize: req.PageSize})
}

// GetTemplate returns one template
// GET /api/templates/:id
func (h *PracticeHandler) GetTemplate(c *gin.Context) {
	t, err := h.practiceService.GetTemplate(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		response.Error(c, practiceError(err, "Template not found"))
		return
	}

	response.Success(c, t)
}

// CreateTemplate
// POST /api/templates
func (h *PracticeHandler) CreateTemplate(c *gin.Context) {
	var req services.CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	t, err := h.practiceService.CreateTemplate(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, practiceError(err, "Template not found"))
		return
	}

	response.Created(c, t)
}

// UpdateTemplate
// PUT /api/templates/:id
func (h *PracticeHandler) UpdateTemplate(c *gin.Context) {
	var req services.UpdateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	t, err := h.practiceService.UpdateTemplate(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), &req)
	if err != nil {
		response.Error(c, practiceError(err, "Template not found"))
		return
	}

	response.Success(c, t)
}

// DeleteTemplate removes a template and its rounds
// DELETE /api/templates/:id
func (h *PracticeHandler) DeleteTemplate(c *gin.Context) {
	if err := h.practiceService.DeleteTemplate(c.Request.Context(), middleware.GetUserID(c), c.Param("id")); err != nil {
		response.Error(c, practiceError(err, "Template not found"))
		return
	}

	response.Success(c, gin.H{"message": "Template deleted"})
}

// ListRounds returns the caller's rounds, optionally for one template
// GET /api/rounds?template_id=
func (h *PracticeHandler) ListRounds(c *gin.Context) {
	var req services.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	items, total, err := h.practiceService.ListRounds(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, practiceError(err, "Round not found"))
		return
	}

	response.Success(c, response.Page{Items: items, Total: total, Page: req.Page, PageSize: req.PageSize})
}

// GetRound
// GET /api/rounds/:id
func (h *PracticeHandler) GetRound(c *gin.Context) {
	r, err := h.practiceService.GetRound(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		response.Error(c, practiceError(err, "Round not found"))
		return
	}

	response.Success(c, r)
}

// CreateRound records a round against a template
// POST /api/rounds
func (h *PracticeHandler) CreateRound(c *gin.Context) {
	var req services.CreateRoundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	r, err := h.practiceService.CreateRound(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, practiceError(err, "Template not found"))
		return
	}

	response.Created(c, r)
}

// DeleteRound
// DELETE /api/rounds/:id
func (h *PracticeHandler) DeleteRound(c *gin.Context) {
	if err := h.practiceService.DeleteRound(c.Request.Context(), middleware.GetUserID(c), c.Param("id")); err != nil {
		response.Error(c, practiceError(err, "Round not found"))
		return
	}

	response.Success(c, gin.H{"message": "Round deleted"})
}

func practiceError(err error, notFound string) error {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return response.NewNotFound(notFound)
	case errors.Is(err, services.ErrInvalidRound):
		return response.NewValidation(err.Error())
	default:
		return response.NewServerError()
	}
}
