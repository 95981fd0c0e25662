package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/examind/proctor/internal/config"
	"github.com/examind/proctor/internal/middleware"
	"github.com/examind/proctor/internal/model"
	"github.com/examind/proctor/internal/response"
	"github.com/examind/proctor/internal/service"
	"github.com/examind/proctor/internal/validator"
)

// TestHandler handles test delivery and submission endpoints.
type TestHandler struct {
	cfg           *config.Config
	testService   *service.TestService
	resultService *service.ResultService
}

// NewTestHandler creates a new TestHandler.
func NewTestHandler(cfg *config.Config, testService *service.TestService, resultService *service.ResultService) *TestHandler {
	return &TestHandler{
		cfg:           cfg,
		testService:   testService,
		resultService: resultService,
	}
}

// GetTest godoc
// GET /api/v1/tests/:test_id
// Returns the student payload for a test, correct answers stripped.
func (h *TestHandler) GetTest(c *gin.Context) {
	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	test, err := h.testService.GetForStudent(c.Request.Context(), testID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTestNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrTestNotActive):
			response.Fail(c, http.StatusForbidden, response.ErrTestNotActive)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	test.ViolationLimit = h.cfg.ViolationLimit
	response.Success(c, http.StatusOK, gin.H{"test": test})
}

// ListMyResults godoc
// GET /api/v1/results/mine
// Returns the authenticated student's graded attempts.
func (h *TestHandler) ListMyResults(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	results, err := h.resultService.ListByStudent(c.Request.Context(), claims.StudentID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"results": results,
	})
}

// SubmitTest godoc
// POST /api/v1/tests/:test_id/submit
// Grades and records a submission. Repeat submissions are rejected with
// 403 ALREADY_ATTEMPTED regardless of payload.
func (h *TestHandler) SubmitTest(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var sub model.Submission
	if fields := validator.Bind(c, &sub); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.resultService.Submit(c.Request.Context(), claims.StudentID, testID, &sub)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAlreadyAttempted):
			response.Fail(c, http.StatusForbidden, response.ErrAlreadyAttempted)
		case errors.Is(err, service.ErrAnswerCount):
			response.Fail(c, http.StatusBadRequest, response.ErrAnswerCount)
		case errors.Is(err, service.ErrTestNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrTestNotActive):
			response.Fail(c, http.StatusForbidden, response.ErrTestNotActive)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"result": result,
	})
}
