package handlers

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/SscSPs/credit_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/credit_ledger/internal/core/ports/services"
	"github.com/SscSPs/credit_ledger/internal/dto"
	"github.com/SscSPs/credit_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// generationHandler handles HTTP requests for paid generation jobs.
type generationHandler struct {
	generationService portssvc.GenerationSvcFacade
}

func newGenerationHandler(gs portssvc.GenerationSvcFacade) *generationHandler {
	return &generationHandler{
		generationService: gs,
	}
}

func registerGenerationRoutes(rg *gin.RouterGroup, gs portssvc.GenerationSvcFacade) {
	h := newGenerationHandler(gs)

	generations := rg.Group("/generations")
	{
		generations.POST("/estimate", h.estimate)
		generations.POST("", h.createGeneration)
		generations.GET("", h.listGenerations)
		generations.GET("/:jobID", h.getGeneration)
		generations.GET("/:jobID/content", h.getContent)
	}
}

// estimate godoc
// @Summary Estimate a generation
// @Description Prices a job and reports whether the caller can afford it. Nothing is charged.
// @Tags generations
// @Accept  json
// @Produce  json
// @Param   estimate body dto.EstimateRequest true "Job parameters"
// @Success 200 {object} dto.EstimateResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid job parameters"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 500 {object} dto.ErrorResponse "Failed to estimate"
// @Security BearerAuth
// @Router /generations/estimate [post]
func (h *generationHandler) estimate(c *gin.Context) {
	accountID, ok := requireAccountID(c)
	if !ok {
		return
	}

	var req dto.EstimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format", err)
		return
	}

	est, err := h.generationService.Estimate(c.Request.Context(), accountID, req.ToJobSpec())
	if err != nil {
		respondError(c, err, "Failed to estimate")
		return
	}
	c.JSON(http.StatusOK, dto.ToEstimateResponse(*est))
}

// createGeneration godoc
// @Summary Start a paid generation
// @Description Charges the job cost and submits it to the provider. Only one paid job may be in flight per account; a provider failure refunds the charge.
// @Tags generations
// @Accept  json
// @Produce  json
// @Param   generation body dto.CreateGenerationRequest true "Job parameters"
// @Success 202 {object} dto.CreateGenerationResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid job parameters"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 402 {object} dto.ErrorResponse "Insufficient credits"
// @Failure 409 {object} dto.ErrorResponse "A generation is already in progress"
// @Failure 429 {object} dto.ErrorResponse "Daily generation limit reached"
// @Failure 502 {object} dto.ErrorResponse "Provider failure, credits refunded"
// @Failure 500 {object} dto.ErrorResponse "Failed to start generation"
// @Security BearerAuth
// @Router /generations [post]
func (h *generationHandler) createGeneration(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountID, ok := requireAccountID(c)
	if !ok {
		return
	}

	var req dto.CreateGenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format", err)
		return
	}

	logger.Info("Received request to start generation",
		slog.String("model", req.Model),
		slog.Int("seconds", req.Seconds))

	result, err := h.generationService.Submit(c.Request.Context(), accountID, req.ToJobSpec())
	if err != nil {
		respondError(c, err, "Failed to start generation")
		return
	}

	logger.Info("Generation started",
		slog.String("job_id", result.Job.JobID),
		slog.Int64("new_balance", result.NewBalance))
	c.JSON(http.StatusAccepted, dto.ToCreateGenerationResponse(*result))
}

// listGenerations godoc
// @Summary List generations
// @Description Returns the caller's jobs, newest first.
// @Tags generations
// @Produce  json
// @Param   limit query int false "Page size (default 20, max 100)"
// @Param   offset query int false "Number of jobs to skip"
// @Success 200 {object} dto.ListJobsResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid query parameters"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 500 {object} dto.ErrorResponse "Failed to list generations"
// @Security BearerAuth
// @Router /generations [get]
func (h *generationHandler) listGenerations(c *gin.Context) {
	accountID, ok := requireAccountID(c)
	if !ok {
		return
	}

	var params dto.ListJobsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		badRequest(c, "Invalid query parameters", err)
		return
	}
	if params.Offset < 0 {
		params.Offset = 0
	}

	jobs, total, err := h.generationService.ListJobs(c.Request.Context(), accountID, params.Limit, params.Offset)
	if err != nil {
		respondError(c, err, "Failed to list generations")
		return
	}
	c.JSON(http.StatusOK, dto.ToListJobsResponse(jobs, total, params.Offset))
}

// getGeneration godoc
// @Summary Get a generation
// @Description Returns one of the caller's jobs. Jobs still running are refreshed from the provider.
// @Tags generations
// @Produce  json
// @Param   jobID path string true "Job ID"
// @Success 200 {object} dto.JobResponse
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 404 {object} dto.ErrorResponse "Job not found"
// @Failure 500 {object} dto.ErrorResponse "Failed to get generation"
// @Security BearerAuth
// @Router /generations/{jobID} [get]
func (h *generationHandler) getGeneration(c *gin.Context) {
	accountID, ok := requireAccountID(c)
	if !ok {
		return
	}

	job, err := h.generationService.GetJob(c.Request.Context(), accountID, c.Param("jobID"))
	if err != nil {
		respondError(c, err, "Failed to get generation")
		return
	}
	c.JSON(http.StatusOK, dto.ToJobResponse(*job))
}

// getContent godoc
// @Summary Download generation content
// @Description Streams the video, thumbnail or spritesheet of a completed job from the provider.
// @Tags generations
// @Produce  octet-stream
// @Param   jobID path string true "Job ID"
// @Param   variant query string false "video (default), thumbnail or spritesheet"
// @Success 200 {file} binary
// @Failure 400 {object} dto.ErrorResponse "Invalid variant"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 404 {object} dto.ErrorResponse "Job not found"
// @Failure 502 {object} dto.ErrorResponse "Provider failure"
// @Security BearerAuth
// @Router /generations/{jobID}/content [get]
func (h *generationHandler) getContent(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountID, ok := requireAccountID(c)
	if !ok {
		return
	}

	variant := domain.ContentVariant(c.Query("variant"))
	content, err := h.generationService.FetchContent(c.Request.Context(), accountID, c.Param("jobID"), variant)
	if err != nil {
		respondError(c, err, "Failed to fetch content")
		return
	}
	defer func(body io.Closer) {
		if cerr := body.Close(); cerr != nil {
			logger.Warn("Failed to close provider content stream", slog.String("error", cerr.Error()))
		}
	}(content.Body)

	contentType := content.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, content.ContentLength, contentType, content.Body, map[string]string{
		"Cache-Control": "private, max-age=3600",
	})
}
