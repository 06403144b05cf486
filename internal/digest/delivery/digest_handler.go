package delivery

import (
	"net/http"
	"strconv"

	digestdomain "mailbrief-backend/internal/digest/domain"
	digestdto "mailbrief-backend/internal/digest/dto"
	"mailbrief-backend/internal/digest/repository"
	"mailbrief-backend/internal/digest/usecase"
	"mailbrief-backend/internal/notification"

	"github.com/gin-gonic/gin"
)

// DigestHandler handles digest generation and delivery endpoints
type DigestHandler struct {
	digestUsecase usecase.DigestUsecase
	digestRepo    repository.DigestRepository
	dispatcher    *notification.Dispatcher
}

// NewDigestHandler creates a new DigestHandler
func NewDigestHandler(digestUsecase usecase.DigestUsecase, digestRepo repository.DigestRepository, dispatcher *notification.Dispatcher) *DigestHandler {
	return &DigestHandler{
		digestUsecase: digestUsecase,
		digestRepo:    digestRepo,
		dispatcher:    dispatcher,
	}
}

// Generate handles POST /api/digests/generate for a single account.
func (h *DigestHandler) Generate(c *gin.Context) {
	userID := c.GetString("userID")

	var req digestdto.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.AccountID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "account_id required"})
		return
	}

	window := digestdomain.ParseWindow(req.Range, req.Days)
	result := h.digestUsecase.GenerateAccountSummary(c.Request.Context(), userID, req.AccountID, window, req.Force)
	if !result.Success {
		c.JSON(http.StatusUnprocessableEntity, result)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GenerateAll handles POST /api/digests/generate-all across every
// connected account of the user.
func (h *DigestHandler) GenerateAll(c *gin.Context) {
	userID := c.GetString("userID")

	var req digestdto.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	window := digestdomain.ParseWindow(req.Range, req.Days)
	result, err := h.digestUsecase.GenerateAllAccountSummaries(c.Request.Context(), userID, window, req.Force)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list accounts"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// Status handles GET /api/digests/status
func (h *DigestHandler) Status(c *gin.Context) {
	userID := c.GetString("userID")

	status, err := h.digestUsecase.GetUserSummaryStatus(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load digest status"})
		return
	}

	c.JSON(http.StatusOK, status)
}

// List handles GET /api/digests
func (h *DigestHandler) List(c *gin.Context) {
	userID := c.GetString("userID")

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	digests, err := h.digestRepo.ListByUser(userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list digests"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"digests": digests})
}

// Notify handles POST /api/notifications/send for one digest over one
// channel.
func (h *DigestHandler) Notify(c *gin.Context) {
	userID := c.GetString("userID")

	var req digestdto.NotifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	digest, err := h.digestRepo.FindByID(req.DigestID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load digest"})
		return
	}
	if digest == nil || digest.UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "digest not found"})
		return
	}

	result := h.dispatcher.Notify(c.Request.Context(), userID, digest, req.Channel)
	if !result.Success {
		c.JSON(http.StatusUnprocessableEntity, result)
		return
	}

	c.JSON(http.StatusOK, result)
}
