package order

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rentorama/rental-api/internal/service/payment"
	"github.com/rentorama/rental-api/pkg/errors"
	"github.com/rentorama/rental-api/pkg/httputil"
)

type Handler struct {
	service *payment.Service
	// UI pages the gateway callbacks redirect the customer to.
	processingURL string
	cancelledURL  string
}

func NewHandler(service *payment.Service, processingURL, cancelledURL string) *Handler {
	return &Handler{
		service:       service,
		processingURL: processingURL,
		cancelledURL:  cancelledURL,
	}
}

type createOrderRequest struct {
	ReservationID uuid.UUID `json:"reservation_id" binding:"required"`
	Amount        float64   `json:"amount" binding:"required,gt=0"`
}

func (h *Handler) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.Validation(err.Error()))
		return
	}

	approvalLink, err := h.service.CreateOrder(c.Request.Context(), req.ReservationID, req.Amount)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, httputil.Response{
		Success: true,
		Data:    gin.H{"approval_link": approvalLink},
	})
}

// CaptureOrder is the gateway's client-redirect callback. Whatever the
// internal outcome, the customer is sent to the processing page; the actual
// capture confirmation runs through the reconciliation pipeline.
func (h *Handler) CaptureOrder(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		httputil.RespondWithError(c, errors.Validation("token query parameter is required"))
		return
	}

	if err := h.service.CaptureOrder(c.Request.Context(), token); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	c.Redirect(http.StatusFound, h.processingURL)
}

func (h *Handler) CancelOrder(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		httputil.RespondWithError(c, errors.Validation("token query parameter is required"))
		return
	}

	if err := h.service.CancelOrder(c.Request.Context(), token); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	c.Redirect(http.StatusFound, h.cancelledURL)
}

// GetOrder is the authenticated order-lookup endpoint the reconciliation
// consumer calls. It captures with the gateway, so its answer is the
// authoritative status.
func (h *Handler) GetOrder(c *gin.Context) {
	token := c.Param("token")

	status, err := h.service.CaptureWithGateway(c.Request.Context(), token)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, status)
}
