package reservation

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/rentorama/rental-api/internal/model"
	"github.com/rentorama/rental-api/internal/service/availability"
	"github.com/rentorama/rental-api/internal/service/reservation"
	"github.com/rentorama/rental-api/pkg/errors"
	"github.com/rentorama/rental-api/pkg/httputil"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("reservationstatus", func(fl validator.FieldLevel) bool {
			return model.ReservationStatus(fl.Field().String()).Valid()
		})
	}
}

type Handler struct {
	service  *reservation.Service
	calendar *availability.Service
}

func NewHandler(service *reservation.Service, calendar *availability.Service) *Handler {
	return &Handler{service: service, calendar: calendar}
}

func (h *Handler) GetReservation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.Validation("invalid reservation ID"))
		return
	}

	res, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, res)
}

type updateStatusRequest struct {
	Status  model.ReservationStatus `json:"status" binding:"required,reservationstatus"`
	Version int64                   `json:"version" binding:"min=0"`
}

// UpdateStatus is the interactive status edit. The request carries the
// version the client read; a stale version is answered with 409.
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.Validation("invalid reservation ID"))
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.Validation(err.Error()))
		return
	}

	if err := h.service.UpdateStatus(c.Request.Context(), id, req.Status, req.Version); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	res, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, res)
}

func (h *Handler) FullyBookedDates(c *gin.Context) {
	modelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.Validation("invalid model ID"))
		return
	}

	dates, err := h.calendar.FullyBookedDates(c.Request.Context(), modelID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	days := make([]string, 0, len(dates))
	for _, d := range dates {
		days = append(days, d.Format(time.DateOnly))
	}
	httputil.RespondWithSuccess(c, gin.H{"fully_booked_dates": days})
}
