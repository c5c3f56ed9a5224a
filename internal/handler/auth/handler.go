package auth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rentorama/rental-api/pkg/auth"
	"github.com/rentorama/rental-api/pkg/errors"
	"github.com/rentorama/rental-api/pkg/httputil"
	"github.com/rentorama/rental-api/pkg/security"
)

// Handler issues service-to-service bearer tokens against configured client
// credentials.
type Handler struct {
	jwtService       auth.JWTService
	hasher           security.SecretHasher
	clientID         string
	clientSecretHash string
	tokenExpiry      time.Duration
}

func NewHandler(jwtService auth.JWTService, hasher security.SecretHasher, clientID, clientSecretHash string, tokenExpiry time.Duration) *Handler {
	if tokenExpiry <= 0 {
		tokenExpiry = 15 * time.Minute
	}
	return &Handler{
		jwtService:       jwtService,
		hasher:           hasher,
		clientID:         clientID,
		clientSecretHash: clientSecretHash,
		tokenExpiry:      tokenExpiry,
	}
}

type tokenRequest struct {
	ClientID     string `json:"client_id" binding:"required"`
	ClientSecret string `json:"client_secret" binding:"required"`
}

func (h *Handler) IssueToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.Validation(err.Error()))
		return
	}

	if req.ClientID != h.clientID || h.hasher.Compare(h.clientSecretHash, req.ClientSecret) != nil {
		c.JSON(http.StatusUnauthorized, httputil.Response{
			Success: false,
			Error:   &httputil.Error{Code: http.StatusUnauthorized, Message: "invalid client credentials"},
		})
		return
	}

	token, err := h.jwtService.GenerateToken(req.ClientID)
	if err != nil {
		httputil.RespondWithError(c, errors.Internal(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_in":   int(h.tokenExpiry.Seconds()),
	})
}
