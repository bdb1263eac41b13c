package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/layer-3/anchorkit/core"
	"github.com/layer-3/anchorkit/service"
)

// Handlers contains the HTTP handlers the origin backend exposes to its own
// clients: challenge retrieval, handshake completion and transfer operations.
type Handlers struct {
	engine  *service.HandshakeEngine
	tracker *service.SessionTracker
}

// NewHandlers creates the origin backend handlers
func NewHandlers(engine *service.HandshakeEngine, tracker *service.SessionTracker) *Handlers {
	return &Handlers{engine: engine, tracker: tracker}
}

// StartAuth requests a challenge for the client's account and returns it for
// subject-side signing.
func (h *Handlers) StartAuth(c *gin.Context) {
	var req struct {
		Account string `json:"account" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	handshake, err := h.engine.RequestChallenge(c.Request.Context(), req.Account)
	if err != nil {
		writeError(c, err)
		return
	}

	challenge := handshake.Challenge()
	c.JSON(http.StatusOK, gin.H{
		"transaction":        challenge.Envelope,
		"network_passphrase": challenge.NetworkID,
	})
}

// CompleteAuth receives the subject-signed envelope, co-signs it with the
// origin key, submits it and returns the verifier's access token.
func (h *Handlers) CompleteAuth(c *gin.Context) {
	var req struct {
		Transaction       string `json:"transaction" binding:"required"`
		NetworkPassphrase string `json:"network_passphrase" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	token, err := h.engine.Authenticate(c.Request.Context(), req.Transaction, req.NetworkPassphrase)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": string(token)})
}

// InitiateTransfer starts an interactive deposit or withdraw for the
// authenticated account.
func (h *Handlers) InitiateTransfer(c *gin.Context) {
	var req struct {
		AssetCode string `json:"asset_code" binding:"required"`
		Amount    string `json:"amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	mode := service.TransferMode(c.Param("mode"))
	account := c.GetString(contextAccountKey)
	token := core.AccessToken(c.GetString(contextTokenKey))

	session, err := h.tracker.Initiate(c.Request.Context(), mode, service.InitiateRequest{
		AssetCode: req.AssetCode,
		Account:   account,
		Amount:    req.Amount,
	}, token)
	if err != nil {
		writeError(c, err)
		return
	}

	data := session.Data()
	c.JSON(http.StatusOK, gin.H{
		"id":  data.ID,
		"url": data.InteractiveURL,
	})
}

// TransferStatus returns the verifier's current view of a transfer.
func (h *Handlers) TransferStatus(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
		return
	}

	token := core.AccessToken(c.GetString(contextTokenKey))

	data, err := h.tracker.Status(c.Request.Context(), id, token)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transaction": gin.H{
			"id":       data.ID,
			"status":   string(data.Status),
			"message":  data.Message,
			"terminal": data.Status.Terminal(),
		},
	})
}

// writeError maps core error kinds to HTTP status codes. Verifier rejections
// keep their raw payload in the "detail" field so clients can diagnose them.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, core.ErrMissingField),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrChallengeExpired),
		errors.Is(err, core.ErrSourceAccountMismatch),
		errors.Is(err, core.ErrDuplicateSignature),
		errors.Is(err, core.ErrSubjectSignatureMissing),
		errors.Is(err, core.ErrChallengeInvalid),
		errors.Is(err, core.ErrMalformedEnvelope):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrSubmissionRejected),
		errors.Is(err, core.ErrInitiationFailed),
		errors.Is(err, core.ErrDirectoryUnreachable),
		errors.Is(err, core.ErrEndpointNotAdvertised),
		errors.Is(err, core.ErrSubmissionTransport),
		errors.Is(err, core.ErrPollTransport),
		errors.Is(err, core.ErrChallengeRequestFailed):
		status = http.StatusBadGateway
	}

	var rejection *core.RejectionError
	if errors.As(err, &rejection) {
		c.JSON(status, gin.H{
			"error":  rejection.Kind.Error(),
			"detail": string(rejection.Body),
		})
		return
	}

	c.JSON(status, gin.H{"error": err.Error()})
}
