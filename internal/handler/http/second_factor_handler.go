// File: internal/handler/http/second_factor_handler.go
package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	domainErrors "github.com/vikaspotluri123/mfa-service/internal/domain/errors"
	"github.com/vikaspotluri123/mfa-service/internal/domain/models"
	"github.com/vikaspotluri123/mfa-service/internal/domain/service"
	"github.com/vikaspotluri123/mfa-service/internal/handler/http/middleware"
)

// SecondFactorHandler serves the second-factor API surface. Factor
// payloads travel in a single-element array envelope under the
// second_factors key.
type SecondFactorHandler struct {
	mfa    *service.MfaService
	gate   *service.SessionGate
	logger *zap.Logger
}

// NewSecondFactorHandler creates a new SecondFactorHandler.
func NewSecondFactorHandler(mfa *service.MfaService, gate *service.SessionGate, logger *zap.Logger) *SecondFactorHandler {
	return &SecondFactorHandler{
		mfa:    mfa,
		gate:   gate,
		logger: logger,
	}
}

type factorEnvelope struct {
	SecondFactors []models.PublicFactor `json:"second_factors"`
}

// resolveTargetUser enforces the only-self permission: the :userID path
// segment (or "me") must match the authenticated user.
func (h *SecondFactorHandler) resolveTargetUser(c *gin.Context) (uuid.UUID, error) {
	authUserID := middleware.UserID(c)
	param := c.Param("userID")
	if param == "me" {
		return authUserID, nil
	}
	targetID, err := uuid.Parse(param)
	if err != nil {
		return uuid.Nil, domainErrors.Validation("userID must be a UUID or \"me\"")
	}
	if targetID != authUserID {
		return uuid.Nil, domainErrors.ErrNoPermission
	}
	return targetID, nil
}

func (h *SecondFactorHandler) factorID(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, domainErrors.Validation("factor id must be a UUID")
	}
	return id, nil
}

func (h *SecondFactorHandler) isTrusted(c *gin.Context) bool {
	return h.gate.IsTrusted(c.Request.Context(), middleware.SessionID(c))
}

// List handles GET /users/:userID/second-factors.
func (h *SecondFactorHandler) List(c *gin.Context) {
	userID, err := h.resolveTargetUser(c)
	if err != nil {
		RespondWithError(c, err, h.logger)
		return
	}

	factors, err := h.mfa.ListFactors(c.Request.Context(), userID)
	if err != nil {
		RespondWithError(c, err, h.logger)
		return
	}

	RespondWithData(c, http.StatusOK, factorEnvelope{
		SecondFactors: h.mfa.SerializeForAPI(factors, h.isTrusted(c)),
	})
}

// Read handles GET /users/:userID/second-factors/:id.
func (h *SecondFactorHandler) Read(c *gin.Context) {
	userID, err := h.resolveTargetUser(c)
	if err != nil {
		RespondWithError(c, err, h.logger)
		return
	}
	id, err := h.factorID(c)
	if err != nil {
		RespondWithError(c, err, h.logger)
		return
	}

	factor, err := h.mfa.GetFactor(c.Request.Context(), id, userID)
	if err != nil {
		RespondWithError(c, err, h.logger)
		return
	}

	RespondWithData(c, http.StatusOK, factorEnvelope{
		SecondFactors: h.mfa.SerializeForAPI([]*models.Factor{factor}, h.isTrusted(c)),
	})
}

// decodeSingleFactorPayload unwraps the single-element array envelope and
// rejects unknown keys.
func decodeSingleFactorPayload(c *gin.Context, allowedKeys ...string) (map[string]string, error) {
	var body struct {
		SecondFactors []map[string]json.RawMessage `json:"second_factors"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		return nil, domainErrors.Validation("body must be valid JSON")
	}
	if len(body.SecondFactors) != 1 {
		return nil, domainErrors.Validation("factor must be an array with 1 element")
	}

	allowed := make(map[string]bool, len(allowedKeys))
	for _, key := range allowedKeys {
		allowed[key] = true
	}

	payload := make(map[string]string)
	for key, raw := range body.SecondFactors[0] {
		if !allowed[key] {
			return nil, domainErrors.Validation(fmt.Sprintf("unknown property: .%s", key))
		}
		var value string
		if err := json.Unmarshal(raw, &value); err != nil {
			return nil, domainErrors.Validation(fmt.Sprintf("%s must be a string", key))
		}
		payload[key] = value
	}
	return payload, nil
}

// Create handles POST /users/:userID/second-factors.
func (h *SecondFactorHandler) Create(c *gin.Context) {
	userID, err := h.resolveTargetUser(c)
	if err != nil {
		RespondWithError(c, err, h.logger)
		return
	}

	payload, err := decodeSingleFactorPayload(c, "type", "name")
	if err != nil {
		RespondWithError(c, err, h.logger)
		return
	}

	factor, err := h.mfa.RegisterFactor(c.Request.Context(), userID,
		models.FactorType(payload["type"]), payload["name"])
	if err != nil {
		RespondWithError(c, err, h.logger)
		return
	}

	// The factor is pending, so serialization attaches the one-time
	// context payload.
	RespondWithData(c, http.StatusCreated, factorEnvelope{
		SecondFactors: h.mfa.SerializeForAPI([]*models.Factor{factor}, h.isTrusted(c)),
	})
}

// Edit handles PUT /users/:userID/second-factors/:id.
func (h *SecondFactorHandler) Edit(c *gin.Context) {
	userID, err := h.resolveTargetUser(c)
	if err != nil {
		RespondWithError(c, err, h.logger)
		return
	}
	id, err := h.factorID(c)
	if err != nil {
		RespondWithError(c, err, h.logger)
		return
	}

	payload, err := decodeSingleFactorPayload(c, "name", "status")
	if err != nil {
		RespondWithError(c, err, h.logger)
		return
	}

	update := service.FactorUpdate{}
	if name, ok := payload["name"]; ok {
		update.Name = &name
	}
	if status, ok := payload["status"]; ok {
		factorStatus := models.FactorStatus(status)
		update.Status = &factorStatus
	}

	factor, changed, err := h.mfa.UpdateFactor(c.Request.Context(), id, userID, update)
	if err != nil {
		RespondWithError(c, err, h.logger)
		return
	}

	c.Header("X-Cache-Invalidate", fmt.Sprintf("%t", changed))
	RespondWithData(c, http.StatusOK, factorEnvelope{
		SecondFactors: h.mfa.SerializeForAPI([]*models.Factor{factor}, h.isTrusted(c)),
	})
}

// Delete handles DELETE /users/:userID/second-factors/:id.
func (h *SecondFactorHandler) Delete(c *gin.Context) {
	userID, err := h.resolveTargetUser(c)
	if err != nil {
		RespondWithError(c, err, h.logger)
		return
	}
	id, err := h.factorID(c)
	if err != nil {
		RespondWithError(c, err, h.logger)
		return
	}

	if err := h.mfa.RemoveFactor(c.Request.Context(), id, userID); err != nil {
		RespondWithError(c, err, h.logger)
		return
	}

	RespondWithNoContent(c)
}

type verifyRequest struct {
	FactorID string `json:"factor_id" binding:"required"`
	Proof    string `json:"proof"`
}

// Verify handles POST /second-factors/verify: a login-time proof
// submission, only allowed while the session awaits its second factor.
func (h *SecondFactorHandler) Verify(c *gin.Context) {
	var request verifyRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		RespondWithError(c, domainErrors.Validation("factor_id is required"), h.logger)
		return
	}

	sessionID := middleware.SessionID(c)
	if !h.gate.AwaitingSecondFactor(c.Request.Context(), sessionID) {
		RespondWithError(c, domainErrors.ErrSecondFactorNotDue, h.logger)
		return
	}

	factorID, err := uuid.Parse(request.FactorID)
	if err != nil {
		RespondWithError(c, domainErrors.Validation("factor_id must be a UUID"), h.logger)
		return
	}

	factor, err := h.mfa.GetFactor(c.Request.Context(), factorID, middleware.UserID(c))
	if err != nil {
		RespondWithError(c, err, h.logger)
		return
	}

	outcome, err := h.mfa.ValidateSecondFactor(c.Request.Context(), factor, request.Proof, false)
	if err != nil {
		RespondWithError(c, err, h.logger)
		return
	}

	if outcome.Complete {
		if err := h.gate.MarkVerified(c.Request.Context(), sessionID); err != nil {
			RespondWithError(c, err, h.logger)
			return
		}
		RespondWithData(c, http.StatusCreated, outcome)
		return
	}
	RespondWithData(c, http.StatusOK, outcome)
}

type activateRequest struct {
	Proof string `json:"proof" binding:"required"`
}

// Activate handles POST /users/:userID/second-factors/:id/activate: the
// one-time activation proof for a pending factor.
func (h *SecondFactorHandler) Activate(c *gin.Context) {
	userID, err := h.resolveTargetUser(c)
	if err != nil {
		RespondWithError(c, err, h.logger)
		return
	}
	id, err := h.factorID(c)
	if err != nil {
		RespondWithError(c, err, h.logger)
		return
	}

	var request activateRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		RespondWithError(c, domainErrors.Validation("proof is required"), h.logger)
		return
	}

	factor, err := h.mfa.GetFactor(c.Request.Context(), id, userID)
	if err != nil {
		RespondWithError(c, err, h.logger)
		return
	}

	changed, err := h.mfa.ActivatePendingFactor(c.Request.Context(), factor, request.Proof)
	if err != nil {
		RespondWithError(c, err, h.logger)
		return
	}

	c.Header("X-Cache-Invalidate", fmt.Sprintf("%t", changed))
	RespondWithData(c, http.StatusOK, factorEnvelope{
		SecondFactors: h.mfa.SerializeForAPI([]*models.Factor{factor}, h.isTrusted(c)),
	})
}
