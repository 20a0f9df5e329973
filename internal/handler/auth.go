package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"solitaire-ledger/internal/auth"
)

type AuthHandler struct {
	Challenges  *auth.Challenges
	TokenConfig auth.TokenConfig
}

type challengeBody struct {
	PublicKey string `json:"publicKey"`
}

type authBody struct {
	PublicKey string `json:"publicKey"`
	Challenge string `json:"challenge"`
	Signature string `json:"signature"`
}

// Challenge issues the nonce the caller has to sign with its key.
func (h *AuthHandler) Challenge(c *gin.Context) {
	var body challengeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if !auth.ValidIdentity(body.PublicKey) {
		c.JSON(http.StatusBadRequest, gin.H{"error": auth.ErrInvalidPublicKey.Error()})
		return
	}

	value, expiresAt := h.Challenges.Issue(body.PublicKey)
	c.JSON(http.StatusOK, gin.H{"challenge": value, "expiresAt": expiresAt.UnixMilli()})
}

// Auth trades a signed challenge for a bearer token bound to the public key.
func (h *AuthHandler) Auth(c *gin.Context) {
	var body authBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if !auth.ValidIdentity(body.PublicKey) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": auth.ErrInvalidPublicKey.Error()})
		return
	}
	// Only a valid signature spends the challenge.
	if err := auth.VerifySignature(body.PublicKey, body.Challenge, body.Signature); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	if err := h.Challenges.Consume(body.PublicKey, body.Challenge); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	token, err := auth.CreateToken(body.PublicKey, h.TokenConfig)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Token creation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "token": token, "identity": body.PublicKey})
}
