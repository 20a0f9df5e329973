package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"solitaire-ledger/internal/ledger"
	"solitaire-ledger/internal/model"
)

type LedgerHandler struct {
	Ledger *ledger.Ledger
}

func ledgerResponse(info model.LedgerInfo) gin.H {
	return gin.H{
		"sequence":  info.Sequence,
		"timestamp": info.Timestamp,
		"liveUntil": info.LiveUntil,
		"archived":  info.Archived,
	}
}

func (h *LedgerHandler) Info(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ledger": ledgerResponse(h.Ledger.Info())})
}

func (h *LedgerHandler) Restore(c *gin.Context) {
	info, err := h.Ledger.Restore(c.Request.Context())
	if err != nil {
		log.Printf("restore failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Restore failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ledger": ledgerResponse(info)})
}
