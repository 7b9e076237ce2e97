package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/tradegate/config"
	"github.com/yourusername/tradegate/utils"
)

// LookupHandler exposes the tariff search and FX quote capabilities directly,
// so the frontend can offer code search and conversion previews outside the
// validation flow.
type LookupHandler struct {
	tariff utils.TariffClientInterface
	fx     utils.FXClientInterface
}

func NewLookupHandler(cfg *config.Config) *LookupHandler {
	return &LookupHandler{
		tariff: utils.NewTariffClient(cfg.TariffAPIBaseURL, time.Duration(cfg.TariffCacheTTLSeconds)*time.Second),
		fx:     utils.NewFXClient(cfg.FXAPIBaseURL, cfg.FXAPIKey),
	}
}

type TariffSearchRequest struct {
	Q     string `json:"q" binding:"required"`
	Limit int    `json:"limit"`
}

func (h *LookupHandler) TariffSearch(c *gin.Context) {
	var req TariffSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Limit <= 0 {
		req.Limit = 5
	}

	results, err := h.tariff.Search(req.Q, req.Limit)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Tariff lookup unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (h *LookupHandler) TariffChildren(c *gin.Context) {
	children, err := h.tariff.Children(c.Param("code"))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Tariff lookup unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"children": children})
}

func (h *LookupHandler) FXQuote(c *gin.Context) {
	base := c.Query("base")
	quote := c.Query("quote")
	if base == "" || quote == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "base and quote required"})
		return
	}
	amount, err := strconv.ParseFloat(c.DefaultQuery("amount", "1"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}

	result, err := h.fx.Quote(base, quote, amount)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "FX quote unavailable"})
		return
	}
	c.JSON(http.StatusOK, result)
}
