package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/tradegate/config"
	"github.com/yourusername/tradegate/models"
	"github.com/yourusername/tradegate/utils"
	"gorm.io/gorm"
)

type UpgradeHandler struct {
	db   *gorm.DB
	vies utils.ViesClientInterface
	eori *utils.EoriValidator
}

func NewUpgradeHandler(db *gorm.DB, cfg *config.Config) *UpgradeHandler {
	return &UpgradeHandler{
		db:   db,
		vies: utils.NewViesClient(cfg.ViesEndpoint),
		eori: utils.NewEoriValidator(),
	}
}

func (h *UpgradeHandler) currentUser(c *gin.Context) *models.User {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return nil
	}
	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return nil
	}
	return &user
}

// Options reports which upgrades the user may start and the next step in the
// flow they are already in.
func (h *UpgradeHandler) Options(c *gin.Context) {
	user := h.currentUser(c)
	if user == nil {
		return
	}

	canUpgrade := user.AccountType == models.AccountFree
	nextStep := "contact_support"
	switch user.AccountType {
	case models.AccountFree:
		nextStep = "link_companies_house"
	case models.AccountUKExporter:
		var company models.CompanyUK
		err := h.db.First(&company, "user_id = ?", user.ID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound) || company.VATNumber == "":
			nextStep = "submit_vat"
		case company.EORINumber == "":
			nextStep = "submit_eori"
		default:
			nextStep = "complete"
		}
	case models.AccountEUMember:
		nextStep = "complete"
	case models.AccountForwarder:
		nextStep = "accept_invite"
	}

	c.JSON(http.StatusOK, gin.H{
		"can_upgrade_uk_exporter": canUpgrade,
		"can_upgrade_forwarder":   canUpgrade,
		"can_upgrade_eu_member":   canUpgrade,
		"next_step":               nextStep,
	})
}

type VATSubmissionRequest struct {
	VATNumber string `json:"vat_number" binding:"required"`
}

// SubmitVAT stores the VAT number for a UK exporter's company and derives the
// EORI number automatically when the VAT number checks out.
func (h *UpgradeHandler) SubmitVAT(c *gin.Context) {
	user := h.currentUser(c)
	if user == nil {
		return
	}

	var req VATSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var company models.CompanyUK
	if err := h.db.First(&company, "user_id = ?", user.ID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Company record not found"})
		return
	}

	company.VATNumber = req.VATNumber
	if h.eori.ValidateVAT(req.VATNumber) {
		company.EORINumber = h.eori.GenerateEORI(req.VATNumber)
		if err := h.db.Save(&company).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save company"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"eori_autodetected":    true,
			"requires_manual_eori": false,
			"eori_number":          company.EORINumber,
		})
		return
	}

	company.EORINumber = ""
	if err := h.db.Save(&company).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save company"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"eori_autodetected":    false,
		"requires_manual_eori": true,
	})
}

type EORISubmissionRequest struct {
	EORINumber string `json:"eori_number" binding:"required"`
}

// SubmitEORI stores a manually entered EORI number.
func (h *UpgradeHandler) SubmitEORI(c *gin.Context) {
	user := h.currentUser(c)
	if user == nil {
		return
	}

	var req EORISubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.eori.ValidateEORI(req.EORINumber) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid EORI format"})
		return
	}

	var company models.CompanyUK
	if err := h.db.First(&company, "user_id = ?", user.ID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Company record not found"})
		return
	}

	company.EORINumber = req.EORINumber
	if err := h.db.Save(&company).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save company"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "saved"})
}

type EUVerifyVATRequest struct {
	CountryCode string `json:"country_code" binding:"required"`
	VATNumber   string `json:"vat_number" binding:"required"`
}

// VerifyEUVAT checks the VAT number against the VIES registry and upgrades the
// user to EU member when the registry confirms it.
func (h *UpgradeHandler) VerifyEUVAT(c *gin.Context) {
	user := h.currentUser(c)
	if user == nil {
		return
	}
	if user.AccountType != models.AccountFree && user.AccountType != models.AccountEUMember {
		c.JSON(http.StatusConflict, gin.H{"error": "Account type switching is not allowed. Contact support."})
		return
	}

	var req EUVerifyVATRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.vies.CheckVat(req.CountryCode, req.VATNumber)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "VAT registry unavailable"})
		return
	}

	if result.Valid {
		user.Plan = models.PlanPro
		user.AccountType = models.AccountEUMember
		user.Status = models.UserStatusActive
		if err := h.db.Save(user).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update account"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":   result.Valid,
		"name":    result.Name,
		"address": result.Address,
	})
}
