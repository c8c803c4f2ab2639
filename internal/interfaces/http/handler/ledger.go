package handler

import (
	invoicingapp "github.com/garage/backend/internal/application/invoicing"
	"github.com/gin-gonic/gin"
)

// LedgerHandler handles fiscal ledger audit endpoints
type LedgerHandler struct {
	BaseHandler
	invoiceService *invoicingapp.InvoiceService
	auditService   *invoicingapp.AuditService
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(invoiceService *invoicingapp.InvoiceService, auditService *invoicingapp.AuditService) *LedgerHandler {
	return &LedgerHandler{
		invoiceService: invoiceService,
		auditService:   auditService,
	}
}

// Status godoc
// @Summary      Get ledger status
// @Description  Report whether issuance is frozen for the tenant
// @Tags         ledger
// @Produce      json
// @Success      200 {object} dto.Response{data=invoicingapp.LedgerStatusResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /invoicing/ledger/status [get]
func (h *LedgerHandler) Status(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identity not found in token")
		return
	}

	status, err := h.invoiceService.LedgerStatus(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, status)
}

// Verify godoc
// @Summary      Verify the fiscal chain
// @Description  Recompute the tenant's full fingerprint chain. A detected break freezes further issuance
// @Tags         ledger
// @Produce      json
// @Success      200 {object} dto.Response{data=invoicingapp.LedgerVerificationResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /invoicing/ledger/verify [post]
func (h *LedgerHandler) Verify(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identity not found in token")
		return
	}

	result, err := h.auditService.VerifyTenantLedger(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}
