// internal/handlers/transaction.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Kavithma-Dharmathilake/CarSaleWebApp/internal/models"
	"github.com/Kavithma-Dharmathilake/CarSaleWebApp/internal/services"
	"github.com/Kavithma-Dharmathilake/CarSaleWebApp/internal/store"
	"github.com/Kavithma-Dharmathilake/CarSaleWebApp/internal/utils"
)

type TransactionHandler struct {
	transactionService *services.TransactionService
}

func NewTransactionHandler(transactionService *services.TransactionService) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
	}
}

// POST /api/transactions
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	txn, err := h.transactionService.CreateTransaction(c.Request.Context(), userID, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, txn)
}

// GET /api/transactions/:id
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid transaction ID", nil)
		return
	}

	txn, err := h.transactionService.GetTransaction(c.Request.Context(), id, userID, utils.IsAdminFromContext(c))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, txn)
}

// GET /api/transactions/user/:userId
func (h *TransactionHandler) GetUserTransactions(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	targetID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid user ID", nil)
		return
	}

	params := utils.GetPaginationParams(c)

	var status *models.TransactionStatus
	if v := c.Query("status"); v != "" {
		s := models.TransactionStatus(v)
		status = &s
	}

	txns, total, err := h.transactionService.ListUserTransactions(
		c.Request.Context(), targetID, actorID, utils.IsAdminFromContext(c), status, params)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(txns, total, params))
}

// GET /api/transactions
func (h *TransactionHandler) GetTransactions(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	filter := store.TransactionFilter{
		Page:  params.Page,
		Limit: params.Limit,
	}
	if v := c.Query("status"); v != "" {
		status := models.TransactionStatus(v)
		filter.Status = &status
	}
	if v := c.Query("userId"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			filter.UserID = &id
		}
	}
	if v := c.Query("carId"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			filter.CarID = &id
		}
	}

	txns, total, err := h.transactionService.ListTransactions(c.Request.Context(), filter)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(txns, total, params))
}

// GET /api/transactions/stats
func (h *TransactionHandler) GetStatistics(c *gin.Context) {
	stats, err := h.transactionService.GetStatistics(c.Request.Context())
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, stats)
}

// PUT /api/transactions/:id/complete
func (h *TransactionHandler) CompleteTransaction(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid transaction ID", nil)
		return
	}

	// The body is optional; callers may complete with no gateway metadata.
	var req services.CompleteTransactionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request body", err.Error())
			return
		}
	}

	txn, err := h.transactionService.CompleteTransaction(
		c.Request.Context(), id, userID, utils.IsAdminFromContext(c), &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, txn)
}

// PUT /api/transactions/:id/cancel
func (h *TransactionHandler) CancelTransaction(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid transaction ID", nil)
		return
	}

	var req services.CancelTransactionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request body", err.Error())
			return
		}
	}

	txn, err := h.transactionService.CancelTransaction(
		c.Request.Context(), id, userID, utils.IsAdminFromContext(c), req.Reason)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, txn)
}

// POST /api/transactions/:id/refund
func (h *TransactionHandler) ProcessRefund(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid transaction ID", nil)
		return
	}

	var req services.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	txn, err := h.transactionService.ProcessRefund(c.Request.Context(), id, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, txn)
}
