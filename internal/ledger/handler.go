package ledger

import (
	"yayasan-backend/internal/apperror"
	"yayasan-backend/internal/database"
	"yayasan-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type CreateAccountRequest struct {
	Code        string             `json:"code"`
	Name        string             `json:"name"`
	Type        models.AccountType `json:"type"` // asset|liability|equity|income|expense
	Description string             `json:"description"`
}

type AccountResponse struct {
	ID          uint               `json:"id"`
	Code        string             `json:"code"`
	Name        string             `json:"name"`
	Type        models.AccountType `json:"type"`
	Balance     float64            `json:"balance"`
	Description string             `json:"description"`
	IsActive    bool               `json:"is_active"`
}

func toAccountResponse(acc *models.Account) AccountResponse {
	return AccountResponse{
		ID:          acc.ID,
		Code:        acc.Code,
		Name:        acc.Name,
		Type:        acc.Type,
		Balance:     acc.Balance.InexactFloat64(),
		Description: acc.Description,
		IsActive:    acc.IsActive,
	}
}

// POST /api/admin/accounts (admin)
func CreateAccountHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateAccountRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Body permintaan tidak valid")
		}

		acc, err := CreateAccount(database.DB, CreateAccountInput{
			Code:        body.Code,
			Name:        body.Name,
			Type:        body.Type,
			Description: body.Description,
		})
		if err != nil {
			return fiber.NewError(apperror.StatusCode(err), err.Error())
		}

		return c.Status(fiber.StatusCreated).JSON(toAccountResponse(acc))
	}
}

// GET /api/accounts
func ListAccountsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		accs, err := ListAccounts(database.DB)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Akun tidak bisa dimuat")
		}

		res := make([]AccountResponse, 0, len(accs))
		for i := range accs {
			res = append(res, toAccountResponse(&accs[i]))
		}
		return c.JSON(res)
	}
}

// GET /api/accounts/:id
func GetAccountHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "ID akun tidak valid")
		}

		acc, err := GetAccount(database.DB, uint(id))
		if err != nil {
			return fiber.NewError(apperror.StatusCode(err), err.Error())
		}
		return c.JSON(toAccountResponse(acc))
	}
}
