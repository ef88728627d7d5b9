package budget

import (
	"fmt"
	"time"

	"yayasan-backend/internal/apperror"
	"yayasan-backend/internal/audit"
	"yayasan-backend/internal/auth"
	"yayasan-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type BudgetItemRequest struct {
	CategoryID uint    `json:"category_id"`
	Amount     float64 `json:"amount"`
}

type CreateBudgetRequest struct {
	Name        string            `json:"name"`
	Type        models.BudgetType `json:"type"` // monthly|quarterly|annual
	StartDate   string            `json:"start_date"`
	EndDate     string            `json:"end_date"`
	Items       []BudgetItemRequest `json:"items"`
	Active      bool              `json:"active"`
	Description string            `json:"description"`
}

type BudgetItemResponse struct {
	ID           uint    `json:"id"`
	CategoryID   uint    `json:"category_id"`
	CategoryName string  `json:"category_name"`
	BudgetAmount float64 `json:"budget_amount"`
	ActualAmount float64 `json:"actual_amount"`
	Variance     float64 `json:"variance"`
	Percentage   float64 `json:"percentage"`
}

type BudgetResponse struct {
	ID          uint                 `json:"id"`
	Name        string               `json:"name"`
	Type        models.BudgetType    `json:"type"`
	StartDate   string               `json:"start_date"`
	EndDate     string               `json:"end_date"`
	TotalBudget float64              `json:"total_budget"`
	Status      models.BudgetStatus  `json:"status"`
	Description string               `json:"description"`
	Items       []BudgetItemResponse `json:"items"`
}

func toResponse(bgt *models.Budget) BudgetResponse {
	res := BudgetResponse{
		ID:          bgt.ID,
		Name:        bgt.Name,
		Type:        bgt.Type,
		StartDate:   bgt.StartDate.Format("2006-01-02"),
		EndDate:     bgt.EndDate.Format("2006-01-02"),
		TotalBudget: bgt.TotalBudget.InexactFloat64(),
		Status:      bgt.Status,
		Description: bgt.Description,
		Items:       make([]BudgetItemResponse, 0, len(bgt.Items)),
	}
	for _, it := range bgt.Items {
		res.Items = append(res.Items, BudgetItemResponse{
			ID:           it.ID,
			CategoryID:   it.CategoryID,
			CategoryName: it.Category.Name,
			BudgetAmount: it.BudgetAmount.InexactFloat64(),
			ActualAmount: it.ActualAmount.InexactFloat64(),
			Variance:     it.Variance.InexactFloat64(),
			Percentage:   it.Percentage,
		})
	}
	return res
}

// POST /api/admin/budgets (admin)
func CreateBudgetHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateBudgetRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Body permintaan tidak valid")
		}

		start, err := time.Parse("2006-01-02", body.StartDate)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "start_date harus 'YYYY-MM-DD'")
		}
		end, err := time.Parse("2006-01-02", body.EndDate)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "end_date harus 'YYYY-MM-DD'")
		}

		actorID, actorName, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		items := make([]ItemInput, 0, len(body.Items))
		for _, it := range body.Items {
			items = append(items, ItemInput{
				CategoryID: it.CategoryID,
				Amount:     decimal.NewFromFloat(it.Amount).Round(2),
			})
		}

		bgt, err := svc.Create(CreateInput{
			Name:        body.Name,
			Type:        body.Type,
			StartDate:   start,
			EndDate:     end,
			Items:       items,
			Active:      body.Active,
			Description: body.Description,
			ActorID:     actorID,
		})
		if err != nil {
			return fiber.NewError(apperror.StatusCode(err), err.Error())
		}

		if logErr := audit.WriteLog(audit.LogOptions{
			UserID:      actorID,
			UserName:    actorName,
			EntityType:  "budget",
			EntityID:    bgt.ID,
			Action:      models.AuditActionCreate,
			Description: "Anggaran " + bgt.Name,
			After:       bgt,
		}); logErr != nil {
			// gagal menulis log tidak fatal, cukup dicatat
			fmt.Printf("Audit log gagal ditulis: %v\n", logErr)
		}

		return c.Status(fiber.StatusCreated).JSON(toResponse(bgt))
	}
}

// GET /api/budgets/:id - realisasi dihitung ulang untuk anggaran aktif
func GetBudgetHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "ID anggaran tidak valid")
		}

		bgt, err := svc.Get(uint(id))
		if err != nil {
			return fiber.NewError(apperror.StatusCode(err), err.Error())
		}
		return c.JSON(toResponse(bgt))
	}
}

// GET /api/budgets
func ListBudgetsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		bgts, err := svc.List()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Anggaran tidak bisa dimuat")
		}

		res := make([]BudgetResponse, 0, len(bgts))
		for i := range bgts {
			res = append(res, toResponse(&bgts[i]))
		}
		return c.JSON(res)
	}
}

// POST /api/admin/budgets/:id/activate (admin)
func ActivateBudgetHandler(svc *Service) fiber.Handler {
	return budgetStatusHandler(svc, "activate")
}

// POST /api/admin/budgets/:id/close (admin)
func CloseBudgetHandler(svc *Service) fiber.Handler {
	return budgetStatusHandler(svc, "close")
}

func budgetStatusHandler(svc *Service, op string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "ID anggaran tidak valid")
		}

		actorID, actorName, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		var bgt *models.Budget
		if op == "activate" {
			bgt, err = svc.Activate(uint(id))
		} else {
			bgt, err = svc.Close(uint(id))
		}
		if err != nil {
			return fiber.NewError(apperror.StatusCode(err), err.Error())
		}

		if logErr := audit.WriteLog(audit.LogOptions{
			UserID:      actorID,
			UserName:    actorName,
			EntityType:  "budget",
			EntityID:    bgt.ID,
			Action:      models.AuditActionUpdate,
			Description: "Anggaran " + bgt.Name + " -> " + string(bgt.Status),
			After:       bgt,
		}); logErr != nil {
			fmt.Printf("Audit log gagal ditulis: %v\n", logErr)
		}

		return c.JSON(toResponse(bgt))
	}
}

// POST /api/budgets/:id/recalculate - pemicu manual, idempoten
func RecalculateBudgetHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "ID anggaran tidak valid")
		}

		bgt, err := svc.Recalculate(uint(id))
		if err != nil {
			return fiber.NewError(apperror.StatusCode(err), err.Error())
		}
		return c.JSON(toResponse(bgt))
	}
}
