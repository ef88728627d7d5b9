package transaction

import (
	"fmt"
	"time"

	"yayasan-backend/internal/apperror"
	"yayasan-backend/internal/audit"
	"yayasan-backend/internal/auth"
	"yayasan-backend/internal/database"
	"yayasan-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type CreateTransactionRequest struct {
	Type        models.TransactionType `json:"type"` // income|expense|donation
	CategoryID  uint                   `json:"category_id"`
	Amount      float64                `json:"amount"`
	Date        string                 `json:"date"` // "2025-01-10"
	Description string                 `json:"description"`
	Reference   string                 `json:"reference"`
	PostNow     bool                   `json:"post_now"`
}

type UpdateTransactionRequest struct {
	CategoryID  *uint    `json:"category_id"`
	Amount      *float64 `json:"amount"`
	Date        *string  `json:"date"`
	Description *string  `json:"description"`
	Reference   *string  `json:"reference"`
	Post        bool     `json:"post"`
}

type JournalLineResponse struct {
	AccountID    uint    `json:"account_id"`
	DebitAmount  float64 `json:"debit_amount"`
	CreditAmount float64 `json:"credit_amount"`
	LineOrder    int     `json:"line_order"`
}

type JournalEntryResponse struct {
	ID          uint                  `json:"id"`
	EntryNo     string                `json:"entry_no"`
	Date        string                `json:"date"`
	TotalDebit  float64               `json:"total_debit"`
	TotalCredit float64               `json:"total_credit"`
	Status      models.JournalStatus  `json:"status"`
	Lines       []JournalLineResponse `json:"lines"`
}

type TransactionResponse struct {
	ID            uint                     `json:"id"`
	TransactionNo string                   `json:"transaction_no"`
	Type          models.TransactionType   `json:"type"`
	CategoryID    uint                     `json:"category_id"`
	Category      string                   `json:"category"`
	Amount        float64                  `json:"amount"`
	Date          string                   `json:"date"`
	Description   string                   `json:"description"`
	Reference     string                   `json:"reference"`
	Status        models.TransactionStatus `json:"status"`
	Journal       *JournalEntryResponse    `json:"journal,omitempty"`
}

func toEntryResponse(entry *models.JournalEntry) *JournalEntryResponse {
	if entry == nil {
		return nil
	}
	res := &JournalEntryResponse{
		ID:          entry.ID,
		EntryNo:     entry.EntryNo,
		Date:        entry.Date.Format("2006-01-02"),
		TotalDebit:  entry.TotalDebit.InexactFloat64(),
		TotalCredit: entry.TotalCredit.InexactFloat64(),
		Status:      entry.Status,
	}
	for _, l := range entry.Lines {
		res.Lines = append(res.Lines, JournalLineResponse{
			AccountID:    l.AccountID,
			DebitAmount:  l.DebitAmount.InexactFloat64(),
			CreditAmount: l.CreditAmount.InexactFloat64(),
			LineOrder:    l.LineOrder,
		})
	}
	return res
}

func toResponse(trx *models.Transaction, entry *models.JournalEntry) TransactionResponse {
	return TransactionResponse{
		ID:            trx.ID,
		TransactionNo: trx.TransactionNo,
		Type:          trx.Type,
		CategoryID:    trx.CategoryID,
		Category:      trx.Category.Name,
		Amount:        trx.Amount.InexactFloat64(),
		Date:          trx.Date.Format("2006-01-02"),
		Description:   trx.Description,
		Reference:     trx.Reference,
		Status:        trx.Status,
		Journal:       toEntryResponse(entry),
	}
}

func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

// POST /api/transactions
func CreateTransactionHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateTransactionRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Body permintaan tidak valid")
		}

		var date time.Time
		if body.Date == "" {
			now := time.Now()
			date = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		} else {
			d, err := parseDate(body.Date)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Format tanggal harus 'YYYY-MM-DD'")
			}
			date = d
		}

		actorID, actorName, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		trx, err := svc.Create(CreateInput{
			Type:        body.Type,
			CategoryID:  body.CategoryID,
			Amount:      decimal.NewFromFloat(body.Amount).Round(2),
			Date:        date,
			Description: body.Description,
			Reference:   body.Reference,
			PostNow:     body.PostNow,
			ActorID:     actorID,
		})
		if err != nil {
			return fiber.NewError(apperror.StatusCode(err), err.Error())
		}

		action := models.AuditActionCreate
		if body.PostNow {
			action = models.AuditActionPost
		}
		if logErr := audit.WriteLog(audit.LogOptions{
			UserID:      actorID,
			UserName:    actorName,
			EntityType:  "transaction",
			EntityID:    trx.ID,
			Action:      action,
			Description: "Transaksi " + trx.TransactionNo,
			After:       trx,
		}); logErr != nil {
			// gagal menulis log tidak fatal, cukup dicatat
			fmt.Printf("Audit log gagal ditulis: %v\n", logErr)
		}

		return c.Status(fiber.StatusCreated).JSON(toResponse(trx, nil))
	}
}

// POST /api/transactions/:id/post
func PostTransactionHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "ID transaksi tidak valid")
		}

		actorID, actorName, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		entry, err := svc.Post(uint(id), actorID)
		if err != nil {
			return fiber.NewError(apperror.StatusCode(err), err.Error())
		}

		if logErr := audit.WriteLog(audit.LogOptions{
			UserID:      actorID,
			UserName:    actorName,
			EntityType:  "journal_entry",
			EntityID:    entry.ID,
			Action:      models.AuditActionPost,
			Description: "Jurnal " + entry.EntryNo,
			After:       entry,
		}); logErr != nil {
			fmt.Printf("Audit log gagal ditulis: %v\n", logErr)
		}

		return c.JSON(toEntryResponse(entry))
	}
}

// PUT /api/transactions/:id
func UpdateTransactionHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "ID transaksi tidak valid")
		}

		var body UpdateTransactionRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Body permintaan tidak valid")
		}

		actorID, actorName, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		role, _ := c.Locals(auth.CtxUserRoleKey).(models.UserRole)

		in := UpdateInput{
			CategoryID:  body.CategoryID,
			Description: body.Description,
			Reference:   body.Reference,
			Post:        body.Post,
			Elevated:    role == models.RoleAdmin,
			ActorID:     actorID,
		}
		if body.Amount != nil {
			a := decimal.NewFromFloat(*body.Amount).Round(2)
			in.Amount = &a
		}
		if body.Date != nil {
			d, err := parseDate(*body.Date)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Format tanggal harus 'YYYY-MM-DD'")
			}
			in.Date = &d
		}

		before, err := svc.Get(database.DB, uint(id))
		if err != nil {
			return fiber.NewError(apperror.StatusCode(err), err.Error())
		}

		trx, err := svc.Update(uint(id), in)
		if err != nil {
			return fiber.NewError(apperror.StatusCode(err), err.Error())
		}

		if logErr := audit.WriteLog(audit.LogOptions{
			UserID:      actorID,
			UserName:    actorName,
			EntityType:  "transaction",
			EntityID:    trx.ID,
			Action:      models.AuditActionUpdate,
			Description: "Transaksi " + trx.TransactionNo,
			Before:      before,
			After:       trx,
		}); logErr != nil {
			fmt.Printf("Audit log gagal ditulis: %v\n", logErr)
		}

		return c.JSON(toResponse(trx, nil))
	}
}

// DELETE /api/transactions/:id - batalkan (balik jurnal kalau sudah posted)
func CancelTransactionHandler(svc *Service) fiber.Handler {
	return cancelOrReverseHandler(svc, models.TransactionStatusCancelled)
}

// POST /api/transactions/:id/reverse - tandai reversed secara eksplisit
func ReverseTransactionHandler(svc *Service) fiber.Handler {
	return cancelOrReverseHandler(svc, models.TransactionStatusReversed)
}

func cancelOrReverseHandler(svc *Service, target models.TransactionStatus) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "ID transaksi tidak valid")
		}

		actorID, actorName, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		trx, err := svc.CancelOrReverse(uint(id), actorID, target)
		if err != nil {
			return fiber.NewError(apperror.StatusCode(err), err.Error())
		}

		action := models.AuditActionCancel
		if target == models.TransactionStatusReversed {
			action = models.AuditActionReverse
		}
		if logErr := audit.WriteLog(audit.LogOptions{
			UserID:      actorID,
			UserName:    actorName,
			EntityType:  "transaction",
			EntityID:    trx.ID,
			Action:      action,
			Description: "Transaksi " + trx.TransactionNo,
			After:       trx,
		}); logErr != nil {
			fmt.Printf("Audit log gagal ditulis: %v\n", logErr)
		}

		return c.JSON(toResponse(trx, nil))
	}
}

// GET /api/transactions/:id - transaksi + jurnalnya
func GetTransactionHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "ID transaksi tidak valid")
		}

		trx, entry, err := svc.GetWithJournal(uint(id))
		if err != nil {
			return fiber.NewError(apperror.StatusCode(err), err.Error())
		}
		return c.JSON(toResponse(trx, entry))
	}
}

// GET /api/transactions?year=2025&month=1&category_id=3&status=posted
func ListTransactionsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f := ListFilter{
			Year:       c.QueryInt("year"),
			Month:      c.QueryInt("month"),
			CategoryID: uint(c.QueryInt("category_id")),
			Status:     models.TransactionStatus(c.Query("status")),
		}

		trxs, err := svc.List(f)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Transaksi tidak bisa dimuat")
		}

		res := make([]TransactionResponse, 0, len(trxs))
		for i := range trxs {
			res = append(res, toResponse(&trxs[i], nil))
		}
		return c.JSON(res)
	}
}

type MonthlySummaryItem struct {
	CategoryID   uint    `json:"category_id"`
	CategoryName string  `json:"category_name"`
	Total        float64 `json:"total"`
}

type MonthlySummaryResponse struct {
	Year       int                  `json:"year"`
	Month      int                  `json:"month"`
	Items      []MonthlySummaryItem `json:"items"`
	GrandTotal float64              `json:"grand_total"`
}

// GET /api/transactions/summary/monthly?year=2025&month=1
func MonthlySummaryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		year := c.QueryInt("year")
		month := c.QueryInt("month")
		if year < 2000 || month < 1 || month > 12 {
			return fiber.NewError(fiber.StatusBadRequest, "year/month tidak valid")
		}

		start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 1, 0)

		type row struct {
			CategoryID   uint
			CategoryName string
			Total        float64
		}
		var rows []row
		err := database.DB.Model(&models.Transaction{}).
			Select("transactions.category_id, categories.name as category_name, SUM(transactions.amount) as total").
			Joins("JOIN categories ON categories.id = transactions.category_id").
			Where("transactions.status = ? AND transactions.date >= ? AND transactions.date < ?",
				models.TransactionStatusPosted, start, end).
			Group("transactions.category_id, categories.name").
			Order("total desc").
			Scan(&rows).Error
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Ringkasan tidak bisa dihitung")
		}

		res := MonthlySummaryResponse{Year: year, Month: month, Items: make([]MonthlySummaryItem, 0, len(rows))}
		for _, r := range rows {
			res.Items = append(res.Items, MonthlySummaryItem{CategoryID: r.CategoryID, CategoryName: r.CategoryName, Total: r.Total})
			res.GrandTotal += r.Total
		}
		return c.JSON(res)
	}
}
