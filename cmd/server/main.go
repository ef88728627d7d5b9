package main

import (
	"log"
	"strings"

	"yayasan-backend/internal/audit"
	"yayasan-backend/internal/auth"
	"yayasan-backend/internal/budget"
	"yayasan-backend/internal/category"
	"yayasan-backend/internal/config"
	"yayasan-backend/internal/database"
	"yayasan-backend/internal/ledger"
	"yayasan-backend/internal/models"
	"yayasan-backend/internal/transaction"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func main() {
	cfg := config.Load()
	database.Init(cfg)

	engine := ledger.NewEngine(cfg.CashAccountCode)
	trxService := transaction.NewService(database.DB, engine)
	budgetService := budget.NewService(database.DB)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			log.Println("Unexpected error:", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Kesalahan server tak terduga",
			})
		},
	})

	// CORS origins: string dipisah koma
	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register-admin", auth.RegisterAdminHandler(cfg))
	api.Post("/auth/login", auth.LoginHandler(cfg))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler())

	// Admin routes
	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(auth.RequireRole(models.RoleAdmin))

	// Manajemen pengguna
	adminRoutes.Post("/users", auth.RegisterUserHandler())

	// Bagan akun
	adminRoutes.Post("/accounts", ledger.CreateAccountHandler())

	// Manajemen kategori
	adminRoutes.Post("/categories", category.CreateCategoryHandler())
	adminRoutes.Put("/categories/:id", category.UpdateCategoryHandler())
	adminRoutes.Delete("/categories/:id", category.DeactivateCategoryHandler())

	// Manajemen anggaran
	adminRoutes.Post("/budgets", budget.CreateBudgetHandler(budgetService))
	adminRoutes.Post("/budgets/:id/activate", budget.ActivateBudgetHandler(budgetService))
	adminRoutes.Post("/budgets/:id/close", budget.CloseBudgetHandler(budgetService))

	// Jejak audit
	adminRoutes.Get("/audit-logs", audit.ListAuditLogsHandler())

	// Route bersama (butuh auth)

	// Akun & kategori (baca)
	protected.Get("/accounts", ledger.ListAccountsHandler())
	protected.Get("/accounts/:id", ledger.GetAccountHandler())
	protected.Get("/categories", category.ListCategoriesHandler())

	// Transaksi
	protected.Post("/transactions", transaction.CreateTransactionHandler(trxService))
	protected.Get("/transactions", transaction.ListTransactionsHandler(trxService))
	protected.Get("/transactions/summary/monthly", transaction.MonthlySummaryHandler())
	protected.Get("/transactions/:id", transaction.GetTransactionHandler(trxService))
	protected.Put("/transactions/:id", transaction.UpdateTransactionHandler(trxService))
	protected.Post("/transactions/:id/post", transaction.PostTransactionHandler(trxService))
	protected.Post("/transactions/:id/cancel", transaction.CancelTransactionHandler(trxService))
	protected.Post("/transactions/:id/reverse", transaction.ReverseTransactionHandler(trxService))

	// Anggaran (baca + rekonsiliasi manual)
	protected.Get("/budgets", budget.ListBudgetsHandler(budgetService))
	protected.Get("/budgets/:id", budget.GetBudgetHandler(budgetService))
	protected.Post("/budgets/:id/recalculate", budget.RecalculateBudgetHandler(budgetService))

	log.Println("Server berjalan di port:", cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatal(err)
	}
}
