package category

import (
	"yayasan-backend/internal/apperror"
	"yayasan-backend/internal/database"
	"yayasan-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type CreateCategoryRequest struct {
	Name        string              `json:"name"`
	Type        models.CategoryType `json:"type"` // income|expense|donation
	AccountID   uint                `json:"account_id"`
	ParentID    *uint               `json:"parent_id"`
	Description string              `json:"description"`
}

type UpdateCategoryRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	ParentID    *uint   `json:"parent_id"`
	ClearParent bool    `json:"clear_parent"`
}

type CategoryResponse struct {
	ID          uint                `json:"id"`
	Name        string              `json:"name"`
	Type        models.CategoryType `json:"type"`
	AccountID   uint                `json:"account_id"`
	ParentID    *uint               `json:"parent_id"`
	Description string              `json:"description"`
	IsActive    bool                `json:"is_active"`
}

func toResponse(cat *models.Category) CategoryResponse {
	return CategoryResponse{
		ID:          cat.ID,
		Name:        cat.Name,
		Type:        cat.Type,
		AccountID:   cat.AccountID,
		ParentID:    cat.ParentID,
		Description: cat.Description,
		IsActive:    cat.IsActive,
	}
}

// GET /api/categories?active=1
func ListCategoriesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		activeOnly := c.Query("active") == "1"
		cats, err := ListCategories(database.DB, activeOnly)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kategori tidak bisa dimuat")
		}

		res := make([]CategoryResponse, 0, len(cats))
		for i := range cats {
			res = append(res, toResponse(&cats[i]))
		}
		return c.JSON(res)
	}
}

// POST /api/admin/categories (admin)
func CreateCategoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateCategoryRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Body permintaan tidak valid")
		}

		cat, err := CreateCategory(database.DB, CreateInput{
			Name:        body.Name,
			Type:        body.Type,
			AccountID:   body.AccountID,
			ParentID:    body.ParentID,
			Description: body.Description,
		})
		if err != nil {
			return fiber.NewError(apperror.StatusCode(err), err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(toResponse(cat))
	}
}

// PUT /api/admin/categories/:id (admin)
func UpdateCategoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "ID kategori tidak valid")
		}

		var body UpdateCategoryRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Body permintaan tidak valid")
		}

		cat, err := UpdateCategory(database.DB, uint(id), UpdateInput{
			Name:        body.Name,
			Description: body.Description,
			ParentID:    body.ParentID,
			ClearParent: body.ClearParent,
		})
		if err != nil {
			return fiber.NewError(apperror.StatusCode(err), err.Error())
		}
		return c.JSON(toResponse(cat))
	}
}

// DELETE /api/admin/categories/:id (admin) - nonaktifkan, bukan hapus
func DeactivateCategoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "ID kategori tidak valid")
		}

		if err := Deactivate(database.DB, uint(id)); err != nil {
			return fiber.NewError(apperror.StatusCode(err), err.Error())
		}
		return c.JSON(fiber.Map{"message": "Kategori dinonaktifkan"})
	}
}
