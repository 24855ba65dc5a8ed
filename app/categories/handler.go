package categories

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/donjersey/shop-api/app/api"
	"github.com/donjersey/shop-api/models"
)

type CategoryResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type CategoryProvider interface {
	GetAllCategories() ([]models.Category, error)
	CreateCategory(category *models.Category) error
}

type CategoryHandler struct {
	repo CategoryProvider
}

func NewCategoryHandler(r CategoryProvider) *CategoryHandler {
	return &CategoryHandler{repo: r}
}

func (h *CategoryHandler) HandleGetAll(w http.ResponseWriter, r *http.Request) {
	categories, err := h.repo.GetAllCategories()
	if err != nil {
		api.Error(w, http.StatusInternalServerError, "failed to fetch categories")
		return
	}

	response := make([]CategoryResponse, len(categories))
	for i, c := range categories {
		response[i] = CategoryResponse{
			ID:   c.ID,
			Name: c.Name,
		}
	}

	api.JSON(w, http.StatusOK, response)
}

func (h *CategoryHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name string `json:"name"`
	}

	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		api.Error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if input.Name == "" {
		api.Error(w, http.StatusBadRequest, "Category name is required")
		return
	}

	category := &models.Category{
		Name: input.Name,
	}

	if err := h.repo.CreateCategory(category); err != nil {
		if errors.Is(err, models.ErrCategoryExists) {
			api.Error(w, http.StatusConflict, "Category already exists")
			return
		}
		api.Error(w, http.StatusInternalServerError, "Failed to create category")
		return
	}

	api.JSON(w, http.StatusCreated, map[string]string{
		"message": "Category added successfully",
	})
}
