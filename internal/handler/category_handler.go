package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"classifieds/internal/model"
)

// ListCategories godoc
// @Summary List ad categories
// @Tags categories
// @Produce json
// @Success 200 {array} model.Category
// @Router /categories [get]
func ListCategories(c echo.Context) error {
	return c.JSON(http.StatusOK, model.Categories())
}
