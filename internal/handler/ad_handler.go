package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"classifieds/internal/middleware"
	"classifieds/internal/service"
)

// AdHandler handles ad listing endpoints.
type AdHandler struct {
	listingService service.ListingService
}

// NewAdHandler creates a new ad handler.
func NewAdHandler(listingService service.ListingService) *AdHandler {
	return &AdHandler{listingService: listingService}
}

// CreateAdRequest represents a new ad.
type CreateAdRequest struct {
	Title       string           `json:"title" validate:"required"`
	Description string           `json:"description" validate:"required"`
	Category    string           `json:"category" validate:"required"`
	Subcategory *string          `json:"subcategory"`
	Price       *decimal.Decimal `json:"price" validate:"required" swaggertype:"number"`
	Images      []string         `json:"images"`
	IsPaid      bool             `json:"is_paid"`
}

// UpdateAdRequest is a partial update; omitted fields are left unchanged.
type UpdateAdRequest struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	Category    *string          `json:"category"`
	Subcategory *string          `json:"subcategory"`
	Price       *decimal.Decimal `json:"price" swaggertype:"number"`
	Images      *[]string        `json:"images"`
}

// ListAds godoc
// @Summary Browse active ads
// @Tags ads
// @Produce json
// @Param category query string false "Category id; unknown ids are ignored"
// @Param subcategory query string false "Subcategory"
// @Param search query string false "Case-insensitive text in title or description"
// @Param limit query int false "Maximum results (default 20, max 100)"
// @Success 200 {array} AdResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /ads [get]
func (h *AdHandler) ListAds(c echo.Context) error {
	var q service.ListAdsQuery
	if err := echo.QueryParamsBinder(c).
		String("category", &q.Category).
		String("subcategory", &q.Subcategory).
		String("search", &q.Search).
		Int("limit", &q.Limit).
		BindError(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query parameters")
	}

	ads, err := h.listingService.ListAds(c.Request().Context(), q)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toAdResponses(ads))
}

// GetAd godoc
// @Summary Get an ad
// @Tags ads
// @Produce json
// @Param id path string true "Ad ID"
// @Success 200 {object} AdResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /ads/{id} [get]
func (h *AdHandler) GetAd(c echo.Context) error {
	ad, err := h.listingService.GetAd(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toAdResponse(ad))
}

// CreateAd godoc
// @Summary Post an ad
// @Description Free ads may carry at most 5 images. Ads expire 3 weeks after creation.
// @Tags ads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateAdRequest true "Ad"
// @Success 200 {object} AdResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /ads [post]
func (h *AdHandler) CreateAd(c echo.Context) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}

	var req CreateAdRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ad, err := h.listingService.CreateAd(c.Request().Context(), user.UserID, service.CreateAdInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Subcategory: req.Subcategory,
		Price:       *req.Price,
		Images:      req.Images,
		IsPaid:      req.IsPaid,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toAdResponse(ad))
}

// UpdateAd godoc
// @Summary Update an ad
// @Tags ads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Ad ID"
// @Param request body UpdateAdRequest true "Fields to change"
// @Success 200 {object} AdResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /ads/{id} [put]
func (h *AdHandler) UpdateAd(c echo.Context) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}

	var req UpdateAdRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ad, err := h.listingService.UpdateAd(c.Request().Context(), c.Param("id"), user.UserID, service.UpdateAdInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Subcategory: req.Subcategory,
		Price:       req.Price,
		Images:      req.Images,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toAdResponse(ad))
}

// DeleteAd godoc
// @Summary Delete an ad
// @Tags ads
// @Produce json
// @Security BearerAuth
// @Param id path string true "Ad ID"
// @Success 200 {object} MessageResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /ads/{id} [delete]
func (h *AdHandler) DeleteAd(c echo.Context) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}

	if err := h.listingService.DeleteAd(c.Request().Context(), c.Param("id"), user.UserID); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Ad deleted successfully"})
}

// MyAds godoc
// @Summary List the caller's ads
// @Tags ads
// @Produce json
// @Security BearerAuth
// @Success 200 {array} AdResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /my-ads [get]
func (h *AdHandler) MyAds(c echo.Context) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}

	ads, err := h.listingService.MyAds(c.Request().Context(), user.UserID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toAdResponses(ads))
}
