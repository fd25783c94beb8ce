package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"classifieds/internal/model"
)

// AdFilter narrows a listing query. Empty fields are not applied.
type AdFilter struct {
	Category    string
	Subcategory string
	Search      string
	Limit       int
}

// AdRepository defines ad persistence operations.
type AdRepository interface {
	Create(ctx context.Context, ad *model.Ad) error
	Update(ctx context.Context, ad *model.Ad) error
	FindByID(ctx context.Context, id string) (*model.Ad, error)
	ListActive(ctx context.Context, filter AdFilter) ([]model.Ad, error)
	ListByOwner(ctx context.Context, userID string, limit int) ([]model.Ad, error)
	SetStatus(ctx context.Context, id string, status model.AdStatus) error
	// MarkPaid sets is_paid; repeating it has no further effect.
	MarkPaid(ctx context.Context, id string) error
}

type adRepository struct {
	db *gorm.DB
}

// NewAdRepository creates a new ad repository.
func NewAdRepository(db *gorm.DB) AdRepository {
	return &adRepository{db: db}
}

func (r *adRepository) Create(ctx context.Context, ad *model.Ad) error {
	return r.db.WithContext(ctx).Create(ad).Error
}

// Update writes the owner-editable columns. is_paid and status only change
// through MarkPaid and SetStatus.
func (r *adRepository) Update(ctx context.Context, ad *model.Ad) error {
	return r.db.WithContext(ctx).Model(ad).
		Select("title", "description", "category", "subcategory", "price", "images", "updated_at").
		Updates(ad).Error
}

func (r *adRepository) FindByID(ctx context.Context, id string) (*model.Ad, error) {
	var ad model.Ad
	if err := r.db.WithContext(ctx).Where("ad_id = ?", id).First(&ad).Error; err != nil {
		return nil, err
	}
	return &ad, nil
}

// ListActive returns active ads, newest first.
func (r *adRepository) ListActive(ctx context.Context, filter AdFilter) ([]model.Ad, error) {
	q := r.db.WithContext(ctx).Where("status = ?", model.AdStatusActive)

	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Subcategory != "" {
		q = q.Where("subcategory = ?", filter.Subcategory)
	}
	if filter.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(filter.Search)) + "%"
		q = q.Where("(LOWER(title) LIKE ? ESCAPE '!' OR LOWER(description) LIKE ? ESCAPE '!')", pattern, pattern)
	}

	var ads []model.Ad
	if err := q.Order("created_at DESC").Limit(filter.Limit).Find(&ads).Error; err != nil {
		return nil, err
	}
	return ads, nil
}

// ListByOwner returns the owner's ads that are not deleted, newest first.
func (r *adRepository) ListByOwner(ctx context.Context, userID string, limit int) ([]model.Ad, error) {
	var ads []model.Ad
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND status <> ?", userID, model.AdStatusDeleted).
		Order("created_at DESC").
		Limit(limit).
		Find(&ads).Error; err != nil {
		return nil, err
	}
	return ads, nil
}

func (r *adRepository) SetStatus(ctx context.Context, id string, status model.AdStatus) error {
	return r.db.WithContext(ctx).Model(&model.Ad{}).
		Where("ad_id = ?", id).
		Update("status", status).Error
}

func (r *adRepository) MarkPaid(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&model.Ad{}).
		Where("ad_id = ?", id).
		Update("is_paid", true).Error
}

// escapeLike makes s match literally inside a LIKE pattern using '!' as escape.
func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}
