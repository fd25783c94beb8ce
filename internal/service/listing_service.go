package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"classifieds/internal/cache"
	apperrors "classifieds/internal/errors"
	"classifieds/internal/metrics"
	"classifieds/internal/model"
	"classifieds/internal/repository"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	myAdsLimit       = 100
	adCacheTTL       = 5 * time.Minute
)

// adCacheKey is shared with the payment service, which upgrades ads.
func adCacheKey(id string) string {
	return "ad:" + id
}

// ListAdsQuery filters the public ad listing. Empty fields do not filter.
type ListAdsQuery struct {
	Category    string
	Subcategory string
	Search      string
	Limit       int
}

// CreateAdInput carries the fields of a new ad.
type CreateAdInput struct {
	Title       string
	Description string
	Category    string
	Subcategory *string
	Price       decimal.Decimal
	Images      []string
	IsPaid      bool
}

// UpdateAdInput is a partial update; nil fields are left untouched.
type UpdateAdInput struct {
	Title       *string
	Description *string
	Category    *string
	Subcategory *string
	Price       *decimal.Decimal
	Images      *[]string
}

// ListingService manages ads.
type ListingService interface {
	ListAds(ctx context.Context, q ListAdsQuery) ([]model.Ad, error)
	GetAd(ctx context.Context, id string) (*model.Ad, error)
	CreateAd(ctx context.Context, ownerID string, in CreateAdInput) (*model.Ad, error)
	UpdateAd(ctx context.Context, id, ownerID string, in UpdateAdInput) (*model.Ad, error)
	DeleteAd(ctx context.Context, id, ownerID string) error
	MyAds(ctx context.Context, ownerID string) ([]model.Ad, error)
}

type listingService struct {
	adRepo  repository.AdRepository
	cache   *cache.Client
	metrics metrics.Recorder
	now     func() time.Time
}

// NewListingService creates a new listing service. A nil cache disables ad caching.
func NewListingService(adRepo repository.AdRepository, cache *cache.Client, recorder metrics.Recorder) ListingService {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &listingService{
		adRepo:  adRepo,
		cache:   cache,
		metrics: recorder,
		now:     time.Now,
	}
}

func (s *listingService) ListAds(ctx context.Context, q ListAdsQuery) ([]model.Ad, error) {
	filter := repository.AdFilter{
		Subcategory: q.Subcategory,
		Search:      q.Search,
		Limit:       q.Limit,
	}
	// Unknown categories are ignored rather than rejected.
	if model.IsKnownCategory(q.Category) {
		filter.Category = q.Category
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}

	ads, err := s.adRepo.ListActive(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list ads: %w", err)
	}
	return ads, nil
}

// GetAd returns an ad in any status.
func (s *listingService) GetAd(ctx context.Context, id string) (*model.Ad, error) {
	var cached model.Ad
	if s.cache.GetJSON(ctx, adCacheKey(id), &cached) {
		return &cached, nil
	}

	ad, err := s.findAd(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.SetJSON(ctx, adCacheKey(id), ad, adCacheTTL)
	return ad, nil
}

func (s *listingService) CreateAd(ctx context.Context, ownerID string, in CreateAdInput) (*model.Ad, error) {
	if !model.IsKnownCategory(in.Category) {
		return nil, apperrors.ErrInvalidCategory
	}
	if in.Subcategory != nil && *in.Subcategory != "" && !model.HasSubcategory(in.Category, *in.Subcategory) {
		return nil, apperrors.ErrInvalidSubcategory
	}
	if model.ExceedsFreeImageLimit(in.IsPaid, in.Images) {
		return nil, apperrors.ErrFreeAdImageLimit
	}

	images := in.Images
	if images == nil {
		images = []string{}
	}
	subcategory := in.Subcategory
	if subcategory != nil && *subcategory == "" {
		subcategory = nil
	}

	createdAt := s.now().UTC()
	ad := &model.Ad{
		UserID:      ownerID,
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Subcategory: subcategory,
		Price:       in.Price,
		Images:      images,
		IsPaid:      in.IsPaid,
		Status:      model.AdStatusActive,
		CreatedAt:   createdAt,
		ExpiresAt:   createdAt.Add(model.AdLifetime),
	}
	if err := s.adRepo.Create(ctx, ad); err != nil {
		return nil, fmt.Errorf("create ad: %w", err)
	}

	s.metrics.RecordAdCreated(ad.IsPaid)
	return ad, nil
}

func (s *listingService) UpdateAd(ctx context.Context, id, ownerID string, in UpdateAdInput) (*model.Ad, error) {
	ad, err := s.ownedAd(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		if strings.TrimSpace(*in.Title) == "" {
			return nil, apperrors.ErrEmptyField
		}
		ad.Title = *in.Title
	}
	if in.Description != nil {
		if strings.TrimSpace(*in.Description) == "" {
			return nil, apperrors.ErrEmptyField
		}
		ad.Description = *in.Description
	}

	if in.Category != nil || in.Subcategory != nil {
		category := ad.Category
		if in.Category != nil {
			if !model.IsKnownCategory(*in.Category) {
				return nil, apperrors.ErrInvalidCategory
			}
			category = *in.Category
		}
		subcategory := ad.Subcategory
		if in.Subcategory != nil {
			subcategory = in.Subcategory
			if *subcategory == "" {
				subcategory = nil
			}
		}
		// The resulting pair must be consistent, even when only the category moved.
		if subcategory != nil && !model.HasSubcategory(category, *subcategory) {
			return nil, apperrors.ErrInvalidSubcategory
		}
		ad.Category = category
		ad.Subcategory = subcategory
	}

	if in.Price != nil {
		ad.Price = *in.Price
	}
	if in.Images != nil {
		images := *in.Images
		if images == nil {
			images = []string{}
		}
		if model.ExceedsFreeImageLimit(ad.IsPaid, images) {
			return nil, apperrors.ErrFreeAdImageLimit
		}
		ad.Images = images
	}

	if err := s.adRepo.Update(ctx, ad); err != nil {
		return nil, fmt.Errorf("update ad: %w", err)
	}
	_ = s.cache.Delete(ctx, adCacheKey(id))
	return ad, nil
}

// DeleteAd soft-deletes an ad owned by ownerID.
func (s *listingService) DeleteAd(ctx context.Context, id, ownerID string) error {
	if _, err := s.ownedAd(ctx, id, ownerID); err != nil {
		return err
	}
	if err := s.adRepo.SetStatus(ctx, id, model.AdStatusDeleted); err != nil {
		return fmt.Errorf("delete ad: %w", err)
	}
	_ = s.cache.Delete(ctx, adCacheKey(id))
	return nil
}

func (s *listingService) MyAds(ctx context.Context, ownerID string) ([]model.Ad, error) {
	ads, err := s.adRepo.ListByOwner(ctx, ownerID, myAdsLimit)
	if err != nil {
		return nil, fmt.Errorf("list own ads: %w", err)
	}
	return ads, nil
}

func (s *listingService) findAd(ctx context.Context, id string) (*model.Ad, error) {
	ad, err := s.adRepo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrAdNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find ad: %w", err)
	}
	return ad, nil
}

// ownedAd loads an ad bypassing the cache and checks ownership.
func (s *listingService) ownedAd(ctx context.Context, id, ownerID string) (*model.Ad, error) {
	ad, err := s.findAd(ctx, id)
	if err != nil {
		return nil, err
	}
	if ad.UserID != ownerID {
		return nil, apperrors.ErrForbidden
	}
	return ad, nil
}
