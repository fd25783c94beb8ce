package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"classifieds/internal/auth"
	"classifieds/internal/db"
	apperrors "classifieds/internal/errors"
	"classifieds/internal/repository"
	"classifieds/internal/service"
)

type sampleAd struct {
	title       string
	description string
	category    string
	subcategory string
	price       string
	images      int
}

var sampleAds = []sampleAd{
	{"Junior Go developer", "Remote friendly team building marketplace tools.", "jobs", "Full-time", "0", 0},
	{"Sunny room near the park", "Furnished room in a shared flat, bills included.", "real_estate_renting", "Rooms", "450", 3},
	{"Two bedroom flat", "Renovated flat on the third floor with a balcony.", "real_estate_selling", "Flats", "185000", 5},
	{"City bicycle", "Seven gears, new tyres, lights included.", "vehicles", "Bicycles", "220.50", 2},
	{"Oak dining table", "Seats six. Minor scratches on one leg.", "sales_of_products", "Furniture", "140", 4},
	{"Math tutoring", "High school algebra and calculus, evenings and weekends.", "services", "Tutoring", "25", 1},
}

type seedResult struct {
	UserID       string
	SessionToken string
	AdsCreated   int
}

func seedCmd() *cobra.Command {
	var email, password, name string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create a demo user with sample ads",
		RunE: func(cmd *cobra.Command, args []string) error {
			gormDB, err := openDB()
			if err != nil {
				return err
			}
			if err := db.Migrate(gormDB); err != nil {
				return err
			}

			authService := service.NewAuthService(
				repository.NewUserRepository(gormDB),
				repository.NewSessionRepository(gormDB),
				auth.NewTokenIssuer(cfg.JWTSecret),
				auth.NewSessionCache(nil),
				auth.NewIdentityClient(cfg.IdentitySessionURL),
				nil,
			)
			listingService := service.NewListingService(repository.NewAdRepository(gormDB), nil, nil)

			res, err := seedDemo(cmd.Context(), authService, repository.NewUserRepository(gormDB), listingService, email, password, name)
			if err != nil {
				return err
			}
			log.Info("seed completed",
				slog.String("user_id", res.UserID),
				slog.Int("ads_created", res.AdsCreated),
			)
			if res.SessionToken != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "session token: %s\n", res.SessionToken)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "demo@example.com", "demo user email")
	cmd.Flags().StringVar(&password, "password", "demo1234", "demo user password")
	cmd.Flags().StringVar(&name, "name", "Demo Seller", "demo user display name")
	return cmd
}

// seedDemo registers the demo user when missing and posts the sample ads
// unless the user already has listings.
func seedDemo(
	ctx context.Context,
	authService service.AuthService,
	users repository.UserRepository,
	listings service.ListingService,
	email, password, name string,
) (*seedResult, error) {
	res := &seedResult{}

	registered, err := authService.Register(ctx, email, password, name)
	switch {
	case err == nil:
		res.UserID = registered.User.UserID
		res.SessionToken = registered.SessionToken
	case errors.Is(err, apperrors.ErrEmailAlreadyRegistered):
		user, err := users.FindByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("load demo user: %w", err)
		}
		res.UserID = user.UserID
	default:
		return nil, fmt.Errorf("register demo user: %w", err)
	}

	existing, err := listings.MyAds(ctx, res.UserID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return res, nil
	}

	for _, s := range sampleAds {
		images := make([]string, s.images)
		for i := range images {
			images[i] = fmt.Sprintf("https://picsum.photos/seed/%s-%d/800/600", s.category, i)
		}
		subcategory := s.subcategory
		if _, err := listings.CreateAd(ctx, res.UserID, service.CreateAdInput{
			Title:       s.title,
			Description: s.description,
			Category:    s.category,
			Subcategory: &subcategory,
			Price:       decimal.RequireFromString(s.price),
			Images:      images,
		}); err != nil {
			return nil, fmt.Errorf("create %q: %w", s.title, err)
		}
		res.AdsCreated++
	}
	return res, nil
}
