package handler

import (
	"time"

	"github.com/labstack/echo/v4"

	"classifieds/internal/errors"
	"classifieds/internal/model"
)

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Picture   *string   `json:"picture"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u *model.User) UserResponse {
	return UserResponse{
		UserID:    u.UserID,
		Email:     u.Email,
		Name:      u.Name,
		Picture:   u.Picture,
		CreatedAt: u.CreatedAt,
	}
}

// AdResponse is the public view of an ad.
type AdResponse struct {
	AdID        string    `json:"ad_id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Subcategory *string   `json:"subcategory"`
	Price       float64   `json:"price"`
	Images      []string  `json:"images"`
	IsPaid      bool      `json:"is_paid"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func toAdResponse(a *model.Ad) AdResponse {
	images := a.Images
	if images == nil {
		images = []string{}
	}
	return AdResponse{
		AdID:        a.AdID,
		UserID:      a.UserID,
		Title:       a.Title,
		Description: a.Description,
		Category:    a.Category,
		Subcategory: a.Subcategory,
		Price:       a.Price.InexactFloat64(),
		Images:      images,
		IsPaid:      a.IsPaid,
		Status:      string(a.Status),
		CreatedAt:   a.CreatedAt,
		ExpiresAt:   a.ExpiresAt,
	}
}

func toAdResponses(ads []model.Ad) []AdResponse {
	out := make([]AdResponse, 0, len(ads))
	for i := range ads {
		out = append(out, toAdResponse(&ads[i]))
	}
	return out
}

// TransactionResponse is the public view of a payment transaction.
type TransactionResponse struct {
	TransactionID string    `json:"transaction_id"`
	UserID        string    `json:"user_id"`
	AdID          *string   `json:"ad_id"`
	SessionID     string    `json:"session_id"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	PaymentStatus string    `json:"payment_status"`
	Status        string    `json:"status,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func toTransactionResponse(t *model.PaymentTransaction) TransactionResponse {
	return TransactionResponse{
		TransactionID: t.TransactionID,
		UserID:        t.UserID,
		AdID:          t.AdID,
		SessionID:     t.SessionID,
		Amount:        t.Amount.InexactFloat64(),
		Currency:      t.Currency,
		PaymentStatus: t.PaymentStatus,
		Status:        t.Status,
		CreatedAt:     t.CreatedAt,
	}
}

// toHTTPError maps a service error onto the JSON error body. The underlying
// error is kept as internal so unexpected failures can be logged.
func toHTTPError(err error) error {
	httpErr := errors.MapErrorToHTTP(err)
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse()).SetInternal(err)
}
