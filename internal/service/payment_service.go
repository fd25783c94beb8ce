package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"classifieds/internal/cache"
	apperrors "classifieds/internal/errors"
	"classifieds/internal/metrics"
	"classifieds/internal/model"
	"classifieds/internal/payment"
	"classifieds/internal/repository"
)

const (
	premiumAdCurrency    = "usd"
	premiumAdProductName = "Premium ad"
)

// PremiumAdPrice is the fixed price of upgrading an ad.
var PremiumAdPrice = decimal.RequireFromString("10.00")

// CheckoutResult is what the client needs to redirect to the hosted checkout.
type CheckoutResult struct {
	URL       string
	SessionID string
}

// PaymentService orchestrates premium ad checkouts.
type PaymentService interface {
	CreateSession(ctx context.Context, userID string, adID *string, originURL string) (*CheckoutResult, error)
	PollStatus(ctx context.Context, sessionID, userID string) (*model.PaymentTransaction, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

type paymentService struct {
	txnRepo repository.TransactionRepository
	adRepo  repository.AdRepository
	gateway payment.Gateway
	cache   *cache.Client
	metrics metrics.Recorder
	logger  *slog.Logger
}

// NewPaymentService creates a new payment service.
func NewPaymentService(
	txnRepo repository.TransactionRepository,
	adRepo repository.AdRepository,
	gateway payment.Gateway,
	cache *cache.Client,
	recorder metrics.Recorder,
	logger *slog.Logger,
) PaymentService {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &paymentService{
		txnRepo: txnRepo,
		adRepo:  adRepo,
		gateway: gateway,
		cache:   cache,
		metrics: recorder,
		logger:  logger,
	}
}

// CreateSession opens a checkout for the premium upgrade and records a
// pending transaction for it. adID may be nil for a pre-purchase.
func (s *paymentService) CreateSession(ctx context.Context, userID string, adID *string, originURL string) (*CheckoutResult, error) {
	origin := strings.TrimRight(strings.TrimSpace(originURL), "/")
	if origin == "" {
		return nil, apperrors.ErrOriginURLRequired
	}
	if adID != nil && *adID == "" {
		adID = nil
	}

	metaAdID := ""
	if adID != nil {
		metaAdID = *adID
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, payment.CheckoutRequest{
		Amount:      PremiumAdPrice,
		Currency:    premiumAdCurrency,
		ProductName: premiumAdProductName,
		SuccessURL:  origin + "/payment-success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:   origin + "/post-ad",
		Metadata: map[string]string{
			"user_id": userID,
			"ad_id":   metaAdID,
			"type":    "premium_ad",
		},
	})
	if err != nil {
		return nil, err
	}

	txn := &model.PaymentTransaction{
		UserID:        userID,
		AdID:          adID,
		SessionID:     session.ID,
		Amount:        PremiumAdPrice,
		Currency:      premiumAdCurrency,
		PaymentStatus: model.PaymentStatusPending,
	}
	if err := s.txnRepo.Create(ctx, txn); err != nil {
		return nil, fmt.Errorf("record transaction: %w", err)
	}

	s.metrics.RecordCheckoutSession()
	return &CheckoutResult{URL: session.URL, SessionID: session.ID}, nil
}

// PollStatus refreshes a transaction from the provider unless it already settled.
func (s *paymentService) PollStatus(ctx context.Context, sessionID, userID string) (*model.PaymentTransaction, error) {
	txn, err := s.txnRepo.FindBySessionAndUser(ctx, sessionID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find transaction: %w", err)
	}
	if txn.Settled() {
		return txn, nil
	}

	session, err := s.gateway.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if err := s.txnRepo.UpdateStatus(ctx, sessionID, session.PaymentStatus, session.Status); err != nil {
		return nil, fmt.Errorf("update transaction: %w", err)
	}
	txn.PaymentStatus = session.PaymentStatus
	txn.Status = session.Status

	if session.PaymentStatus == model.PaymentStatusPaid && txn.AdID != nil {
		if err := s.upgradeAd(ctx, *txn.AdID, "poll"); err != nil {
			return nil, err
		}
	}

	updated, err := s.txnRepo.FindBySessionID(ctx, sessionID)
	if err != nil {
		return txn, nil
	}
	return updated, nil
}

// HandleWebhook verifies and applies a provider notification. Failures are
// logged before being returned.
func (s *paymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if err := s.handleWebhook(ctx, payload, signature); err != nil {
		s.metrics.RecordWebhookFailure()
		s.logger.ErrorContext(ctx, "webhook error", slog.String("error", err.Error()))
		return err
	}
	return nil
}

func (s *paymentService) handleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		return err
	}
	if event.Type != payment.EventCheckoutCompleted || event.Session == nil {
		return nil
	}

	sessionID := event.Session.ID
	if err := s.txnRepo.UpdateStatus(ctx, sessionID, event.Session.PaymentStatus, model.CheckoutStatusComplete); err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}

	txn, err := s.txnRepo.FindBySessionID(ctx, sessionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Checkouts not opened through this service are acknowledged and ignored.
		s.logger.WarnContext(ctx, "webhook for unknown checkout session", slog.String("session_id", sessionID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("find transaction: %w", err)
	}
	if txn.AdID == nil {
		return nil
	}
	return s.upgradeAd(ctx, *txn.AdID, "webhook")
}

func (s *paymentService) upgradeAd(ctx context.Context, adID, source string) error {
	if err := s.adRepo.MarkPaid(ctx, adID); err != nil {
		return fmt.Errorf("upgrade ad: %w", err)
	}
	_ = s.cache.Delete(ctx, adCacheKey(adID))
	s.metrics.RecordAdUpgrade(source)
	s.logger.InfoContext(ctx, "ad upgraded to premium", slog.String("ad_id", adID), slog.String("source", source))
	return nil
}
