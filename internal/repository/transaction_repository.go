package repository

import (
	"context"

	"gorm.io/gorm"

	"classifieds/internal/model"
)

// TransactionRepository defines payment transaction persistence operations.
type TransactionRepository interface {
	Create(ctx context.Context, txn *model.PaymentTransaction) error
	FindBySessionID(ctx context.Context, sessionID string) (*model.PaymentTransaction, error)
	FindBySessionAndUser(ctx context.Context, sessionID, userID string) (*model.PaymentTransaction, error)
	UpdateStatus(ctx context.Context, sessionID, paymentStatus, status string) error
}

type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new payment transaction repository.
func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Create(ctx context.Context, txn *model.PaymentTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *transactionRepository) FindBySessionID(ctx context.Context, sessionID string) (*model.PaymentTransaction, error) {
	var txn model.PaymentTransaction
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&txn).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *transactionRepository) FindBySessionAndUser(ctx context.Context, sessionID, userID string) (*model.PaymentTransaction, error) {
	var txn model.PaymentTransaction
	if err := r.db.WithContext(ctx).
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		First(&txn).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

// UpdateStatus stores the provider's payment and checkout status verbatim.
// An unknown session id updates nothing.
func (r *transactionRepository) UpdateStatus(ctx context.Context, sessionID, paymentStatus, status string) error {
	return r.db.WithContext(ctx).Model(&model.PaymentTransaction{}).
		Where("session_id = ?", sessionID).
		Updates(map[string]interface{}{
			"payment_status": paymentStatus,
			"status":         status,
		}).Error
}
