package database

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sahilchouksey/coursehub-api/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type paymentRow struct {
	Seq                   int64  `gorm:"autoIncrement;uniqueIndex"`
	ID                    string `gorm:"primaryKey;type:varchar(36)"`
	UserID                string `gorm:"type:varchar(36);index:idx_payment_intents_pair"`
	CourseID              string `gorm:"type:varchar(36);index:idx_payment_intents_pair"`
	CourseTitle           string
	Amount                int64
	Currency              string `gorm:"type:varchar(3)"`
	Status                string `gorm:"type:varchar(20);index"`
	ProviderTransactionID string `gorm:"uniqueIndex;type:varchar(255)"`
	ClientSecret          string
	RefundedAmount        int64
	FailureReason         string
	ProcessedEvents       datatypes.JSONType[[]string]
	CreatedAt             time.Time
	UpdatedAt             time.Time `gorm:"autoUpdateTime:false"`
}

func (paymentRow) TableName() string { return "payment_intents" }

func newPaymentRow(p model.PaymentIntent) paymentRow {
	return paymentRow{
		ID:                    p.ID,
		UserID:                p.UserID,
		CourseID:              p.CourseID,
		CourseTitle:           p.CourseTitle,
		Amount:                p.Amount,
		Currency:              p.Currency,
		Status:                string(p.Status),
		ProviderTransactionID: p.ProviderTransactionID,
		ClientSecret:          p.ClientSecret,
		RefundedAmount:        p.RefundedAmount,
		FailureReason:         p.FailureReason,
		ProcessedEvents:       datatypes.NewJSONType(p.ProcessedEvents),
		CreatedAt:             p.CreatedAt,
		UpdatedAt:             p.UpdatedAt,
	}
}

func (r paymentRow) toModel() model.PaymentIntent {
	return model.PaymentIntent{
		ID:                    r.ID,
		UserID:                r.UserID,
		CourseID:              r.CourseID,
		CourseTitle:           r.CourseTitle,
		Amount:                r.Amount,
		Currency:              r.Currency,
		Status:                model.PaymentStatus(r.Status),
		ProviderTransactionID: r.ProviderTransactionID,
		ClientSecret:          r.ClientSecret,
		RefundedAmount:        r.RefundedAmount,
		FailureReason:         r.FailureReason,
		ProcessedEvents:       r.ProcessedEvents.Data(),
		CreatedAt:             r.CreatedAt,
		UpdatedAt:             r.UpdatedAt,
	}
}

type gormPayments struct {
	db *gorm.DB
}

func (s *gormPayments) Create(ctx context.Context, payment model.PaymentIntent) (model.PaymentIntent, error) {
	payment.ID = uuid.NewString()
	payment.CreatedAt = time.Now().UTC()
	payment.UpdatedAt = payment.CreatedAt
	if payment.Status == "" {
		payment.Status = model.PaymentPending
	}

	row := newPaymentRow(payment)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return model.PaymentIntent{}, ErrDuplicateProvider
		}
		return model.PaymentIntent{}, err
	}
	return row.toModel(), nil
}

func (s *gormPayments) FindByID(ctx context.Context, id string) (model.PaymentIntent, error) {
	var row paymentRow
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return model.PaymentIntent{}, translate(err)
	}
	return row.toModel(), nil
}

func (s *gormPayments) FindByProviderID(ctx context.Context, providerID string) (model.PaymentIntent, error) {
	if providerID == "" {
		return model.PaymentIntent{}, ErrNotFound
	}
	var row paymentRow
	if err := s.db.WithContext(ctx).Where("provider_transaction_id = ?", providerID).First(&row).Error; err != nil {
		return model.PaymentIntent{}, translate(err)
	}
	return row.toModel(), nil
}

func (s *gormPayments) FindBy(ctx context.Context, filter PaymentFilter) ([]model.PaymentIntent, error) {
	q := s.db.WithContext(ctx).Model(&paymentRow{})
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.CourseID != "" {
		q = q.Where("course_id = ?", filter.CourseID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}

	var rows []paymentRow
	if err := q.Order("seq").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]model.PaymentIntent, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

func (s *gormPayments) Delete(ctx context.Context, id string) (bool, error) {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&paymentRow{})
	return res.RowsAffected > 0, res.Error
}

func (s *gormPayments) Transition(ctx context.Context, id string, next model.PaymentStatus, fn func(*model.PaymentIntent)) (model.PaymentIntent, error) {
	var out model.PaymentIntent
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row paymentRow
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&row).Error; err != nil {
			return translate(err)
		}

		var lookupErr error
		err := checkTransition(model.PaymentStatus(row.Status), next, func() bool {
			var count int64
			lookupErr = tx.Model(&paymentRow{}).
				Where("user_id = ? AND course_id = ? AND status = ? AND id <> ?",
					row.UserID, row.CourseID, string(model.PaymentSucceeded), row.ID).
				Count(&count).Error
			return count > 0
		})
		if lookupErr != nil {
			return lookupErr
		}
		if err != nil {
			return err
		}

		payment := row.toModel()
		if fn != nil {
			fn(&payment)
		}
		payment.Status = next
		payment.UpdatedAt = touch(row.UpdatedAt)

		updated := newPaymentRow(payment)
		updated.Seq = row.Seq
		if err := tx.Save(&updated).Error; err != nil {
			// the partial unique index catches a concurrent second success
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyPurchased
			}
			return err
		}
		out = updated.toModel()
		return nil
	})
	return out, err
}

func (s *gormPayments) RecordEvent(ctx context.Context, id, eventID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row paymentRow
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&row).Error; err != nil {
			return translate(err)
		}
		payment := row.toModel()
		if payment.HasProcessed(eventID) {
			return nil
		}
		events := append(payment.ProcessedEvents, eventID)
		return tx.Model(&paymentRow{}).Where("id = ?", id).
			Update("processed_events", datatypes.NewJSONType(events)).Error
	})
}
