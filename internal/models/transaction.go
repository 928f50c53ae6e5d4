// internal/models/transaction.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentDetails is owned exclusively by its transaction. TransactionID is the
// opaque reference generated at creation; the gateway fields are merged in on
// completion.
type PaymentDetails struct {
	TransactionID        string `json:"transactionId,omitempty" gorm:"column:payment_reference;size:100"`
	PaymentGateway       string `json:"paymentGateway,omitempty" gorm:"column:payment_gateway;size:50"`
	GatewayTransactionID string `json:"gatewayTransactionId,omitempty" gorm:"column:gateway_transaction_id;size:100"`
}

type BillingAddress struct {
	Street     string `json:"street,omitempty" gorm:"size:100"`
	City       string `json:"city,omitempty" gorm:"size:50"`
	District   string `json:"district,omitempty" gorm:"size:50"`
	PostalCode string `json:"postalCode,omitempty" gorm:"size:10"`
	Country    string `json:"country,omitempty" gorm:"size:50;default:'Sri Lanka'"`
}

type Transaction struct {
	BaseModel
	UserID             uuid.UUID         `json:"userId" gorm:"type:uuid;not null;index;index:idx_transactions_user_status"`
	CarID              uuid.UUID         `json:"carId" gorm:"type:uuid;not null;index;index:idx_transactions_car_status"`
	Amount             float64           `json:"amount" gorm:"type:decimal(12,2);not null"`
	Status             TransactionStatus `json:"status" gorm:"type:varchar(20);default:'pending';not null;index:idx_transactions_user_status;index:idx_transactions_car_status"`
	PaymentMethod      PaymentMethod     `json:"paymentMethod" gorm:"type:varchar(20);default:'credit_card'"`
	PaymentDetails     PaymentDetails    `json:"paymentDetails" gorm:"embedded"`
	BillingAddress     BillingAddress    `json:"billingAddress" gorm:"embedded;embeddedPrefix:billing_"`
	Notes              string            `json:"notes,omitempty" gorm:"size:500"`
	Metadata           JSONB             `json:"metadata,omitempty" gorm:"type:jsonb"`
	CompletedAt        *time.Time        `json:"completedAt,omitempty"`
	CancelledAt        *time.Time        `json:"cancelledAt,omitempty"`
	CancelledByID      *uuid.UUID        `json:"cancelledBy,omitempty" gorm:"type:uuid"`
	CancellationReason string            `json:"cancellationReason,omitempty" gorm:"size:200"`
	RefundAmount       *float64          `json:"refundAmount,omitempty" gorm:"type:decimal(12,2)"`
	RefundedAt         *time.Time        `json:"refundedAt,omitempty"`
	RefundReason       string            `json:"refundReason,omitempty" gorm:"size:200"`

	// Relationships
	User        User        `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Car         CarListing  `json:"car,omitempty" gorm:"foreignKey:CarID"`
	CancelledBy *User       `json:"canceller,omitempty" gorm:"foreignKey:CancelledByID"`
}

// IsPending reports whether the transaction is still open for completion or
// cancellation.
func (t *Transaction) IsPending() bool {
	return t.Status == TransactionStatusPending
}
