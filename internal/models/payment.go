package models

import (
	"time"

	"github.com/uptrace/bun"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
	PaymentFailed  PaymentStatus = "FAILED"
)

type PaymentMethod string

const (
	MethodCash         PaymentMethod = "CASH"
	MethodCreditCard   PaymentMethod = "CREDIT_CARD"
	MethodDebitCard    PaymentMethod = "DEBIT_CARD"
	MethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	MethodEWallet      PaymentMethod = "E_WALLET"
)

type Payment struct {
	bun.BaseModel `bun:"table:payments,alias:p"`

	ID          string        `bun:"id,pk" json:"id"`
	BookingID   string        `bun:"booking_id,unique,notnull" json:"bookingId"`
	Amount      float64       `bun:"amount,notnull" json:"amount"`
	Method      PaymentMethod `bun:"method,notnull" json:"method"`
	Status      PaymentStatus `bun:"status,notnull" json:"status"`
	ExternalRef string        `bun:"external_ref,nullzero" json:"externalRef,omitempty"`
	PaidAt      *time.Time    `bun:"paid_at" json:"paidAt,omitempty"`
	CreatedAt   time.Time     `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt   time.Time     `bun:"updated_at,notnull,default:current_timestamp" json:"updatedAt"`

	Booking *Booking `bun:"rel:belongs-to,join:booking_id=id" json:"booking,omitempty"`
}

type PaymentRequest struct {
	Amount float64       `json:"amount" validate:"required,gt=0"`
	Method PaymentMethod `json:"method" validate:"required,oneof=CASH CREDIT_CARD DEBIT_CARD BANK_TRANSFER E_WALLET"`
	// PaymentMethodID is the gateway-side card token, used by the Stripe gateway.
	PaymentMethodID string `json:"paymentMethodId,omitempty"`
}
