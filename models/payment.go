package models

import "time"

// PaymentStatus is what a gateway reports for a payment reference
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusSuccess PaymentStatus = "success"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// PendingPayment is a recharge waiting for its gateway callback
type PendingPayment struct {
	Reference string    `json:"reference"`
	UserID    string    `json:"userId"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreditResult reports whether a payment credit changed the balance
type CreditResult struct {
	Credited   bool   `json:"credited"`
	NewBalance int64  `json:"newBalance"`
	Reference  string `json:"reference"`
}
