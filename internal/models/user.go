package models

import (
	"time"

	"github.com/google/uuid"
)

// Роли пользователей
const (
	RoleClient     = "client"
	RoleFreelancer = "freelancer"
	RoleAdmin      = "admin"
)

// User описывает пользователя платформы. Регистрация и сессии живут во
// внешнем сервисе, движку нужны только идентичность и роль.
type User struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Username  string    `db:"username" json:"username"`
	Role      string    `db:"role" json:"role"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// BillingProfile — платёжные реквизиты клиента у карточного шлюза.
type BillingProfile struct {
	UserID                 uuid.UUID `db:"user_id" json:"user_id"`
	GatewayCustomerID      *string   `db:"gateway_customer_id" json:"gateway_customer_id,omitempty"`
	DefaultPaymentMethodID *string   `db:"default_payment_method_id" json:"default_payment_method_id,omitempty"`
	UpdatedAt              time.Time `db:"updated_at" json:"updated_at"`
}
