package models

import "time"

type Tier struct {
	ID           int64     `json:"id" yaml:"-"`
	Code         string    `json:"tier_code" yaml:"code"`
	Name         string    `json:"tier_name" yaml:"name"`
	NameEn       string    `json:"tier_name_en" yaml:"name_en"`
	Subtitle     string    `json:"subtitle,omitempty" yaml:"subtitle"`
	Price        int64     `json:"price" yaml:"price"`
	MaxReward    int64     `json:"max_reward" yaml:"max_reward"`
	ColorScheme  string    `json:"color_scheme,omitempty" yaml:"color_scheme"`
	IsBestChoice bool      `json:"is_best_choice" yaml:"best_choice"`
	DisplayOrder int       `json:"display_order" yaml:"display_order"`
	IsActive     bool      `json:"is_active" yaml:"active"`
	CreatedAt    time.Time `json:"created_at" yaml:"-"`
	UpdatedAt    time.Time `json:"updated_at" yaml:"-"`
}

type Reward struct {
	ID           int64     `json:"id" yaml:"-"`
	TierID       int64     `json:"tier_id" yaml:"-"`
	Name         string    `json:"reward_name" yaml:"name"`
	NameEn       string    `json:"reward_name_en,omitempty" yaml:"name_en"`
	ImageURL     string    `json:"reward_image_url,omitempty" yaml:"image_url"`
	Value        int64     `json:"reward_value" yaml:"value"`
	Probability  float64   `json:"probability" yaml:"probability"`
	IsJackpot    bool      `json:"is_jackpot" yaml:"jackpot"`
	DisplayOrder int       `json:"display_order" yaml:"display_order"`
	IsActive     bool      `json:"is_active" yaml:"active"`
	CreatedAt    time.Time `json:"created_at" yaml:"-"`
	UpdatedAt    time.Time `json:"updated_at" yaml:"-"`
}

type TierWithRewards struct {
	Tier
	Rewards []Reward `json:"rewards"`
}

type Order struct {
	ID                   int64       `json:"id"`
	OrderNumber          string      `json:"order_number"`
	TierID               int64       `json:"tier_id"`
	TierCode             string      `json:"tier_code"`
	Price                int64       `json:"price"`
	Status               OrderStatus `json:"status"`
	PaymentMethod        string      `json:"payment_method,omitempty"`
	PaymentTransactionID string      `json:"payment_transaction_id,omitempty"`
	PaymentAt            *time.Time  `json:"payment_at,omitempty"`
	IsBroken             bool        `json:"is_broken"`
	BrokenAt             *time.Time  `json:"broken_at,omitempty"`
	RewardID             *int64      `json:"reward_id,omitempty"`
	RefundAt             *time.Time  `json:"refund_at,omitempty"`
	RefundReason         string      `json:"refund_reason,omitempty"`
	RefundAmount         *int64      `json:"refund_amount,omitempty"`
	UserIP               string      `json:"user_ip,omitempty"`
	UserAgent            string      `json:"user_agent,omitempty"`
	CreatedAt            time.Time   `json:"created_at"`
	UpdatedAt            time.Time   `json:"updated_at"`
}

// OrderDetails is an order with its tier, reward and shipping joined in.
type OrderDetails struct {
	Order
	Tier     *Tier     `json:"tier"`
	Reward   *Reward   `json:"reward"`
	Shipping *Shipping `json:"shipping"`
}

// OrderSummary is one row of the recent-orders listing.
type OrderSummary struct {
	Order
	TierName    string  `json:"tier_name"`
	ColorScheme string  `json:"color_scheme,omitempty"`
	RewardName  *string `json:"reward_name"`
	RewardValue *int64  `json:"reward_value"`
}

type Payment struct {
	Method        string
	TransactionID string
	PaidAt        time.Time
}

type Refund struct {
	Reason     string
	Amount     int64
	RefundedAt time.Time
}

const ShippingPending = "pending"

type Shipping struct {
	ID             int64      `json:"id"`
	OrderID        int64      `json:"order_id"`
	RecipientName  string     `json:"recipient_name"`
	RecipientPhone string     `json:"recipient_phone"`
	PostalCode     string     `json:"postal_code,omitempty"`
	Address        string     `json:"address"`
	AddressDetail  string     `json:"address_detail,omitempty"`
	ShippingMemo   string     `json:"shipping_memo,omitempty"`
	ShippingStatus string     `json:"shipping_status"`
	TrackingNumber string     `json:"tracking_number,omitempty"`
	ShippedAt      *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type AnalyticsEvent struct {
	ID        int64     `json:"id"`
	EventName string    `json:"event_name"`
	OrderID   *int64    `json:"order_id,omitempty"`
	TierCode  string    `json:"tier_code,omitempty"`
	UserID    *int64    `json:"user_id,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	EventData string    `json:"event_data,omitempty"`
	UserIP    string    `json:"-"`
	UserAgent string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
