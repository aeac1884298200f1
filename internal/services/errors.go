package services

import "errors"

// Kind classifies a domain error for the transport layer.
type Kind int

const (
	KindUnexpected Kind = iota
	KindNotFound
	KindInvalidState
	KindValidation
	KindPaymentDeclined
	KindMisconfigured
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidState:
		return "invalid_state"
	case KindValidation:
		return "validation"
	case KindPaymentDeclined:
		return "payment_declined"
	case KindMisconfigured:
		return "misconfigured"
	default:
		return "unexpected"
	}
}

// Error is a domain error. Message is safe to show to clients; Detail is an
// optional longer explanation.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Detail  string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches by code, or by kind when target carries no code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code == "" {
		return e.Kind == t.Kind
	}
	return e.Code == t.Code
}

// with returns a copy of e that wraps cause.
func (e *Error) with(cause error) *Error {
	cp := *e
	cp.Cause = cause
	return &cp
}

// Kind-level sentinels; errors.Is(ErrAlreadyBroken, ErrInvalidState) holds.
var (
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrInvalidState    = &Error{Kind: KindInvalidState}
	ErrValidation      = &Error{Kind: KindValidation}
	ErrPaymentFailed   = &Error{Kind: KindPaymentDeclined}
	ErrMisconfigured   = &Error{Kind: KindMisconfigured}
	ErrUnexpectedError = &Error{Kind: KindUnexpected}
)

var (
	ErrTierNotFound     = &Error{Kind: KindNotFound, Code: "tier_not_found", Message: "Tier not found"}
	ErrOrderNotFound    = &Error{Kind: KindNotFound, Code: "order_not_found", Message: "Order not found"}
	ErrShippingNotFound = &Error{Kind: KindNotFound, Code: "shipping_not_found", Message: "Shipping information not found"}

	ErrNotPending       = &Error{Kind: KindInvalidState, Code: "not_pending", Message: "Order is not in payment_pending status"}
	ErrNotPaid          = &Error{Kind: KindInvalidState, Code: "not_paid", Message: "Order must be paid before breaking"}
	ErrAlreadyBroken    = &Error{Kind: KindInvalidState, Code: "already_broken", Message: "Box already broken"}
	ErrRefundNotAllowed = &Error{Kind: KindInvalidState, Code: "refund_not_allowed", Message: "Refund not allowed for this order", Detail: "박스를 깬 후에는 환불이 불가능합니다."}
	ErrBoxNotYetBroken  = &Error{Kind: KindInvalidState, Code: "box_not_broken", Message: "Box must be broken before submitting shipping info"}

	ErrMissingTierCode      = &Error{Kind: KindValidation, Code: "missing_tier_code", Message: "tier_code is required"}
	ErrMissingRequiredField = &Error{Kind: KindValidation, Code: "missing_required_fields", Message: "Missing required fields"}
	ErrInvalidOrderID       = &Error{Kind: KindValidation, Code: "invalid_order_id", Message: "Invalid order id"}

	ErrPaymentDeclined = &Error{Kind: KindPaymentDeclined, Code: "payment_declined", Message: "Payment failed", Detail: "Payment gateway error. Please try again."}

	ErrNoRewardsAvailable = &Error{Kind: KindMisconfigured, Code: "no_rewards", Message: "No rewards available for this tier"}

	// ErrOrderNumberExhausted is retryable: a new request draws fresh numbers.
	ErrOrderNumberExhausted = &Error{Kind: KindUnexpected, Code: "order_number_exhausted", Message: "Could not allocate an order number, please retry"}
)

// KindOf reports the kind of err; errors outside the domain are unexpected.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnexpected
}
