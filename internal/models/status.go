package models

type OrderStatus string

const (
	OrderPaymentPending OrderStatus = "payment_pending"
	OrderPaid           OrderStatus = "paid"
	OrderBroken         OrderStatus = "broken"
	OrderShipping       OrderStatus = "shipping"
	OrderDelivered      OrderStatus = "delivered"
	OrderRefunded       OrderStatus = "refunded"
	OrderCancelled      OrderStatus = "cancelled"
)

// transitions lists every legal forward move. Anything absent is rejected.
var transitions = map[OrderStatus][]OrderStatus{
	OrderPaymentPending: {OrderPaid, OrderCancelled},
	OrderPaid:           {OrderBroken, OrderRefunded},
	OrderBroken:         {OrderShipping},
	OrderShipping:       {OrderDelivered},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPaymentPending, OrderPaid, OrderBroken, OrderShipping,
		OrderDelivered, OrderRefunded, OrderCancelled:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s OrderStatus) Terminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CanRefund holds only for paid orders whose box is still sealed.
func (o *Order) CanRefund() bool {
	return !o.IsBroken && CanTransition(o.Status, OrderRefunded)
}

// CanBreak holds only for paid orders whose box is still sealed.
func (o *Order) CanBreak() bool {
	return !o.IsBroken && CanTransition(o.Status, OrderBroken)
}
