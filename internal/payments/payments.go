// Package payments is the payment collaborator. Only a randomized stub exists;
// no real gateway is integrated.
package payments

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrDeclined = errors.New("payment declined")

type Request struct {
	OrderID       int64
	Amount        int64
	Method        string
	TransactionID string
}

type Result struct {
	Method        string
	TransactionID string
	PaidAt        time.Time
}

type Gateway interface {
	Charge(ctx context.Context, req Request) (Result, error)
}

// StubGateway approves a charge with probability SuccessRate.
type StubGateway struct {
	SuccessRate   float64
	DefaultMethod string
	// Rand returns a value in [0,1). Defaults to math/rand/v2.
	Rand func() float64
	Now  func() time.Time
}

func (g StubGateway) Charge(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	draw := g.Rand
	if draw == nil {
		draw = rand.Float64
	}
	if draw() >= g.SuccessRate {
		return Result{}, ErrDeclined
	}

	method := strings.TrimSpace(req.Method)
	if method == "" {
		method = g.DefaultMethod
	}
	if method == "" {
		method = "card"
	}
	txID := strings.TrimSpace(req.TransactionID)
	if txID == "" {
		txID = "TXN-" + uuid.NewString()
	}
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	return Result{Method: method, TransactionID: txID, PaidAt: now().UTC()}, nil
}
