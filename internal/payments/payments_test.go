package payments

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func fixed(v float64) func() float64 { return func() float64 { return v } }

func TestStubGatewayApproves(t *testing.T) {
	paidAt := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	g := StubGateway{SuccessRate: 0.95, Rand: fixed(0.5), Now: func() time.Time { return paidAt }}

	res, err := g.Charge(context.Background(), Request{OrderID: 1, Amount: 30000})
	if err != nil {
		t.Fatalf("Charge failed: %v", err)
	}
	if res.Method != "card" {
		t.Fatalf("unexpected method: got=%q want=%q", res.Method, "card")
	}
	if !strings.HasPrefix(res.TransactionID, "TXN-") || len(res.TransactionID) != len("TXN-")+36 {
		t.Fatalf("unexpected transaction id: %q", res.TransactionID)
	}
	if !res.PaidAt.Equal(paidAt) {
		t.Fatalf("unexpected paid at: got=%v want=%v", res.PaidAt, paidAt)
	}
}

func TestStubGatewayKeepsCallerValues(t *testing.T) {
	g := StubGateway{SuccessRate: 1, DefaultMethod: "card", Rand: fixed(0.999)}
	res, err := g.Charge(context.Background(), Request{Method: "kakaopay", TransactionID: "abc"})
	if err != nil {
		t.Fatalf("Charge failed: %v", err)
	}
	if res.Method != "kakaopay" || res.TransactionID != "abc" {
		t.Fatalf("caller values not kept: %+v", res)
	}
}

func TestStubGatewayDeclines(t *testing.T) {
	cases := []struct {
		rate float64
		draw float64
	}{
		{0.95, 0.95},
		{0.95, 0.99},
		{0, 0},
	}
	for _, tc := range cases {
		g := StubGateway{SuccessRate: tc.rate, Rand: fixed(tc.draw)}
		if _, err := g.Charge(context.Background(), Request{}); !errors.Is(err, ErrDeclined) {
			t.Fatalf("rate=%v draw=%v: expected ErrDeclined, got %v", tc.rate, tc.draw, err)
		}
	}
}

func TestStubGatewayHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := StubGateway{SuccessRate: 1}
	if _, err := g.Charge(ctx, Request{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
