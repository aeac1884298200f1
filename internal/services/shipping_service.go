package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"FortuneBox/internal/analytics"
	"FortuneBox/internal/models"
	"FortuneBox/internal/store"
)

// ShippingRequest carries the recipient details for a broken box.
type ShippingRequest struct {
	OrderID        int64  `json:"order_id"`
	RecipientName  string `json:"recipient_name"`
	RecipientPhone string `json:"recipient_phone"`
	PostalCode     string `json:"postal_code"`
	Address        string `json:"address"`
	AddressDetail  string `json:"address_detail"`
	ShippingMemo   string `json:"shipping_memo"`
}

func (r ShippingRequest) normalized() ShippingRequest {
	r.RecipientName = strings.TrimSpace(r.RecipientName)
	r.RecipientPhone = strings.TrimSpace(r.RecipientPhone)
	r.PostalCode = strings.TrimSpace(r.PostalCode)
	r.Address = strings.TrimSpace(r.Address)
	r.AddressDetail = strings.TrimSpace(r.AddressDetail)
	r.ShippingMemo = strings.TrimSpace(r.ShippingMemo)
	return r
}

type ShippingService struct {
	Store  store.Store
	Events Recorder
}

// Submit creates or updates the shipping record of a broken order. The first
// submission moves the order to shipping; later ones only edit the record.
func (s ShippingService) Submit(ctx context.Context, req ShippingRequest) (*models.Shipping, bool, error) {
	req = req.normalized()
	if req.OrderID <= 0 || req.RecipientName == "" || req.RecipientPhone == "" || req.Address == "" {
		return nil, false, ErrMissingRequiredField
	}

	order, err := s.Store.GetOrder(ctx, req.OrderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, false, ErrOrderNotFound
	}
	if err != nil {
		return nil, false, fmt.Errorf("load order: %w", err)
	}
	if !order.IsBroken {
		return nil, false, ErrBoxNotYetBroken
	}

	sh := &models.Shipping{
		OrderID:        req.OrderID,
		RecipientName:  req.RecipientName,
		RecipientPhone: req.RecipientPhone,
		PostalCode:     req.PostalCode,
		Address:        req.Address,
		AddressDetail:  req.AddressDetail,
		ShippingMemo:   req.ShippingMemo,
	}
	created, err := s.Store.UpsertShipping(ctx, sh)
	if err != nil {
		return nil, false, fmt.Errorf("upsert shipping: %w", err)
	}

	if s.Events != nil {
		s.Events.Record(ctx, models.AnalyticsEvent{
			EventName: analytics.EventShippingSubmit,
			OrderID:   &order.ID,
			TierCode:  order.TierCode,
			EventData: analytics.Data(map[string]any{"recipient_name": req.RecipientName, "created": created}),
		})
	}
	return sh, created, nil
}

func (s ShippingService) Get(ctx context.Context, orderID int64) (*models.Shipping, error) {
	if orderID <= 0 {
		return nil, ErrShippingNotFound
	}
	sh, err := s.Store.GetShipping(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrShippingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load shipping: %w", err)
	}
	return sh, nil
}
