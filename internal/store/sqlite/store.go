// Package sqlite provides a SQLite-backed store for local runs and tests.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"FortuneBox/internal/models"
	"FortuneBox/internal/store"
	"FortuneBox/internal/store/sqlite/migrations"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Store persists catalog, orders, shipping and analytics in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ store.Store = (*Store)(nil)

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

func nullMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMillis(v.Int64)
	return &t
}

// Open opens (or creates) the database at path and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Single writer; serializing connections also serializes the
	// compare-and-set updates.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

const tierColumns = `id, tier_code, tier_name, tier_name_en, subtitle, price, max_reward,
	color_scheme, is_best_choice, display_order, is_active, created_at, updated_at`

func scanTier(row rowScanner) (*models.Tier, error) {
	var t models.Tier
	var createdAt, updatedAt int64
	err := row.Scan(
		&t.ID, &t.Code, &t.Name, &t.NameEn, &t.Subtitle, &t.Price, &t.MaxReward,
		&t.ColorScheme, &t.IsBestChoice, &t.DisplayOrder, &t.IsActive, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.CreatedAt = fromMillis(createdAt)
	t.UpdatedAt = fromMillis(updatedAt)
	return &t, nil
}

func (s *Store) ListActiveTiers(ctx context.Context) ([]models.Tier, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+tierColumns+` FROM tiers WHERE is_active = 1 ORDER BY display_order ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tiers := []models.Tier{}
	for rows.Next() {
		t, err := scanTier(rows)
		if err != nil {
			return nil, err
		}
		tiers = append(tiers, *t)
	}
	return tiers, rows.Err()
}

func (s *Store) GetActiveTierByCode(ctx context.Context, code string) (*models.Tier, error) {
	t, err := scanTier(s.db.QueryRowContext(ctx, `SELECT `+tierColumns+` FROM tiers WHERE tier_code = ? AND is_active = 1`, code))
	return t, notFound(err)
}

func (s *Store) GetTier(ctx context.Context, id int64) (*models.Tier, error) {
	t, err := scanTier(s.db.QueryRowContext(ctx, `SELECT `+tierColumns+` FROM tiers WHERE id = ?`, id))
	return t, notFound(err)
}

const rewardColumns = `id, tier_id, reward_name, reward_name_en, reward_image_url, reward_value,
	probability, is_jackpot, display_order, is_active, created_at, updated_at`

func scanReward(row rowScanner) (*models.Reward, error) {
	var r models.Reward
	var createdAt, updatedAt int64
	err := row.Scan(
		&r.ID, &r.TierID, &r.Name, &r.NameEn, &r.ImageURL, &r.Value,
		&r.Probability, &r.IsJackpot, &r.DisplayOrder, &r.IsActive, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.CreatedAt = fromMillis(createdAt)
	r.UpdatedAt = fromMillis(updatedAt)
	return &r, nil
}

func (s *Store) ListActiveRewards(ctx context.Context, tierID int64, order store.RewardOrder) ([]models.Reward, error) {
	orderBy := "display_order ASC, id ASC"
	if order == store.ByProbabilityDesc {
		orderBy = "probability DESC, id ASC"
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+rewardColumns+` FROM rewards WHERE tier_id = ? AND is_active = 1 ORDER BY `+orderBy, tierID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rewards := []models.Reward{}
	for rows.Next() {
		r, err := scanReward(rows)
		if err != nil {
			return nil, err
		}
		rewards = append(rewards, *r)
	}
	return rewards, rows.Err()
}

func (s *Store) GetReward(ctx context.Context, id int64) (*models.Reward, error) {
	r, err := scanReward(s.db.QueryRowContext(ctx, `SELECT `+rewardColumns+` FROM rewards WHERE id = ?`, id))
	return r, notFound(err)
}

func (s *Store) UpsertTier(ctx context.Context, t *models.Tier) error {
	now := toMillis(s.now())
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO tiers (
			tier_code, tier_name, tier_name_en, subtitle, price, max_reward,
			color_scheme, is_best_choice, display_order, is_active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (tier_code) DO UPDATE SET
			tier_name = excluded.tier_name,
			tier_name_en = excluded.tier_name_en,
			subtitle = excluded.subtitle,
			price = excluded.price,
			max_reward = excluded.max_reward,
			color_scheme = excluded.color_scheme,
			is_best_choice = excluded.is_best_choice,
			display_order = excluded.display_order,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at
		RETURNING id, created_at, updated_at
	`,
		t.Code, t.Name, t.NameEn, t.Subtitle, t.Price, t.MaxReward,
		t.ColorScheme, t.IsBestChoice, t.DisplayOrder, t.IsActive, now, now,
	)
	var createdAt, updatedAt int64
	if err := row.Scan(&t.ID, &createdAt, &updatedAt); err != nil {
		return err
	}
	t.CreatedAt = fromMillis(createdAt)
	t.UpdatedAt = fromMillis(updatedAt)
	return nil
}

func (s *Store) UpsertReward(ctx context.Context, r *models.Reward) error {
	now := toMillis(s.now())
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO rewards (
			tier_id, reward_name, reward_name_en, reward_image_url, reward_value,
			probability, is_jackpot, display_order, is_active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (tier_id, reward_name) DO UPDATE SET
			reward_name_en = excluded.reward_name_en,
			reward_image_url = excluded.reward_image_url,
			reward_value = excluded.reward_value,
			probability = excluded.probability,
			is_jackpot = excluded.is_jackpot,
			display_order = excluded.display_order,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at
		RETURNING id, created_at, updated_at
	`,
		r.TierID, r.Name, r.NameEn, r.ImageURL, r.Value,
		r.Probability, r.IsJackpot, r.DisplayOrder, r.IsActive, now, now,
	)
	var createdAt, updatedAt int64
	if err := row.Scan(&r.ID, &createdAt, &updatedAt); err != nil {
		return err
	}
	r.CreatedAt = fromMillis(createdAt)
	r.UpdatedAt = fromMillis(updatedAt)
	return nil
}

const orderColumns = `o.id, o.order_number, o.tier_id, o.tier_code, o.price, o.status,
	o.payment_method, o.payment_transaction_id, o.payment_at, o.is_broken, o.broken_at,
	o.reward_id, o.refund_at, o.refund_reason, o.refund_amount, o.user_ip, o.user_agent,
	o.created_at, o.updated_at`

type nullableOrder struct {
	status        string
	paymentMethod sql.NullString
	paymentTxID   sql.NullString
	paymentAt     sql.NullInt64
	brokenAt      sql.NullInt64
	rewardID      sql.NullInt64
	refundAt      sql.NullInt64
	refundReason  sql.NullString
	refundAmount  sql.NullInt64
	createdAt     int64
	updatedAt     int64
}

func orderDest(o *models.Order, n *nullableOrder) []any {
	return []any{
		&o.ID, &o.OrderNumber, &o.TierID, &o.TierCode, &o.Price, &n.status,
		&n.paymentMethod, &n.paymentTxID, &n.paymentAt, &o.IsBroken, &n.brokenAt,
		&n.rewardID, &n.refundAt, &n.refundReason, &n.refundAmount, &o.UserIP, &o.UserAgent,
		&n.createdAt, &n.updatedAt,
	}
}

func (n *nullableOrder) apply(o *models.Order) {
	o.Status = models.OrderStatus(n.status)
	o.PaymentMethod = n.paymentMethod.String
	o.PaymentTransactionID = n.paymentTxID.String
	o.RefundReason = n.refundReason.String
	o.PaymentAt = nullMillis(n.paymentAt)
	o.BrokenAt = nullMillis(n.brokenAt)
	o.RefundAt = nullMillis(n.refundAt)
	if n.rewardID.Valid {
		o.RewardID = &n.rewardID.Int64
	}
	if n.refundAmount.Valid {
		o.RefundAmount = &n.refundAmount.Int64
	}
	o.CreatedAt = fromMillis(n.createdAt)
	o.UpdatedAt = fromMillis(n.updatedAt)
}

func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	now := s.now()
	if !order.CreatedAt.IsZero() {
		now = order.CreatedAt
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO orders (
			order_number, tier_id, tier_code, price, status,
			user_ip, user_agent, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		order.OrderNumber,
		order.TierID,
		order.TierCode,
		order.Price,
		string(order.Status),
		order.UserIP,
		order.UserAgent,
		toMillis(now),
		toMillis(now),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	order.ID = id
	order.CreatedAt = fromMillis(toMillis(now))
	order.UpdatedAt = order.CreatedAt
	return nil
}

func (s *Store) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	var n nullableOrder
	err := s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders o WHERE o.id = ?`, id).Scan(orderDest(&order, &n)...)
	if err != nil {
		return nil, notFound(err)
	}
	n.apply(&order)
	return &order, nil
}

func (s *Store) ListRecentOrders(ctx context.Context, limit int) ([]models.OrderSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+orderColumns+`,
			COALESCE(t.tier_name, ''), COALESCE(t.color_scheme, ''),
			r.reward_name, r.reward_value
		FROM orders o
		LEFT JOIN tiers t ON o.tier_id = t.id
		LEFT JOIN rewards r ON o.reward_id = r.id
		ORDER BY o.created_at DESC, o.id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.OrderSummary{}
	for rows.Next() {
		var sum models.OrderSummary
		var n nullableOrder
		var rewardName sql.NullString
		var rewardValue sql.NullInt64
		dest := append(orderDest(&sum.Order, &n), &sum.TierName, &sum.ColorScheme, &rewardName, &rewardValue)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		n.apply(&sum.Order)
		if rewardName.Valid {
			sum.RewardName = &rewardName.String
		}
		if rewardValue.Valid {
			sum.RewardValue = &rewardValue.Int64
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *Store) MarkPaid(ctx context.Context, orderID int64, p models.Payment) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET status = ?, payment_method = ?, payment_transaction_id = ?, payment_at = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, string(models.OrderPaid), p.Method, p.TransactionID, toMillis(p.PaidAt), toMillis(s.now()),
		orderID, string(models.OrderPaymentPending))
	return affected(res, err)
}

func (s *Store) MarkBroken(ctx context.Context, orderID, rewardID int64, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET is_broken = 1, broken_at = ?, reward_id = ?, status = ?, updated_at = ?
		WHERE id = ? AND status = ? AND is_broken = 0
	`, toMillis(at), rewardID, string(models.OrderBroken), toMillis(s.now()),
		orderID, string(models.OrderPaid))
	return affected(res, err)
}

func (s *Store) MarkRefunded(ctx context.Context, orderID int64, r models.Refund) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET status = ?, refund_at = ?, refund_reason = ?, refund_amount = ?, updated_at = ?
		WHERE id = ? AND status = ? AND is_broken = 0
	`, string(models.OrderRefunded), toMillis(r.RefundedAt), r.Reason, r.Amount, toMillis(s.now()),
		orderID, string(models.OrderPaid))
	return affected(res, err)
}

func affected(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) CancelStalePending(ctx context.Context, cutoff time.Time) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		UPDATE orders
		SET status = ?, updated_at = ?
		WHERE status = ? AND created_at < ?
		RETURNING id
	`, string(models.OrderCancelled), toMillis(s.now()), string(models.OrderPaymentPending), toMillis(cutoff))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const shippingColumns = `id, order_id, recipient_name, recipient_phone, postal_code, address,
	address_detail, shipping_memo, shipping_status, tracking_number, shipped_at, delivered_at,
	created_at, updated_at`

func scanShipping(row rowScanner) (*models.Shipping, error) {
	var sh models.Shipping
	var shippedAt, deliveredAt sql.NullInt64
	var createdAt, updatedAt int64
	err := row.Scan(
		&sh.ID, &sh.OrderID, &sh.RecipientName, &sh.RecipientPhone, &sh.PostalCode, &sh.Address,
		&sh.AddressDetail, &sh.ShippingMemo, &sh.ShippingStatus, &sh.TrackingNumber, &shippedAt, &deliveredAt,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	sh.ShippedAt = nullMillis(shippedAt)
	sh.DeliveredAt = nullMillis(deliveredAt)
	sh.CreatedAt = fromMillis(createdAt)
	sh.UpdatedAt = fromMillis(updatedAt)
	return &sh, nil
}

func (s *Store) UpsertShipping(ctx context.Context, sh *models.Shipping) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	now := toMillis(s.now())
	var existingID int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM shipping WHERE order_id = ?`, sh.OrderID).Scan(&existingID)
	created := errors.Is(err, sql.ErrNoRows)
	if err != nil && !created {
		return false, err
	}

	if created {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO shipping (
				order_id, recipient_name, recipient_phone, postal_code,
				address, address_detail, shipping_memo, shipping_status,
				created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, sh.OrderID, sh.RecipientName, sh.RecipientPhone, sh.PostalCode,
			sh.Address, sh.AddressDetail, sh.ShippingMemo, models.ShippingPending, now, now)
	} else {
		_, err = tx.ExecContext(ctx, `
			UPDATE shipping
			SET recipient_name = ?, recipient_phone = ?, postal_code = ?,
				address = ?, address_detail = ?, shipping_memo = ?, updated_at = ?
			WHERE order_id = ?
		`, sh.RecipientName, sh.RecipientPhone, sh.PostalCode,
			sh.Address, sh.AddressDetail, sh.ShippingMemo, now, sh.OrderID)
	}
	if err != nil {
		return false, err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE orders SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, string(models.OrderShipping), now, sh.OrderID, string(models.OrderBroken)); err != nil {
		return false, err
	}

	saved, err := scanShipping(tx.QueryRowContext(ctx, `SELECT `+shippingColumns+` FROM shipping WHERE order_id = ?`, sh.OrderID))
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	*sh = *saved
	return created, nil
}

func (s *Store) GetShipping(ctx context.Context, orderID int64) (*models.Shipping, error) {
	sh, err := scanShipping(s.db.QueryRowContext(ctx, `SELECT `+shippingColumns+` FROM shipping WHERE order_id = ?`, orderID))
	return sh, notFound(err)
}

func (s *Store) InsertEvent(ctx context.Context, evt models.AnalyticsEvent) error {
	createdAt := evt.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analytics_events (
			event_name, order_id, tier_code, user_id, session_id,
			event_data, user_ip, user_agent, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		evt.EventName,
		evt.OrderID,
		nullString(evt.TierCode),
		evt.UserID,
		nullString(evt.SessionID),
		nullString(evt.EventData),
		nullString(evt.UserIP),
		nullString(evt.UserAgent),
		toMillis(createdAt),
	)
	return err
}

// ListEvents returns recorded analytics events, oldest first. An empty name
// matches every event.
func (s *Store) ListEvents(ctx context.Context, name string) ([]models.AnalyticsEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_name, order_id, tier_code, session_id, event_data, user_ip, user_agent, created_at
		FROM analytics_events
		WHERE ? = '' OR event_name = ?
		ORDER BY id ASC
	`, name, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.AnalyticsEvent
	for rows.Next() {
		var evt models.AnalyticsEvent
		var orderID sql.NullInt64
		var tierCode, sessionID, data, ip, ua sql.NullString
		var createdAt int64
		if err := rows.Scan(&evt.ID, &evt.EventName, &orderID, &tierCode, &sessionID, &data, &ip, &ua, &createdAt); err != nil {
			return nil, err
		}
		if orderID.Valid {
			evt.OrderID = &orderID.Int64
		}
		evt.TierCode = tierCode.String
		evt.SessionID = sessionID.String
		evt.EventData = data.String
		evt.UserIP = ip.String
		evt.UserAgent = ua.String
		evt.CreatedAt = fromMillis(createdAt)
		out = append(out, evt)
	}
	return out, rows.Err()
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
