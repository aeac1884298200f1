package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"FortuneBox/internal/models"
	"FortuneBox/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type Store struct {
	Pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

func New(pool *pgxpool.Pool) *Store {
	return &Store{Pool: pool}
}

func (s *Store) Close() error {
	s.Pool.Close()
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

const tierColumns = `id, tier_code, tier_name, tier_name_en, subtitle, price, max_reward,
	color_scheme, is_best_choice, display_order, is_active, created_at, updated_at`

func scanTier(row rowScanner) (*models.Tier, error) {
	var t models.Tier
	err := row.Scan(
		&t.ID, &t.Code, &t.Name, &t.NameEn, &t.Subtitle, &t.Price, &t.MaxReward,
		&t.ColorScheme, &t.IsBestChoice, &t.DisplayOrder, &t.IsActive, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) ListActiveTiers(ctx context.Context) ([]models.Tier, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+tierColumns+` FROM tiers WHERE is_active ORDER BY display_order ASC, id ASC`)
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
	t, err := scanTier(s.Pool.QueryRow(ctx, `SELECT `+tierColumns+` FROM tiers WHERE tier_code=$1 AND is_active`, code))
	return t, notFound(err)
}

func (s *Store) GetTier(ctx context.Context, id int64) (*models.Tier, error) {
	t, err := scanTier(s.Pool.QueryRow(ctx, `SELECT `+tierColumns+` FROM tiers WHERE id=$1`, id))
	return t, notFound(err)
}

const rewardColumns = `id, tier_id, reward_name, reward_name_en, reward_image_url, reward_value,
	probability, is_jackpot, display_order, is_active, created_at, updated_at`

func scanReward(row rowScanner) (*models.Reward, error) {
	var r models.Reward
	err := row.Scan(
		&r.ID, &r.TierID, &r.Name, &r.NameEn, &r.ImageURL, &r.Value,
		&r.Probability, &r.IsJackpot, &r.DisplayOrder, &r.IsActive, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) ListActiveRewards(ctx context.Context, tierID int64, order store.RewardOrder) ([]models.Reward, error) {
	orderBy := "display_order ASC, id ASC"
	if order == store.ByProbabilityDesc {
		orderBy = "probability DESC, id ASC"
	}
	rows, err := s.Pool.Query(ctx, `SELECT `+rewardColumns+` FROM rewards WHERE tier_id=$1 AND is_active ORDER BY `+orderBy, tierID)
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
	r, err := scanReward(s.Pool.QueryRow(ctx, `SELECT `+rewardColumns+` FROM rewards WHERE id=$1`, id))
	return r, notFound(err)
}

func (s *Store) UpsertTier(ctx context.Context, t *models.Tier) error {
	return s.Pool.QueryRow(ctx, `
		INSERT INTO tiers (
			tier_code, tier_name, tier_name_en, subtitle, price, max_reward,
			color_scheme, is_best_choice, display_order, is_active
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (tier_code) DO UPDATE SET
			tier_name=EXCLUDED.tier_name,
			tier_name_en=EXCLUDED.tier_name_en,
			subtitle=EXCLUDED.subtitle,
			price=EXCLUDED.price,
			max_reward=EXCLUDED.max_reward,
			color_scheme=EXCLUDED.color_scheme,
			is_best_choice=EXCLUDED.is_best_choice,
			display_order=EXCLUDED.display_order,
			is_active=EXCLUDED.is_active,
			updated_at=now()
		RETURNING id, created_at, updated_at
	`,
		t.Code, t.Name, t.NameEn, t.Subtitle, t.Price, t.MaxReward,
		t.ColorScheme, t.IsBestChoice, t.DisplayOrder, t.IsActive,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

func (s *Store) UpsertReward(ctx context.Context, r *models.Reward) error {
	return s.Pool.QueryRow(ctx, `
		INSERT INTO rewards (
			tier_id, reward_name, reward_name_en, reward_image_url, reward_value,
			probability, is_jackpot, display_order, is_active
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (tier_id, reward_name) DO UPDATE SET
			reward_name_en=EXCLUDED.reward_name_en,
			reward_image_url=EXCLUDED.reward_image_url,
			reward_value=EXCLUDED.reward_value,
			probability=EXCLUDED.probability,
			is_jackpot=EXCLUDED.is_jackpot,
			display_order=EXCLUDED.display_order,
			is_active=EXCLUDED.is_active,
			updated_at=now()
		RETURNING id, created_at, updated_at
	`,
		r.TierID, r.Name, r.NameEn, r.ImageURL, r.Value,
		r.Probability, r.IsJackpot, r.DisplayOrder, r.IsActive,
	).Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)
}

const orderColumns = `o.id, o.order_number, o.tier_id, o.tier_code, o.price, o.status,
	o.payment_method, o.payment_transaction_id, o.payment_at, o.is_broken, o.broken_at,
	o.reward_id, o.refund_at, o.refund_reason, o.refund_amount, o.user_ip, o.user_agent,
	o.created_at, o.updated_at`

func orderDest(o *models.Order, n *nullableOrder) []any {
	return []any{
		&o.ID, &o.OrderNumber, &o.TierID, &o.TierCode, &o.Price, &n.status,
		&n.paymentMethod, &n.paymentTxID, &n.paymentAt, &o.IsBroken, &n.brokenAt,
		&n.rewardID, &n.refundAt, &n.refundReason, &n.refundAmount, &o.UserIP, &o.UserAgent,
		&o.CreatedAt, &o.UpdatedAt,
	}
}

type nullableOrder struct {
	status        string
	paymentMethod sql.NullString
	paymentTxID   sql.NullString
	paymentAt     sql.NullTime
	brokenAt      sql.NullTime
	rewardID      sql.NullInt64
	refundAt      sql.NullTime
	refundReason  sql.NullString
	refundAmount  sql.NullInt64
}

func (n *nullableOrder) apply(o *models.Order) {
	o.Status = models.OrderStatus(n.status)
	o.PaymentMethod = n.paymentMethod.String
	o.PaymentTransactionID = n.paymentTxID.String
	o.RefundReason = n.refundReason.String
	if n.paymentAt.Valid {
		o.PaymentAt = &n.paymentAt.Time
	}
	if n.brokenAt.Valid {
		o.BrokenAt = &n.brokenAt.Time
	}
	if n.rewardID.Valid {
		o.RewardID = &n.rewardID.Int64
	}
	if n.refundAt.Valid {
		o.RefundAt = &n.refundAt.Time
	}
	if n.refundAmount.Valid {
		o.RefundAmount = &n.refundAmount.Int64
	}
}

func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	err := s.Pool.QueryRow(ctx, `
		INSERT INTO orders (
			order_number, tier_id, tier_code, price, status, user_ip, user_agent
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id, created_at, updated_at
	`,
		order.OrderNumber,
		order.TierID,
		order.TierCode,
		order.Price,
		string(order.Status),
		order.UserIP,
		order.UserAgent,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return store.ErrDuplicate
	}
	return err
}

func (s *Store) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	var n nullableOrder
	err := s.Pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders o WHERE o.id=$1`, id).Scan(orderDest(&order, &n)...)
	if err != nil {
		return nil, notFound(err)
	}
	n.apply(&order)
	return &order, nil
}

func (s *Store) ListRecentOrders(ctx context.Context, limit int) ([]models.OrderSummary, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+orderColumns+`,
			COALESCE(t.tier_name, ''), COALESCE(t.color_scheme, ''),
			r.reward_name, r.reward_value
		FROM orders o
		LEFT JOIN tiers t ON o.tier_id = t.id
		LEFT JOIN rewards r ON o.reward_id = r.id
		ORDER BY o.created_at DESC, o.id DESC
		LIMIT $1
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
	res, err := s.Pool.Exec(ctx, `
		UPDATE orders
		SET status=$2, payment_method=$3, payment_transaction_id=$4, payment_at=$5, updated_at=now()
		WHERE id=$1 AND status=$6
	`, orderID, string(models.OrderPaid), p.Method, p.TransactionID, p.PaidAt, string(models.OrderPaymentPending))
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

func (s *Store) MarkBroken(ctx context.Context, orderID, rewardID int64, at time.Time) (bool, error) {
	res, err := s.Pool.Exec(ctx, `
		UPDATE orders
		SET is_broken=TRUE, broken_at=$3, reward_id=$2, status=$4, updated_at=now()
		WHERE id=$1 AND status=$5 AND NOT is_broken
	`, orderID, rewardID, at, string(models.OrderBroken), string(models.OrderPaid))
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

func (s *Store) MarkRefunded(ctx context.Context, orderID int64, r models.Refund) (bool, error) {
	res, err := s.Pool.Exec(ctx, `
		UPDATE orders
		SET status=$2, refund_at=$3, refund_reason=$4, refund_amount=$5, updated_at=now()
		WHERE id=$1 AND status=$6 AND NOT is_broken
	`, orderID, string(models.OrderRefunded), r.RefundedAt, r.Reason, r.Amount, string(models.OrderPaid))
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

func (s *Store) CancelStalePending(ctx context.Context, cutoff time.Time) ([]int64, error) {
	rows, err := s.Pool.Query(ctx, `
		UPDATE orders
		SET status=$1, updated_at=now()
		WHERE status=$2 AND created_at < $3
		RETURNING id
	`, string(models.OrderCancelled), string(models.OrderPaymentPending), cutoff)
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

func (s *Store) UpsertShipping(ctx context.Context, sh *models.Shipping) (bool, error) {
	var created bool
	err := pgx.BeginFunc(ctx, s.Pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO shipping (
				order_id, recipient_name, recipient_phone, postal_code,
				address, address_detail, shipping_memo, shipping_status
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			ON CONFLICT (order_id) DO UPDATE SET
				recipient_name=EXCLUDED.recipient_name,
				recipient_phone=EXCLUDED.recipient_phone,
				postal_code=EXCLUDED.postal_code,
				address=EXCLUDED.address,
				address_detail=EXCLUDED.address_detail,
				shipping_memo=EXCLUDED.shipping_memo,
				updated_at=now()
			RETURNING id, shipping_status, created_at, updated_at, (xmax = 0)
		`,
			sh.OrderID, sh.RecipientName, sh.RecipientPhone, sh.PostalCode,
			sh.Address, sh.AddressDetail, sh.ShippingMemo, models.ShippingPending,
		).Scan(&sh.ID, &sh.ShippingStatus, &sh.CreatedAt, &sh.UpdatedAt, &created)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE orders SET status=$2, updated_at=now()
			WHERE id=$1 AND status=$3
		`, sh.OrderID, string(models.OrderShipping), string(models.OrderBroken))
		return err
	})
	return created, err
}

func (s *Store) GetShipping(ctx context.Context, orderID int64) (*models.Shipping, error) {
	var sh models.Shipping
	var shippedAt, deliveredAt sql.NullTime
	err := s.Pool.QueryRow(ctx, `SELECT `+shippingColumns+` FROM shipping WHERE order_id=$1`, orderID).Scan(
		&sh.ID, &sh.OrderID, &sh.RecipientName, &sh.RecipientPhone, &sh.PostalCode, &sh.Address,
		&sh.AddressDetail, &sh.ShippingMemo, &sh.ShippingStatus, &sh.TrackingNumber, &shippedAt, &deliveredAt,
		&sh.CreatedAt, &sh.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	if shippedAt.Valid {
		sh.ShippedAt = &shippedAt.Time
	}
	if deliveredAt.Valid {
		sh.DeliveredAt = &deliveredAt.Time
	}
	return &sh, nil
}

func (s *Store) InsertEvent(ctx context.Context, evt models.AnalyticsEvent) error {
	createdAt := evt.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO analytics_events (
			event_name, order_id, tier_code, user_id, session_id,
			event_data, user_ip, user_agent, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		evt.EventName,
		evt.OrderID,
		nullString(evt.TierCode),
		evt.UserID,
		nullString(evt.SessionID),
		nullString(evt.EventData),
		nullString(evt.UserIP),
		nullString(evt.UserAgent),
		createdAt,
	)
	return err
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
