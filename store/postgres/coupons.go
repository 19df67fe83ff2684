package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/agencyhub/pkg/pg"
	"github.com/dmitrymomot/agencyhub/svc/coupon"
)

// CouponStore reads and redeems discount coupons.
type CouponStore struct {
	pool *pgxpool.Pool
}

var _ coupon.Store = (*CouponStore)(nil)

func (s *CouponStore) FindActiveByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	var (
		c     coupon.Coupon
		dtype string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, code, discount_type, discount_value, valid_from, valid_until,
		        max_uses, current_uses, applicable_plans, active, created_at
		 FROM discount_coupons
		 WHERE UPPER(code) = $1 AND active`,
		coupon.NormalizeCode(code),
	).Scan(
		&c.ID, &c.Code, &dtype, &c.DiscountValue, &c.ValidFrom, &c.ValidUntil,
		&c.MaxUses, &c.CurrentUses, &c.ApplicablePlans, &c.Active, &c.CreatedAt,
	)
	if pg.IsNotFoundError(err) {
		return nil, coupon.ErrCouponNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query coupon: %w", err)
	}
	c.DiscountType = coupon.DiscountType(dtype)
	return &c, nil
}

// Redeem records the session and increments current_uses in one
// transaction. The unique checkout_session_id makes replays no-ops and the
// guarded UPDATE never passes max_uses.
func (s *CouponStore) Redeem(ctx context.Context, couponID uuid.UUID, sessionID string, agencyID uuid.UUID) (coupon.RedeemOutcome, error) {
	var outcome coupon.RedeemOutcome
	err := pg.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`INSERT INTO coupon_redemptions (coupon_id, checkout_session_id, agency_id)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (checkout_session_id) DO NOTHING`,
			couponID, sessionID, agencyID,
		)
		if err != nil {
			if pg.IsForeignKeyViolationError(err) {
				return coupon.ErrCouponNotFound
			}
			return fmt.Errorf("insert redemption: %w", err)
		}
		if tag.RowsAffected() == 0 {
			outcome = coupon.Replayed
			return nil
		}

		tag, err = tx.Exec(ctx,
			`UPDATE discount_coupons
			 SET current_uses = current_uses + 1
			 WHERE id = $1 AND (max_uses IS NULL OR current_uses < max_uses)`,
			couponID,
		)
		if err != nil {
			return fmt.Errorf("increment coupon uses: %w", err)
		}
		if tag.RowsAffected() == 0 {
			outcome = coupon.Exhausted
			return errExhausted
		}
		outcome = coupon.Redeemed
		return nil
	})
	if errors.Is(err, errExhausted) {
		return coupon.Exhausted, nil
	}
	if err != nil {
		return "", err
	}
	return outcome, nil
}

// errExhausted rolls back the redemption row of a capped coupon.
var errExhausted = errors.New("coupon exhausted")
