package billing

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dmitrymomot/agencyhub/handler"
	"github.com/dmitrymomot/agencyhub/pkg/validator"
	"github.com/dmitrymomot/agencyhub/svc/coupon"
)

type couponRequest struct {
	Code   string
	PlanID *uuid.UUID
}

// couponPreview never says why a code is unusable.
type couponPreview struct {
	Code          string              `json:"code"`
	Valid         bool                `json:"valid"`
	DiscountType  coupon.DiscountType `json:"discount_type,omitempty"`
	DiscountValue *decimal.Decimal    `json:"discount_value,omitempty"`
}

func bindCouponQuery(r *http.Request, v any) error {
	req := v.(*couponRequest)
	req.Code = chi.URLParam(r, "code")

	raw := strings.TrimSpace(r.URL.Query().Get("plan_id"))
	if raw == "" {
		return nil
	}
	if err := validator.Apply(validator.ValidUUID("plan_id", raw)); err != nil {
		return err
	}
	id := uuid.MustParse(raw)
	req.PlanID = &id
	return nil
}

func (m *module) previewCoupon(ctx handler.Context, req couponRequest) handler.Response {
	code := coupon.NormalizeCode(req.Code)
	c, err := m.opts.Coupons.Validate(ctx, code, m.opts.Now(), req.PlanID)
	if err != nil {
		return handler.Error(err)
	}

	preview := couponPreview{Code: code, Valid: c != nil}
	if c != nil {
		value := c.DiscountValue
		preview.DiscountType = c.DiscountType
		preview.DiscountValue = &value
	}
	return handler.JSON(preview)
}
