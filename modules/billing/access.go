package billing

import (
	"github.com/dmitrymomot/agencyhub/handler"
	"github.com/dmitrymomot/agencyhub/pkg/tenant"
)

type accessRequest struct{}

// checkAccess reports the caller's decision with 200 whatever the result, so
// clients can render the warning banner or the upgrade prompt themselves.
func (m *module) checkAccess(ctx handler.Context, _ accessRequest) handler.Response {
	userID, _ := tenant.UserIDFromContext(ctx)
	d, err := m.opts.Access.Check(ctx, userID)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(d)
}
