package access_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/agencyhub/svc/access"
	"github.com/dmitrymomot/agencyhub/svc/subscription"
)

func TestBlockedPage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		decision access.Decision
		url      string
		want     []string
	}{
		{
			name:     "no agency",
			decision: access.Decision{Result: access.Block, Reason: access.ReasonNoAgency},
			url:      "/billing",
			want:     []string{"<title>No agency yet</title>", `data-reason="no_agency"`, `href="/billing"`},
		},
		{
			name:     "past due",
			decision: access.Decision{Result: access.Block, Reason: access.ReasonInactiveSubscription, Status: subscription.StatusPastDue},
			url:      "/billing?tab=plans&from=app",
			want:     []string{"subscription is past_due", `href="/billing?tab=plans&amp;from=app"`},
		},
		{
			name:     "unsafe billing url",
			decision: access.Decision{Result: access.Block, Reason: access.ReasonInactiveSubscription},
			url:      "javascript:alert(1)",
			want:     []string{`href="about:invalid#TemplFailedSanitizationURL"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			require.NoError(t, access.BlockedPage(tt.decision, tt.url).Render(context.Background(), &buf))
			assert.Contains(t, buf.String(), "<!doctype html>")
			for _, s := range tt.want {
				assert.Contains(t, buf.String(), s)
			}
		})
	}
}
