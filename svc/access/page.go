package access

import (
	"fmt"

	"github.com/a-h/templ"
)

// BlockedPage is the full-page interstitial shown to browsers whose access
// is blocked. billingURL is where the user can pick a plan.
func BlockedPage(d Decision, billingURL string) templ.Component {
	title, body := "Subscription inactive", "Your agency subscription is not active. Choose a plan to keep working."
	switch {
	case d.Reason == ReasonNoAgency:
		title, body = "No agency yet", "Your account is not linked to an agency. Start a trial or ask your administrator for an invitation."
	case d.Status != "":
		body = fmt.Sprintf("Your agency subscription is %s. Update your billing details to keep working.", d.Status)
	}
	return blockedPage(title, body, string(d.Reason), templ.URL(billingURL))
}
