package logger

import (
	"fmt"
	"log/slog"
)

// Error records err under "error". A nil error yields an empty Attr,
// which slog drops.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Component names the service emitting the record.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// AgencyID records the tenant the record belongs to.
func AgencyID(id any) slog.Attr {
	return idAttr("agency_id", id)
}

// UserID records the caller.
func UserID(id any) slog.Attr {
	return idAttr("user_id", id)
}

// PlanID records a subscription plan reference.
func PlanID(id any) slog.Attr {
	return idAttr("plan_id", id)
}

// EventID records the processor event id.
func EventID(id string) slog.Attr {
	return slog.String("event_id", id)
}

// EventType records the processor event type.
func EventType(eventType string) slog.Attr {
	return slog.String("event_type", eventType)
}

// Status records a subscription status.
func Status(s any) slog.Attr {
	return slog.String("status", fmt.Sprint(s))
}

// Reason records why an operation was skipped.
func Reason(r string) slog.Attr {
	return slog.String("reason", r)
}

// Step records a provisioning step name.
func Step(name string) slog.Attr {
	return slog.String("step", name)
}

func idAttr(key string, id any) slog.Attr {
	switch v := id.(type) {
	case nil:
		return slog.Attr{}
	case fmt.Stringer:
		return slog.String(key, v.String())
	case string:
		if v == "" {
			return slog.Attr{}
		}
		return slog.String(key, v)
	default:
		return slog.Any(key, v)
	}
}
