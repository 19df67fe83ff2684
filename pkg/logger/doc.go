// Package logger builds *slog.Logger instances for the billing services.
//
// New wraps a JSON or text handler with a decorator that pulls request scoped
// values (request id, caller, agency, environment) out of the context on every
// record. Attribute helpers in attr.go keep key names consistent between the
// webhook processor, checkout builder and trial provisioning logs.
//
//	log := logger.New(
//		logger.WithEnvironment(environment.Production, "agencyhub"),
//		logger.WithContextExtractors(requestid.LoggerExtractor()),
//	)
//	log.InfoContext(ctx, "checkout created", logger.AgencyID(id))
package logger
