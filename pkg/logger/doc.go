// Package logger provides a context-aware wrapper around Go's slog package
// adding functional options for configuration, helper attribute constructors,
// and transparent injection of values stored in context.Context.
//
// The factory New creates a *slog.Logger configured by Option functions:
// output format (text or json), minimum level, default attributes applied to
// every record, and ContextExtractor callbacks that inject attributes pulled
// from a context value every time Handle is invoked.
//
// # Architecture
//
// New picks the concrete slog.Handler (slog.NewTextHandler or
// slog.NewJSONHandler) based on the configured Format, then wraps it with
// LogHandlerDecorator, which runs any registered ContextExtractor callbacks
// before delegating to the underlying handler.
//
// Helper constructors in attr.go (NotificationID, RecipientID, Channel,
// Provider, Attempt, Error, ...) keep attribute naming consistent across the
// delivery pipeline.
//
// # Usage
//
//	import "github.com/seyniprops/backoffice/pkg/logger"
//
//	log := logger.New(
//	    logger.WithProduction("notifier"),
//	    logger.WithAttr(logger.Component("dispatch")),
//	)
//	logger.SetAsDefault(log)
//
//	log.InfoContext(ctx, "notification sent",
//	    logger.NotificationID(id),
//	    logger.Channel("sms"),
//	)
//
// # Error Handling
//
// Error and Errors produce attributes only when the supplied error value is
// non-nil, allowing calls like:
//
//	log.Info("operation finished", logger.Error(err))
//
// without an additional nil check.
package logger
