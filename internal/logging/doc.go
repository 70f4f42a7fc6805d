// Package logging builds the process logger: zap with JSON or console
// encoding, optional OpenTelemetry log export through the otelzap bridge,
// field and pattern based redaction at the encoder, and level-aware
// sampling that never drops errors.
//
// The rest of the codebase takes a plain *zap.Logger. This package only
// owns construction and the context correlation helpers.
//
// Create the logger from config:
//
//	cfg := logging.NewDefaultConfig()
//	logger, err := logging.New(cfg, telemetry.LoggerProvider())
//	if err != nil {
//	    return err
//	}
//	defer logging.Sync(logger)
//
// Correlation fields ride on the context:
//
//	ctx = logging.WithSessionID(ctx, sessionID)
//	logger.Info("answer processed", logging.ContextFields(ctx)...)
//
// Output:
//
//	{
//	  "ts": "2026-08-25T10:15:30Z",
//	  "level": "info",
//	  "msg": "answer processed",
//	  "service": "interviewd",
//	  "trace_id": "abc123",
//	  "session.id": "7c9e6679-7425-40de-944b-e07fc1f90ae7"
//	}
//
// Redaction runs at the encoder, so a credential logged by field name
// (api_key, authorization) or matching a token pattern never reaches an
// output. Use RedactedString when logging a value that is sensitive by
// construction.
package logging
