package errors

import (
	"fmt"
	"log/slog"
	"strings"
)

// FormatForCLI renders an error for terminal display.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	ke, ok := err.(*Error)
	if !ok {
		ke = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Error: %s\n", ke.Message))
	if ke.Retryable {
		sb.WriteString("  Hint: this is likely transient, try again\n")
	}
	sb.WriteString(fmt.Sprintf("  Code: %s\n", ke.Code))
	return sb.String()
}

// LogAttrs returns slog attributes describing an error, for structured
// logging at call sites.
func LogAttrs(err error) []slog.Attr {
	if err == nil {
		return nil
	}

	ke, ok := err.(*Error)
	if !ok {
		return []slog.Attr{slog.String("error", err.Error())}
	}

	attrs := []slog.Attr{
		slog.String("error_code", ke.Code),
		slog.String("message", ke.Message),
		slog.String("category", string(ke.Category)),
		slog.String("severity", string(ke.Severity)),
		slog.Bool("retryable", ke.Retryable),
	}
	if ke.Cause != nil {
		attrs = append(attrs, slog.String("cause", ke.Cause.Error()))
	}
	for k, v := range ke.Details {
		attrs = append(attrs, slog.String("detail_"+k, v))
	}
	return attrs
}
