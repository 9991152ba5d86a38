// Package sl содержит мелкие помощники для структурированного логгера slog.
package sl

import "log/slog"

// Err упаковывает ошибку в slog.Attr с ключом "error", чтобы ошибки
// во всех логах выглядели одинаково:
//
//	log.Error("failed to do something", sl.Err(err))
func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}
