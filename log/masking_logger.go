package log

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"unsafe"

	"github.com/ssgreg/logf"
)

// StringMasker replaces secret fragments of a string with a placeholder.
type StringMasker interface {
	Mask(s string) string
}

// MaskingLogger wraps a FieldLogger and runs every message and field value
// through a StringMasker before it reaches the output. It keeps secrets out of
// logs when HTTP exchanges are dumped in debug mode, or when a secret travels
// in a URL (like &api_key=<secret>) and a connectivity error would echo it.
type MaskingLogger struct {
	log    FieldLogger
	masker StringMasker
}

func NewMaskingLogger(l FieldLogger, r StringMasker) FieldLogger {
	return MaskingLogger{l, r}
}

// With returns a new logger with the given additional fields.
func (l MaskingLogger) With(fs ...Field) FieldLogger {
	return MaskingLogger{l.log.With(l.maskFields(fs)...), l.masker}
}

// Debug logs a message at "debug" level with secrets masked.
func (l MaskingLogger) Debug(text string, fs ...Field) {
	l.log.Debug(l.masker.Mask(text), l.maskFields(fs)...)
}

// Info logs a message at "info" level with secrets masked.
func (l MaskingLogger) Info(text string, fs ...Field) {
	l.log.Info(l.masker.Mask(text), l.maskFields(fs)...)
}

// Warn logs a message at "warn" level with secrets masked.
func (l MaskingLogger) Warn(text string, fs ...Field) {
	l.log.Warn(l.masker.Mask(text), l.maskFields(fs)...)
}

// Error logs a message at "error" level with secrets masked.
func (l MaskingLogger) Error(text string, fs ...Field) {
	l.log.Error(l.masker.Mask(text), l.maskFields(fs)...)
}

// Debugf logs a formatted message at "debug" level with secrets masked.
func (l MaskingLogger) Debugf(format string, args ...interface{}) {
	l.Debug(fmt.Sprintf(format, args...))
}

// Infof logs a formatted message at "info" level with secrets masked.
func (l MaskingLogger) Infof(format string, args ...interface{}) {
	l.Info(fmt.Sprintf(format, args...))
}

// Warnf logs a formatted message at "warn" level with secrets masked.
func (l MaskingLogger) Warnf(format string, args ...interface{}) {
	l.Warn(fmt.Sprintf(format, args...))
}

// Errorf logs a formatted message at "error" level with secrets masked.
func (l MaskingLogger) Errorf(format string, args ...interface{}) {
	l.Error(fmt.Sprintf(format, args...))
}

// AtLevel calls the given fn if logging a message at the specified level
// is enabled, passing a LogFunc with the bound level.
func (l MaskingLogger) AtLevel(level Level, fn func(logFunc LogFunc)) {
	l.log.AtLevel(level, func(logFunc LogFunc) {
		fn(func(msg string, fs ...Field) {
			logFunc(l.masker.Mask(msg), l.maskFields(fs)...)
		})
	})
}

// WithLevel returns a new logger with additional level check.
// All log messages below ("debug" is a minimal level, "error" - maximal)
// the given AND previously set level will be ignored (i.e. it makes sense to only increase level).
func (l MaskingLogger) WithLevel(level Level) FieldLogger {
	return MaskingLogger{l.log.WithLevel(level), l.masker}
}

var stringSliceType = reflect.TypeOf([]string{})

// maskFields returns fields with masked values. The input slice is shared with
// the caller, so it is copied lazily on the first value that actually changes.
// nolint: gocyclo
func (l MaskingLogger) maskFields(fields []Field) []Field {
	out := fields
	copied := false
	replace := func(i int, f Field) {
		if !copied {
			out = make([]Field, len(fields))
			copy(out, fields)
			copied = true
		}
		out[i] = f
	}

	for i := range fields {
		field := fields[i] // local copy, field.Bytes is accessed via unsafe.Pointer below
		switch field.Type {
		case logf.FieldTypeBytesToString:
			s := *(*string)(unsafe.Pointer(&field.Bytes)) // nolint: gosec
			if masked := l.masker.Mask(s); masked != s {
				replace(i, String(field.Key, masked))
			}

		case logf.FieldTypeError:
			if field.Any == nil {
				break
			}
			err := field.Any.(error)
			s := err.Error()
			if masked := l.masker.Mask(s); masked != s {
				replace(i, NamedError(field.Key, newMaskedError(err, l.masker, masked)))
			}

		case logf.FieldTypeBytes, logf.FieldTypeRawBytes:
			if field.Bytes == nil {
				break
			}
			s := string(field.Bytes)
			if masked := l.masker.Mask(s); masked != s {
				replace(i, logf.ConstBytes(field.Key, []byte(masked)))
			}

		case logf.FieldTypeArray:
			if field.Any == nil {
				break
			}
			value := reflect.ValueOf(field.Any)
			if !value.CanConvert(stringSliceType) {
				break
			}
			ss := value.Convert(stringSliceType).Interface().([]string)
			masked := make([]string, len(ss))
			var changed bool
			for j, s := range ss {
				masked[j] = l.masker.Mask(s)
				if masked[j] != s {
					changed = true
				}
			}
			if changed {
				replace(i, Strings(field.Key, masked))
			}

		case logf.FieldTypeAny:
			// NOTE: Not masked
		}
	}

	return out
}

func newMaskedError(err error, r StringMasker, masked string) error {
	if _, ok := err.(fmt.Formatter); ok {
		return maskedError{
			s:        masked,
			verboseS: r.Mask(fmt.Sprintf("%+v", err)),
		}
	}
	return errors.New(masked)
}

// maskedError is needed to support logf "error_verbose" field.
type maskedError struct {
	s        string
	verboseS string
}

func (e maskedError) Error() string {
	return e.s
}

func (e maskedError) Format(f fmt.State, verb rune) {
	_, _ = io.WriteString(f, e.verboseS)
}
