package log_test

import (
	"errors"
	"fmt"
	"io"
	"os"
	"testing"
	"time"

	"github.com/ssgreg/logf"
	"github.com/stretchr/testify/require"

	"github.com/acronis/go-hydra/log"
	"github.com/acronis/go-hydra/log/logtest"
)

func TestMaskingLogger(t *testing.T) {
	recorder := logtest.NewRecorder()
	maskingLog := log.NewMaskingLogger(recorder, log.NewMasker(log.DefaultMasks))

	requireMaskedAndReset := func(wantText string, wantLevel log.Level, wantFields ...log.Field) {
		t.Helper()
		entries := recorder.Entries()
		require.Len(t, entries, 1)
		require.Equal(t, wantText, entries[0].Text)
		require.Equal(t, wantLevel, entries[0].Level)
		require.ElementsMatch(t, wantFields, entries[0].Fields)
		recorder.Reset()
	}

	levelCalls := []struct {
		plain  func(string, ...log.Field)
		format func(string, ...interface{})
		level  log.Level
	}{
		{maskingLog.Debug, maskingLog.Debugf, log.LevelDebug},
		{maskingLog.Info, maskingLog.Infof, log.LevelInfo},
		{maskingLog.Warn, maskingLog.Warnf, log.LevelWarn},
		{maskingLog.Error, maskingLog.Errorf, log.LevelError},
	}
	for _, call := range levelCalls {
		call.plain("client_secret=hunter2", log.String("value", "client_secret=hunter3"),
			log.Error(errors.New("client_secret=hunter4")))
		requireMaskedAndReset("client_secret=***", call.level, log.String("value", "client_secret=***"),
			log.Error(errors.New("client_secret=***")))

		call.format("client_secret=%d", 123456)
		requireMaskedAndReset("client_secret=***", call.level)
	}

	maskingLog.With(log.String("value", "client_secret=hunter3"),
		log.NamedError("error_field", errors.New("client_secret=hunter4"))).Info("client_secret=hunter2")
	requireMaskedAndReset("client_secret=***", log.LevelInfo, log.String("value", "client_secret=***"),
		log.NamedError("error_field", errors.New("client_secret=***")))

	maskingLog.AtLevel(log.LevelInfo, func(l log.LogFunc) {
		l("client_secret=hunter2", log.String("value", "client_secret=hunter2"))
	})
	requireMaskedAndReset("client_secret=***", log.LevelInfo, log.String("value", "client_secret=***"))

	maskingLog.WithLevel(log.LevelInfo).Info("client_secret=hunter2", log.String("value", "client_secret=***"))
	requireMaskedAndReset("client_secret=***", log.LevelInfo, log.String("value", "client_secret=***"))

	// Errors implementing fmt.Formatter are masked through their formatted output too.
	maskingLog.Error("request failed", log.Error(fmtError{errors.New("client_secret=hunter4")}))
	formatted := fmt.Sprintf("%s", recorder.Entries()[0].Fields[0].Any)
	require.Contains(t, formatted, "client_secret=***")
	require.Contains(t, formatted, "password=***")
	recorder.Reset()

	maskingLog.Info("client_secret=hunter2", log.Strings("value", []string{"client_secret=hunter3"}))
	requireMaskedAndReset("client_secret=***", log.LevelInfo, log.Strings("value", []string{"client_secret=***"}))

	maskingLog.Info("client_secret=hunter2", log.Bytes("value", []byte("client_secret=hunter3")))
	requireMaskedAndReset("client_secret=***", log.LevelInfo, logf.ConstBytes("value", []byte("client_secret=***")))
}

type fmtError struct {
	err error
}

func (e fmtError) Error() string {
	return e.err.Error()
}

func (e fmtError) Format(f fmt.State, verb rune) {
	_, _ = io.WriteString(f, e.Error()+" password=123")
}

func BenchmarkMaskingLogger(b *testing.B) {
	const logFile = "output.log"
	fileLogger, closer := log.NewLogger(&log.Config{
		Output: log.OutputFile, Format: log.FormatJSON, Level: log.LevelInfo,
		Error: log.ErrorConfig{VerboseSuffix: "_verbose"}, AddCaller: true,
		File: log.FileOutputConfig{
			Path:     logFile,
			Rotation: log.FileRotationConfig{MaxSize: 2 << 30},
		},
	})
	defer func() {
		closer()
		_ = os.Remove(logFile)
	}()

	benchLoggers := []struct {
		name   string
		logger log.FieldLogger
	}{
		{name: "Logger (file)", logger: fileLogger},
		{name: "MaskingLogger", logger: log.NewMaskingLogger(fileLogger, log.NewMasker(log.DefaultMasks))},
	}
	for _, test := range benchLoggers {
		b.Run(test.name, func(b *testing.B) {
			logger := test.logger.With(
				log.String("logger", "Dispatcher"),
				log.String("build", "1257"),
				log.String("source", "api-hydra"),
			)
			for i := 0; i < b.N; i++ {
				logger.Info("client http request done",
					log.String("method", "GET"),
					log.String("uri", "https://api.intra.42.fr/v2/users/42?access_token=s-ecr-et"),
					log.String("request_id", "03497b44a93143e2c5ff8e0e0e57232a"),
					log.Int("status_code", 200),
					log.DurationIn(1573*time.Millisecond, time.Millisecond),
				)
			}
		})
	}
}
