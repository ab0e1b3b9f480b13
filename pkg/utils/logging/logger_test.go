package logging_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/m-mizutani/engram/pkg/utils/logging"
	"github.com/m-mizutani/gt"
)

func TestNewLevels(t *testing.T) {
	testCases := []struct {
		level       string
		expectDebug bool
		expectWarn  bool
	}{
		{"debug", true, true},
		{"info", false, true},
		{"warn", false, true},
		{"error", false, false},
		{"DEBUG", true, true},    // case-insensitive
		{"invalid", false, true}, // falls back to info
	}

	for _, tc := range testCases {
		t.Run(tc.level, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := logging.New(tc.level, buf)
			gt.V(t, logger).NotNil()

			logger.Debug("debug message")
			logger.Warn("warn message")

			output := buf.String()
			if tc.expectDebug {
				gt.S(t, output).Contains("debug message")
			} else {
				gt.S(t, output).NotContains("debug message")
			}
			if tc.expectWarn {
				gt.S(t, output).Contains("warn message")
			} else {
				gt.S(t, output).NotContains("warn message")
			}
		})
	}
}

func TestWithAndFrom(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := logging.New("debug", buf).With("component", "test")

	ctx := logging.With(context.Background(), logger)
	retrieved := logging.From(ctx)
	gt.Equal(t, retrieved, logger)

	retrieved.Info("context message")
	output := buf.String()
	gt.S(t, output).Contains("context message")
	gt.S(t, output).Contains("component")
}

func TestFromWithoutLogger(t *testing.T) {
	gt.V(t, logging.From(context.Background())).NotNil()
}

func TestSetDefault(t *testing.T) {
	original := logging.Default()
	defer logging.SetDefault(original)

	buf := &bytes.Buffer{}
	replacement := logging.New("warn", buf)
	logging.SetDefault(replacement)

	gt.Equal(t, logging.Default(), replacement)

	// From falls back to the replaced default when the context is bare
	retrieved := logging.From(context.Background())
	gt.Equal(t, retrieved, replacement)
	retrieved.Warn("warning from default")
	gt.S(t, buf.String()).Contains("warning from default")
}
