package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
	"go.viam.com/test"
)

func newBufferLogger(name string, level Level) (*impl, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return &impl{name, NewAtomicLevelAt(level), true, []Appender{NewWriterAppender(buf)}}, buf
}

// splitLogLine splits a console line into its tab separated parts after checking the line ends in
// a newline.
func splitLogLine(t *testing.T, buf *bytes.Buffer) []string {
	t.Helper()
	line, err := buf.ReadString('\n')
	test.That(t, err, test.ShouldBeNil)
	return strings.Split(strings.TrimSuffix(line, "\n"), "\t")
}

func TestConsoleOutputFormat(t *testing.T) {
	logger, buf := newBufferLogger("fusion", DEBUG)

	logger.Info("fusion started")
	parts := splitLogLine(t, buf)
	test.That(t, parts, test.ShouldHaveLength, 5)
	test.That(t, len(parts[0]), test.ShouldEqual, len("2023-10-30T09:12:09.459Z"))
	test.That(t, parts[1], test.ShouldEqual, "INFO")
	test.That(t, parts[2], test.ShouldEqual, "fusion")
	test.That(t, parts[3], test.ShouldStartWith, "logging/impl_test.go:")
	test.That(t, parts[4], test.ShouldEqual, "fusion started")

	logger.Warnf("dropped %d frames", 3)
	parts = splitLogLine(t, buf)
	test.That(t, parts[1], test.ShouldEqual, "WARN")
	test.That(t, parts[4], test.ShouldEqual, "dropped 3 frames")

	logger.Debugw("keyframe admitted", "yaw_deg", 12.5, "index", 4)
	parts = splitLogLine(t, buf)
	test.That(t, parts, test.ShouldHaveLength, 6)
	fields := map[string]any{}
	test.That(t, json.Unmarshal([]byte(parts[5]), &fields), test.ShouldBeNil)
	test.That(t, fields, test.ShouldResemble, map[string]any{"yaw_deg": 12.5, "index": 4.0})

	logger.Errorw("unpaired", "key")
	parts = splitLogLine(t, buf)
	test.That(t, parts[5], test.ShouldContainSubstring, "unpaired log key")
}

func TestLevelFiltering(t *testing.T) {
	logger, buf := newBufferLogger("", WARN)

	logger.Debug("hidden")
	logger.Info("hidden")
	test.That(t, buf.Len(), test.ShouldEqual, 0)

	logger.Error("shown")
	parts := splitLogLine(t, buf)
	// No logger name column when the name is empty.
	test.That(t, parts, test.ShouldHaveLength, 4)
	test.That(t, parts[3], test.ShouldEqual, "shown")

	logger.SetLevel(DEBUG)
	test.That(t, logger.GetLevel(), test.ShouldEqual, DEBUG)
	logger.Debug("now shown")
	parts = splitLogLine(t, buf)
	test.That(t, parts[1], test.ShouldEqual, "DEBUG")
}

func TestGlobalDebugOverridesLevel(t *testing.T) {
	logger, buf := newBufferLogger("", INFO)

	logger.Debugf("quiet %d", 1)
	test.That(t, buf.Len(), test.ShouldEqual, 0)

	GlobalLogLevel.SetLevel(zapcore.DebugLevel)
	defer GlobalLogLevel.SetLevel(zapcore.InfoLevel)
	logger.Debugw("loud", "k", "v")
	parts := splitLogLine(t, buf)
	test.That(t, parts[1], test.ShouldEqual, "DEBUG")
	test.That(t, parts[4], test.ShouldEqual, "loud")
}

func TestSublogger(t *testing.T) {
	logger, buf := newBufferLogger("scan", INFO)
	sub := logger.Sublogger("runner")

	sub.Info("hello")
	parts := splitLogLine(t, buf)
	test.That(t, parts[2], test.ShouldEqual, "scan.runner")

	// Levels are copied, not shared.
	sub.SetLevel(ERROR)
	test.That(t, logger.GetLevel(), test.ShouldEqual, INFO)
}

func TestObservedTestLogger(t *testing.T) {
	logger, observed := NewObservedTestLogger(t)
	logger.Infow("fused", "points", 10)

	entries := observed.FilterMessage("fused").All()
	test.That(t, entries, test.ShouldHaveLength, 1)
	test.That(t, entries[0].ContextMap()["points"], test.ShouldEqual, int64(10))
	test.That(t, logger.Sync(), test.ShouldBeNil)
}

func TestLevelFromString(t *testing.T) {
	for _, tc := range []struct {
		in       string
		expected Level
	}{
		{"debug", DEBUG},
		{"INFO", INFO},
		{"Warning", WARN},
		{"error", ERROR},
	} {
		level, err := LevelFromString(tc.in)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, level, test.ShouldEqual, tc.expected)
	}

	_, err := LevelFromString("verbose")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "verbose")
}
