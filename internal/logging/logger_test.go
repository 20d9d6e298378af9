// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	SetLoggerForTest(zerolog.New(&buf).Level(zerolog.InfoLevel))

	Info("page saved", "page", 2, "file", "page_002.png", "dangling")

	out := buf.String()
	assert.Contains(t, out, "page saved")
	assert.Contains(t, out, `"page":2`)
	assert.Contains(t, out, `"file":"page_002.png"`)
	assert.NotContains(t, out, "dangling")
}

func TestSetLogLevel(t *testing.T) {
	var buf bytes.Buffer
	SetLoggerForTest(zerolog.New(&buf).Level(zerolog.WarnLevel))

	Info("hidden")
	assert.Empty(t, buf.String())

	SetLogLevel("debug")
	Debug("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	Init(&buf, "loud", false)

	Debug("debug line")
	Info("info line")
	Warn("warn line", "n", 1)
	Error("error line", "ok", false)

	out := buf.String()
	assert.NotContains(t, out, "debug line")
	assert.Contains(t, out, "info line")
	assert.Contains(t, out, `"n":1`)
	assert.Contains(t, out, `"ok":false`)
}

func TestPrettyOutput(t *testing.T) {
	var buf bytes.Buffer
	Init(&buf, "info", true)

	Info("rendering", "dpi", 200)

	assert.Contains(t, buf.String(), "rendering")
	assert.Contains(t, buf.String(), "dpi=")
	assert.NotContains(t, buf.String(), `{"level"`)
}
