/*
Copyright 2026 The Vitess Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package log

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLoggerCapturesStructuredRecords(t *testing.T) {
	var buf bytes.Buffer
	restore := SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer restore()

	WarnS("prepare failed", "error", "syntax error")
	DebugS("preparing", "query", "select 1")

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, `msg="prepare failed"`)
	assert.Contains(t, out, `error="syntax error"`)
	assert.Contains(t, out, "level=DEBUG")
	assert.True(t, Enabled(slog.LevelDebug))
}

func TestSetLoggerNil(t *testing.T) {
	restore := SetLogger(nil)
	restore()
	assert.False(t, structuredLoggingEnabled.Load())
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: " INFO ", want: slog.LevelInfo},
		{in: "warn", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "trace", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := slogLevel(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSlogHandler(t *testing.T) {
	var buf bytes.Buffer
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	for _, format := range []string{"json", "logfmt", "tint"} {
		h, err := slogHandler(&buf, format, opts)
		require.NoError(t, err, format)
		require.NotNil(t, h, format)
	}
	_, err := slogHandler(&buf, "xml", opts)
	require.ErrorContains(t, err, "invalid log-fmt")
}

func TestInitWithoutFormatFlagKeepsGlog(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(nil))
	require.NoError(t, Init(fs))
	assert.False(t, structuredLoggingEnabled.Load())

	require.NoError(t, Init(nil))
}

func TestLogRotateMaxSize(t *testing.T) {
	v := &logRotateMaxSize{}
	require.NoError(t, v.Set("1024"))
	assert.Equal(t, "1024", v.String())
	assert.Equal(t, "uint64", v.Type())
	require.Error(t, v.Set("lots"))
}
