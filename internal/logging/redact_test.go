package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// encodeWithRedaction runs string fields through the redacting encoder's
// rules and collects the values a real encoder would emit.
func encodeWithRedaction(t *testing.T, cfg RedactionConfig, fields ...zap.Field) map[string]any {
	t.Helper()

	enc, err := NewRedactingEncoder(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), cfg)
	require.NoError(t, err)

	mapEnc := zapcore.NewMapObjectEncoder()
	for _, f := range fields {
		if f.Type == zapcore.StringType {
			redactingAddString(enc, mapEnc, f.Key, f.String)
		} else {
			f.AddTo(mapEnc)
		}
	}
	return mapEnc.Fields
}

// redactingAddString mirrors RedactingEncoder.AddString onto a map
// encoder so tests can observe redacted values.
func redactingAddString(e *RedactingEncoder, out zapcore.ObjectEncoder, key, val string) {
	if e.shouldRedactKey(key) {
		out.AddString(key, "[REDACTED]")
		return
	}
	for _, re := range e.redactRegex {
		if re.MatchString(val) {
			out.AddString(key, "[REDACTED:pattern]")
			return
		}
	}
	out.AddString(key, val)
}

func TestRedactingEncoder_FieldNames(t *testing.T) {
	cfg := NewDefaultConfig().Redaction

	fields := encodeWithRedaction(t, cfg,
		zap.String("password", "hunter2"),
		zap.String("API_KEY", "sk-123"),
		zap.String("username", "alice"),
	)

	assert.Equal(t, "[REDACTED]", fields["password"])
	assert.Equal(t, "[REDACTED]", fields["API_KEY"], "key match is case-insensitive")
	assert.Equal(t, "alice", fields["username"])
}

func TestRedactingEncoder_ValuePatterns(t *testing.T) {
	cfg := NewDefaultConfig().Redaction

	fields := encodeWithRedaction(t, cfg,
		zap.String("header", "Bearer eyJhbGciOi"),
		zap.String("note", "plain text"),
	)

	assert.Equal(t, "[REDACTED:pattern]", fields["header"])
	assert.Equal(t, "plain text", fields["note"])
}

func TestRedactingEncoder_Disabled(t *testing.T) {
	cfg := RedactionConfig{Enabled: false}

	fields := encodeWithRedaction(t, cfg,
		zap.String("password", "hunter2"),
	)

	assert.Equal(t, "hunter2", fields["password"])
}

func TestNewRedactingEncoder_InvalidPattern(t *testing.T) {
	_, err := NewRedactingEncoder(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		RedactionConfig{Enabled: true, Patterns: []string{"(unclosed"}},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid redaction pattern")
}

func TestNewRedactingEncoder_PatternTooLong(t *testing.T) {
	long := make([]byte, maxRedactPatternLen+1)
	for i := range long {
		long[i] = 'a'
	}

	_, err := NewRedactingEncoder(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		RedactionConfig{Enabled: true, Patterns: []string{string(long)}},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too long")
}

func TestRedactedString(t *testing.T) {
	field := RedactedString("api_key", "sk-1234567890abcdef")

	assert.Equal(t, zapcore.StringType, field.Type)
	assert.Equal(t, "[REDACTED:19]", field.String)
}

func TestRedactingEncoder_Clone(t *testing.T) {
	enc, err := NewRedactingEncoder(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		NewDefaultConfig().Redaction,
	)
	require.NoError(t, err)

	clone, ok := enc.Clone().(*RedactingEncoder)
	require.True(t, ok)
	assert.True(t, clone.shouldRedactKey("password"))
}
