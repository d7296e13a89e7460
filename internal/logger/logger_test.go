package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	log := New(false)
	assert.NotEqual(t, zerolog.Disabled, log.GetLevel())
}

func TestNewWithWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	log.Info().Str("escrow_id", "esc-1").Msg("escrow released")

	assert.Contains(t, buf.String(), "escrow released")
	assert.Contains(t, buf.String(), `"escrow_id":"esc-1"`)
}

func TestFromContext(t *testing.T) {
	t.Run("attached logger", func(t *testing.T) {
		buf := &bytes.Buffer{}
		ctx := WithContext(context.Background(), NewWithWriter(buf))

		FromContext(ctx, zerolog.Nop()).Info().Msg("hello")
		assert.NotZero(t, buf.Len())
	})

	t.Run("fallback", func(t *testing.T) {
		buf := &bytes.Buffer{}
		FromContext(context.Background(), NewWithWriter(buf)).Info().Msg("fallback")
		assert.Contains(t, buf.String(), "fallback")
	})
}
