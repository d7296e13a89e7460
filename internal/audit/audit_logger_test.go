package audit

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_LogTransition(t *testing.T) {
	buf := &bytes.Buffer{}
	a := NewLogger(zerolog.New(buf))

	a.LogTransition(Event{
		EventType: EventEscrowReleased,
		EscrowID:  "esc-1",
		UserID:    "tenant-1",
		Amount:    decimal.NewFromInt(500000),
		Status:    "completed",
		Details:   map[string]string{"landlord_id": "landlord-1"},
	})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "AUDIT", line["message"])
	assert.Equal(t, "audit", line["component"])
	assert.Equal(t, EventEscrowReleased, line["event_type"])
	assert.Equal(t, "esc-1", line["escrow_id"])
	assert.Equal(t, "500000", line["amount"])
	assert.Equal(t, "landlord-1", line["landlord_id"])
	assert.NotContains(t, line, "transaction_id")
}

func TestLogger_LogError(t *testing.T) {
	buf := &bytes.Buffer{}
	a := NewLogger(zerolog.New(buf))

	a.LogError("release", "esc-1", errors.New("connection reset"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "FAILED", line["status"])
	assert.Equal(t, "connection reset", line["error"])
}

func TestTrail_FlushWritesHeldEvents(t *testing.T) {
	buf := &bytes.Buffer{}
	trail := NewLogger(zerolog.New(buf)).NewTrail()

	trail.LogTransition(Event{EventType: EventLedgerCompleted, TransactionID: "tx-1", Status: "completed"})
	trail.LogTransition(Event{EventType: EventBalanceCredited, UserID: "user-1", Status: "credited"})
	assert.Zero(t, buf.Len())

	trail.Flush()

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	var first map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &first))
	assert.Equal(t, EventLedgerCompleted, first["event_type"])

	trail.Flush()
	assert.Len(t, bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")), 2)
}
