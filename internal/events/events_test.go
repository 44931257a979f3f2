package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	payload, err := encode(HoldingAdded, HoldingEvent{PortfolioID: "p", OwnerID: "o", HoldingID: "h", Ticker: "MSFT", Qty: "10"}, at)
	require.NoError(t, err)

	event, err := decode(map[string]any{"event": string(payload)})
	require.NoError(t, err)
	assert.Equal(t, HoldingAdded, event.Type)
	assert.True(t, at.Equal(event.Timestamp))

	data, ok := event.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "MSFT", data["ticker"])
}

func TestDecodeRejectsForeignMessages(t *testing.T) {
	_, err := decode(map[string]any{"other": "x"})
	assert.Error(t, err)

	_, err = decode(map[string]any{"event": "{not json"})
	assert.Error(t, err)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(context.Background(), PortfolioCreated, nil))
}
