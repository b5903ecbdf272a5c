package events

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_EmitDispatchesToSubscribers(t *testing.T) {
	m := NewManager(zerolog.Nop())

	var got []string
	m.Subscribe(PortfolioIngested, func(ctx context.Context, e Event) {
		data := e.Data.(*PortfolioIngestedData)
		got = append(got, "first:"+data.CustomerCode)
	})
	m.Subscribe(PortfolioIngested, func(ctx context.Context, e Event) {
		got = append(got, "second:"+e.Module)
	})
	m.Subscribe(IngestionFailed, func(ctx context.Context, e Event) {
		t.Fatal("handler for another event type must not run")
	})

	m.Emit(context.Background(), "ingestion", &PortfolioIngestedData{CustomerCode: "CUST001"})

	assert.Equal(t, []string{"first:CUST001", "second:ingestion"}, got)
}

func TestManager_PanickingHandlerDoesNotStopOthers(t *testing.T) {
	m := NewManager(zerolog.Nop())

	called := false
	m.Subscribe(UploadArchived, func(ctx context.Context, e Event) { panic("boom") })
	m.Subscribe(UploadArchived, func(ctx context.Context, e Event) { called = true })

	assert.NotPanics(t, func() {
		m.Emit(context.Background(), "archive", &UploadArchivedData{Key: "k"})
	})
	assert.True(t, called)
}

func TestManager_LogsEventWithoutContent(t *testing.T) {
	var buf bytes.Buffer
	m := NewManager(zerolog.New(&buf))

	m.Emit(context.Background(), "ingestion", &PortfolioIngestedData{
		CustomerCode: "CUST001",
		Content:      []byte("secret,file,content"),
	})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "PORTFOLIO_INGESTED", entry["event_type"])
	assert.NotContains(t, buf.String(), "secret,file,content")
}
