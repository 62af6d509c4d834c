package cache_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/srgjo27/ticket_marketplace/internal/adapter/cache"
	"github.com/srgjo27/ticket_marketplace/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvent() *domain.Event {
	eventID := uuid.New()
	return &domain.Event{
		ID:     eventID,
		Title:  "Open Air",
		Status: domain.EventPublished,
		TicketTypes: []domain.TicketType{{
			ID:                uuid.New(),
			EventID:           eventID,
			Name:              "Early Bird",
			UnitPrice:         decimal.RequireFromString("19.99"),
			Currency:          "EUR",
			TotalQuantity:     100,
			AvailableQuantity: 42,
		}},
	}
}

func TestGetEvent_Hit(t *testing.T) {
	client, mockRedis := redismock.NewClientMock()
	c := cache.NewRedisAvailabilityCache(client, time.Minute)
	event := sampleEvent()

	data, err := json.Marshal(event)
	require.NoError(t, err)
	mockRedis.ExpectGet("event:" + event.ID.String()).SetVal(string(data))

	got, err := c.GetEvent(context.Background(), event.ID)

	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.TicketTypes, 1)
	assert.Equal(t, 42, got.TicketTypes[0].AvailableQuantity)
	assert.True(t, event.TicketTypes[0].UnitPrice.Equal(got.TicketTypes[0].UnitPrice))

	if err := mockRedis.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestGetEvent_MissAndCorruptAreNil(t *testing.T) {
	client, mockRedis := redismock.NewClientMock()
	c := cache.NewRedisAvailabilityCache(client, time.Minute)
	eventID := uuid.New()

	mockRedis.ExpectGet("event:" + eventID.String()).RedisNil()
	mockRedis.ExpectGet("event:" + eventID.String()).SetVal("{not json")

	got, err := c.GetEvent(context.Background(), eventID)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = c.GetEvent(context.Background(), eventID)
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.NoError(t, mockRedis.ExpectationsWereMet())
}

func TestGetEvent_Error(t *testing.T) {
	client, mockRedis := redismock.NewClientMock()
	c := cache.NewRedisAvailabilityCache(client, time.Minute)
	eventID := uuid.New()

	mockRedis.ExpectGet("event:" + eventID.String()).SetErr(errors.New("connection reset"))

	_, err := c.GetEvent(context.Background(), eventID)

	assert.ErrorContains(t, err, "connection reset")
}

func TestSetEventAndInvalidate(t *testing.T) {
	client, mockRedis := redismock.NewClientMock()
	c := cache.NewRedisAvailabilityCache(client, 15*time.Second)
	event := sampleEvent()

	data, err := json.Marshal(event)
	require.NoError(t, err)

	mockRedis.ExpectSet("event:"+event.ID.String(), data, 15*time.Second).SetVal("OK")
	mockRedis.ExpectDel("event:" + event.ID.String()).SetVal(1)

	require.NoError(t, c.SetEvent(context.Background(), event))
	require.NoError(t, c.Invalidate(context.Background(), event.ID))

	assert.NoError(t, mockRedis.ExpectationsWereMet())
}
