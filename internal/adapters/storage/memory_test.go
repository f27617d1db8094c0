package storage_test

import (
	"testing"
	"time"

	"github.com/alejandrodnm/whalewatch/internal/adapters/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestMemoryStore_RecordAlertIdempotent(t *testing.T) {
	s := storage.NewMemoryStore()
	assert.False(t, s.HasAlerted("t1"))

	require.NoError(t, s.RecordAlert("t1", t0))
	require.NoError(t, s.RecordAlert("t1", t0.Add(time.Hour)))

	assert.True(t, s.HasAlerted("t1"))
	alerted, _ := s.Len()
	assert.Equal(t, 1, alerted)
}

func TestMemoryStore_Cooldown(t *testing.T) {
	s := storage.NewMemoryStore()
	key := "single|m1|YES|0xabc"

	assert.False(t, s.IsCoolingDown(key, t0, time.Hour), "sin registro no hay cooldown")

	require.NoError(t, s.RecordCooldown(key, t0))
	assert.True(t, s.IsCoolingDown(key, t0.Add(59*time.Minute), time.Hour))
	assert.False(t, s.IsCoolingDown(key, t0.Add(time.Hour), time.Hour), "exactamente minInterval ya no enfría")
	assert.False(t, s.IsCoolingDown(key, t0.Add(time.Minute), 0), "minInterval 0 desactiva")
	assert.False(t, s.IsCoolingDown(key, t0.Add(time.Minute), -time.Minute))
}

func TestMemoryStore_CooldownNeverMovesBackwards(t *testing.T) {
	s := storage.NewMemoryStore()
	key := "cluster|m1|NO"

	require.NoError(t, s.RecordCooldown(key, t0))
	require.NoError(t, s.RecordCooldown(key, t0.Add(-30*time.Minute)))

	// Si el timestamp viejo hubiera pisado al nuevo, a t0+45m ya no enfriaría.
	assert.True(t, s.IsCoolingDown(key, t0.Add(45*time.Minute), time.Hour))
}
