package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTimestamp(t *testing.T) {
	assert.Equal(t, "2025-03-05 10:15:30", NormalizeTimestamp("2025-03-05T10:15:30"))
	assert.Equal(t, "2025-03-05 10:15:30", NormalizeTimestamp("2025-03-05T10:15:30Z"))
	assert.Equal(t, "2025-03-05 10:15:30", NormalizeTimestamp("2025-03-05T10:15:30.123456Z"))
	assert.Equal(t, "2025-03-05", NormalizeTimestamp("2025-03-05"))
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "Terminée", StatusCompleted.Label())
	assert.Equal(t, "En cours", StatusProcessing.Label())
	assert.Equal(t, "Remboursée", StatusRefunded.Label())
	assert.Equal(t, "En attente", StatusOnHold.Label())
	assert.Equal(t, "En attente", StatusPending.Label())
	// unmapped statuses pass through unchanged
	assert.Equal(t, "checkout-draft", OrderStatus("checkout-draft").Label())
}

func TestYearMonth(t *testing.T) {
	ym := YearMonth{Year: 2025, Month: time.March}
	assert.Equal(t, "2025-03", ym.Key())
	assert.Equal(t, YearMonth{Year: 2025, Month: time.April}, ym.Next())
	assert.Equal(t,
		YearMonth{Year: 2026, Month: time.January},
		YearMonth{Year: 2025, Month: time.December}.Next(),
	)
	assert.True(t, ym.Before(YearMonth{Year: 2025, Month: time.April}))
	assert.True(t, ym.Before(YearMonth{Year: 2026, Month: time.January}))
	assert.False(t, ym.Before(ym))
}

func TestYearMonthOf(t *testing.T) {
	ym, ok := YearMonthOf("2025-03-05T10:15:30")
	require.True(t, ok)
	assert.Equal(t, YearMonth{Year: 2025, Month: time.March}, ym)

	_, ok = YearMonthOf("garbage")
	assert.False(t, ok)
	_, ok = YearMonthOf("")
	assert.False(t, ok)
}
