package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	m, err := Parse("2024-03")
	assert.NoError(t, err)
	assert.Equal(t, "2024-03", m.String())

	for _, bad := range []string{"", "2024", "2024-3", "2024-13", "24-03", "2024-03-01", "march"} {
		_, err := Parse(bad)
		assert.ErrorIs(t, err, ErrInvalidMonth, "input %q", bad)
	}
}

func TestPrevNext(t *testing.T) {
	m, _ := Parse("2024-01")
	assert.Equal(t, "2023-12", m.Prev().String())
	assert.Equal(t, "2024-02", m.Next().String())
}

func TestBounds(t *testing.T) {
	m, _ := Parse("2024-02")
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), m.Start())
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), m.End())
	assert.True(t, m.Contains(time.Date(2024, 2, 29, 23, 0, 0, 0, time.UTC)))
	assert.False(t, m.Contains(m.End()))
}

func TestScan(t *testing.T) {
	var m Month
	assert.NoError(t, m.Scan("2024-07"))
	assert.Equal(t, "2024-07", m.String())

	assert.NoError(t, m.Scan([]byte("2024-08")))
	assert.Equal(t, "2024-08", m.String())

	assert.Error(t, m.Scan("bogus"))
}

func TestOrdering(t *testing.T) {
	a, _ := Parse("2023-12")
	b, _ := Parse("2024-01")
	assert.True(t, a.Before(b))
	assert.False(t, b.Before(a))
	// lexical order of the token matches chronological order
	assert.True(t, a.String() < b.String())
}
