package prompt

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/apperr"
)

func TestReplaceAndReset(t *testing.T) {
	s := NewStore("default prompt")
	cur := s.Current()
	assert.Equal(t, "default prompt", cur.Text)
	assert.True(t, cur.IsDefault)
	assert.EqualValues(t, 1, cur.Version)

	next, err := s.Replace("  nuevo prompt  ")
	require.NoError(t, err)
	assert.Equal(t, "nuevo prompt", next.Text)
	assert.False(t, next.IsDefault)
	assert.EqualValues(t, 2, next.Version)
	assert.Equal(t, next, s.Current())

	reset := s.Reset()
	assert.Equal(t, "default prompt", reset.Text)
	assert.True(t, reset.IsDefault)
	assert.EqualValues(t, 3, reset.Version)
}

func TestEmptyPromptRejected(t *testing.T) {
	s := NewStore("d")
	_, err := s.Replace("   ")
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	_, err = s.CompareAndSwap(1, "")
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	assert.EqualValues(t, 1, s.Current().Version)
}

func TestCompareAndSwapRejectsStaleVersion(t *testing.T) {
	s := NewStore("d")
	got, err := s.CompareAndSwap(1, "a")
	require.NoError(t, err)
	assert.EqualValues(t, 2, got.Version)

	cur, err := s.CompareAndSwap(1, "b")
	assert.True(t, errors.Is(err, apperr.ErrConflict))
	assert.Equal(t, "a", cur.Text)
	assert.Equal(t, "a", s.Current().Text)
}

func TestConcurrentReplaceVersionsStrictlyIncrease(t *testing.T) {
	s := NewStore("d")
	const n = 50

	var wg sync.WaitGroup
	versions := make(chan uint64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in, err := s.Replace(fmt.Sprintf("prompt %d", i))
			if assert.NoError(t, err) {
				versions <- in.Version
			}
		}(i)
	}
	wg.Wait()
	close(versions)

	seen := map[uint64]bool{}
	for v := range versions {
		assert.False(t, seen[v], "version %d issued twice", v)
		seen[v] = true
	}
	assert.EqualValues(t, n+1, s.Current().Version)
}
