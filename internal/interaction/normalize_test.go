package interaction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(role, content string, age time.Duration) Interaction {
	return Interaction{
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().Add(-age),
	}
}

func TestNormalizeEmpty(t *testing.T) {
	assert.Empty(t, Normalize(nil))
	assert.Empty(t, Normalize([]Interaction{}))
}

func TestNormalizeReversesToChronological(t *testing.T) {
	// Storage order is newest first.
	recent := []Interaction{
		rec(RoleAgent, "reply two", time.Minute),
		rec(RoleUser, "question two", 2*time.Minute),
		rec(RoleAgent, "reply one", 3*time.Minute),
		rec(RoleUser, "question one", 4*time.Minute),
	}

	turns := Normalize(recent)
	require.Len(t, turns, 4)
	assert.Equal(t, "user", turns[0].Role)
	assert.Equal(t, "question one", turns[0].Content)
	assert.Equal(t, "model", turns[3].Role)
	assert.Equal(t, "reply two", turns[3].Content)
}

func TestNormalizeMergesConsecutiveSameRole(t *testing.T) {
	recent := []Interaction{
		rec(RoleUser, "and one more thing", time.Minute),
		rec(RoleUser, "second message", 2*time.Minute),
		rec(RoleAgent, "hello", 3*time.Minute),
		rec(RoleUser, "first message", 4*time.Minute),
	}

	turns := Normalize(recent)
	require.Len(t, turns, 3)
	assert.Equal(t, "user", turns[0].Role)
	assert.Equal(t, "model", turns[1].Role)
	assert.Equal(t, "user", turns[2].Role)
	assert.Equal(t, "second message\n\nand one more thing", turns[2].Content)
}

func TestNormalizeNeverEmitsAdjacentSameRole(t *testing.T) {
	cases := [][]Interaction{
		{rec(RoleUser, "a", 1), rec(RoleUser, "b", 2), rec(RoleUser, "c", 3)},
		{rec(RoleAgent, "a", 1), rec(RoleAgent, "b", 2)},
		{
			rec(RoleUser, "f", 1), rec(RoleAgent, "e", 2), rec(RoleAgent, "d", 3),
			rec(RoleUser, "c", 4), rec(RoleUser, "b", 5), rec(RoleAgent, "a", 6),
		},
	}

	for _, recent := range cases {
		turns := Normalize(recent)
		for i := 1; i < len(turns); i++ {
			assert.NotEqual(t, turns[i-1].Role, turns[i].Role,
				"adjacent turns %d and %d share role %q", i-1, i, turns[i].Role)
		}
	}
}

func TestNormalizeSkipsBlankContent(t *testing.T) {
	recent := []Interaction{
		rec(RoleAgent, "reply", time.Minute),
		rec(RoleUser, "   ", 2*time.Minute),
		rec(RoleUser, "hello", 3*time.Minute),
	}

	turns := Normalize(recent)
	require.Len(t, turns, 2)
	assert.Equal(t, "hello", turns[0].Content)
}

func TestNormalizeEndsWithLatestTurn(t *testing.T) {
	recent := []Interaction{
		rec(RoleUser, "latest", time.Minute),
		rec(RoleAgent, "older", 2*time.Minute),
	}

	turns := Normalize(recent)
	require.NotEmpty(t, turns)
	assert.Equal(t, "latest", turns[len(turns)-1].Content)
}
