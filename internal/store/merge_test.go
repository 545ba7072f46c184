package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeepMerge(t *testing.T) {
	dst := map[string]any{
		"expertiseLevel": "beginner",
		"progression": map[string]any{
			"coveredSubtopics": []any{"a"},
			"progressionStage": 1,
		},
		"nextSteps": map[string]any{"strugglingAreas": []any{"x", "y"}},
	}
	patch := map[string]any{
		"expertiseLevel": "apprentice",
		"progression": map[string]any{
			"coveredSubtopics": []any{"a", "b"},
			"lastSubtopic":     "b",
		},
		"nextSteps":  map[string]any{"strugglingAreas": []any{}},
		"ignored":    nil,
		"freshGroup": map[string]any{"k": 1},
	}

	got := DeepMerge(dst, patch)

	assert.Equal(t, "apprentice", got["expertiseLevel"])
	prog := got["progression"].(map[string]any)
	assert.Equal(t, []any{"a", "b"}, prog["coveredSubtopics"])
	assert.Equal(t, 1, prog["progressionStage"])
	assert.Equal(t, "b", prog["lastSubtopic"])
	assert.Equal(t, []any{}, got["nextSteps"].(map[string]any)["strugglingAreas"])
	assert.NotContains(t, got, "ignored")
	assert.Equal(t, map[string]any{"k": 1}, got["freshGroup"])

	// dst is untouched.
	assert.Equal(t, "beginner", dst["expertiseLevel"])
	assert.NotContains(t, dst["progression"], "lastSubtopic")
}

func TestKeyValidate(t *testing.T) {
	assert.NoError(t, testKey.Validate())
	assert.ErrorIs(t, Key{UserID: " ", SubjectID: "s", TopicID: "t"}.Validate(), ErrInvalidKey)
	assert.ErrorIs(t, Key{UserID: "u", SubjectID: "s/x", TopicID: "t"}.Validate(), ErrInvalidKey)
	assert.Equal(t, "u1/algebra/quadratics", testKey.String())
}

func TestCheckVersion(t *testing.T) {
	assert.NoError(t, checkVersion(MergeOptions{}, true, 7))
	assert.NoError(t, checkVersion(ExpectVersion(0), false, 0))
	assert.ErrorIs(t, checkVersion(ExpectVersion(0), true, 1), ErrVersionConflict)
	assert.ErrorIs(t, checkVersion(ExpectVersion(2), true, 3), ErrVersionConflict)
}

func TestServerTime(t *testing.T) {
	prev := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, prev.Add(time.Microsecond), serverTime(prev.Add(-time.Hour), prev))
	later := prev.Add(time.Second)
	assert.Equal(t, later, serverTime(later, prev))
	assert.Equal(t, later, serverTime(later, time.Time{}))
}
