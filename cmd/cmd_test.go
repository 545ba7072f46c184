package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bradley1112/nurture/internal/orchestrator"
	"github.com/Bradley1112/nurture/internal/session"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append(args, "--log-level", "error"))
	err := rootCmd.Execute()
	return out.String(), err
}

func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())
	for _, kv := range os.Environ() {
		if name, _, _ := strings.Cut(kv, "="); strings.HasPrefix(name, "NURTURE_") {
			t.Setenv(name, "")
		}
	}
	for _, name := range []string{"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY", "OPENROUTER_API_KEY", "REDIS_PASSWORD"} {
		t.Setenv(name, "")
	}
	return filepath.Join(t.TempDir(), "nurture.db")
}

func TestDecide(t *testing.T) {
	isolate(t)
	out, err := execute(t, "", "decide", "--level", "pro", "--focus", "5", "--stress", "8", "--exam", "")
	require.NoError(t, err)

	var d orchestrator.Decision
	require.NoError(t, json.Unmarshal([]byte(out), &d))
	assert.True(t, d.AdaptiveFactors.HighStress)
	assert.Equal(t, 60, d.LearningRatio)
	assert.Equal(t, 100, d.LearningRatio+d.PracticeRatio)

	_, err = execute(t, "", "decide", "--level", "wizard")
	assert.ErrorContains(t, err, "unknown level")
}

func TestFinishThenProgress(t *testing.T) {
	db := isolate(t)
	payload := `{
		"userId": "stu-1", "subjectId": "algebra", "topicId": "quadratics",
		"telemetry": {"questionsAnswered": 4, "correctAnswers": 4},
		"transcript": [{"sender": "teacher", "content": "Check the discriminant first."}]
	}`

	out, err := execute(t, payload, "finish", "--db", db, "--file", "-")
	require.NoError(t, err)
	var res session.FinalizeResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.Persisted)
	assert.Equal(t, []string{"quadratic_formula"}, res.UpdatedProgress.Progression.CoveredSubtopics)

	keyArgs := []string{"--db", db, "--user", "stu-1", "--subject", "algebra", "--topic", "quadratics"}

	out, err = execute(t, "", append([]string{"progress", "--format", "yaml"}, keyArgs...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "totalSessions: 1")
	assert.Contains(t, out, "- quadratic_formula")

	out, err = execute(t, "", append([]string{"progress", "--format", "card"}, keyArgs...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "quadratics")

	out, err = execute(t, "", append([]string{"start", "--focus", "5", "--stress", "2", "--exam", ""}, keyArgs...)...)
	require.NoError(t, err)
	var start session.StartResult
	require.NoError(t, json.Unmarshal([]byte(out), &start))
	assert.True(t, start.Personalized)
	assert.Contains(t, start.Config.WelcomeMessage, "We left off at quadratic formula.")
}

func TestProgress_Errors(t *testing.T) {
	db := isolate(t)
	keyArgs := []string{"--db", db, "--user", "nobody", "--subject", "algebra", "--topic", "quadratics"}

	_, err := execute(t, "", append([]string{"progress", "--format", "json"}, keyArgs...)...)
	assert.ErrorContains(t, err, "no progress recorded")

	_, err = execute(t, "", append([]string{"progress", "--format", "xml"}, keyArgs...)...)
	assert.ErrorContains(t, err, "unknown format")
}

func TestFinish_InvalidPayload(t *testing.T) {
	db := isolate(t)
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"userId":"stu-1"}`), 0o644))

	_, err := execute(t, "", "finish", "--db", db, "--file", path)
	assert.ErrorIs(t, err, session.ErrInvalidPayload)
}

func TestVersion(t *testing.T) {
	isolate(t)
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "nurture (devel)\n", out)
}

func TestVersionVerbose(t *testing.T) {
	isolate(t)
	out, err := execute(t, "", "version", "--verbose")
	require.NoError(t, err)
	assert.Contains(t, out, "store:      sqlite")
	assert.Contains(t, out, "classifier: keyword")

	_, err = execute(t, "", "version", "--verbose=false")
	require.NoError(t, err)
}
