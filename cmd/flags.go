package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Bradley1112/nurture/internal/store"
)

func addKeyFlags(cmd *cobra.Command) {
	cmd.Flags().String("user", "", "Student id (required)")
	cmd.Flags().String("subject", "", "Subject id, e.g. algebra (required)")
	cmd.Flags().String("topic", "", "Topic id (required)")
	for _, f := range []string{"user", "subject", "topic"} {
		_ = cmd.MarkFlagRequired(f)
	}
}

func keyFromFlags(cmd *cobra.Command) (store.Key, error) {
	user, _ := cmd.Flags().GetString("user")
	subject, _ := cmd.Flags().GetString("subject")
	topic, _ := cmd.Flags().GetString("topic")
	key := store.Key{UserID: user, SubjectID: subject, TopicID: topic}
	return key, key.Validate()
}

func addSignalFlags(cmd *cobra.Command) {
	cmd.Flags().Int("focus", 5, "Focus level 1-10")
	cmd.Flags().Int("stress", 3, "Stress level 1-10")
	cmd.Flags().Int("duration", 45, "Planned session length in minutes")
	cmd.Flags().String("exam", "", "Exam date (YYYY-MM-DD or RFC 3339)")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
