package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Bradley1112/nurture/internal/progress"
	"github.com/Bradley1112/nurture/internal/ui/card"
)

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Show the stored progress for a topic",
	RunE:  runProgress,
}

func init() {
	addKeyFlags(progressCmd)
	progressCmd.Flags().String("format", "card", "Output format: card, json or yaml")
	progressCmd.Flags().Int("width", 72, "Card width in columns")
}

// yamlProgress mirrors the JSON field names.
func yamlProgress(tp *progress.TopicProgress) (map[string]any, error) {
	doc, err := progress.Document(tp)
	if err != nil {
		return nil, err
	}
	if tp.UpdatedAt != nil {
		doc["updatedAt"] = tp.UpdatedAt.UTC()
	}
	return doc, nil
}

func runProgress(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	width, _ := cmd.Flags().GetInt("width")
	switch format {
	case "card", "json", "yaml":
	default:
		return fmt.Errorf("unknown format %q: want card, json or yaml", format)
	}
	key, err := keyFromFlags(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	eng, err := openEngine(ctx, rt.cfg, rt.log)
	if err != nil {
		return err
	}
	defer eng.Close()

	tp, found, err := eng.svc.Progress(ctx, key)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("no progress recorded for %s", key)
	}

	out := cmd.OutOrStdout()
	switch format {
	case "json":
		return writeJSON(out, tp)
	case "yaml":
		doc, err := yamlProgress(tp)
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		_, err := fmt.Fprintln(out, card.Render(tp, width))
		return err
	}
}
