package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Bradley1112/nurture/internal/session"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a session: decide its shape from stored progress and signals",
	RunE:  runStart,
}

var finishCmd = &cobra.Command{
	Use:   "finish",
	Short: "Finalize a session from a JSON payload and update progress",
	Long: `Grade a finished session and persist the topic's updated progress.

The payload carries userId, subjectId, topicId, telemetry and optionally the
transcript and interaction log. Use --file - to read it from stdin.`,
	RunE: runFinish,
}

func init() {
	addKeyFlags(startCmd)
	addSignalFlags(startCmd)

	finishCmd.Flags().String("file", "", "Path to the finalize payload, or - for stdin (required)")
	_ = finishCmd.MarkFlagRequired("file")
}

func runStart(cmd *cobra.Command, args []string) error {
	key, err := keyFromFlags(cmd)
	if err != nil {
		return err
	}
	in, err := signalsFromFlags(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	eng, err := openEngine(ctx, rt.cfg, rt.log)
	if err != nil {
		return err
	}
	defer eng.Close()

	res, err := eng.svc.StartSession(ctx, key, in)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), res)
}

func readPayload(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

func runFinish(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("file")
	data, err := readPayload(cmd, path)
	if err != nil {
		return fmt.Errorf("read payload: %w", err)
	}
	req, err := session.DecodeFinalize(data)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	eng, err := openEngine(ctx, rt.cfg, rt.log)
	if err != nil {
		return err
	}
	defer eng.Close()

	res, err := eng.svc.FinalizeSession(ctx, req.Key, req.Input())
	if res != nil {
		if werr := writeJSON(cmd.OutOrStdout(), res); werr != nil {
			return werr
		}
	}
	return err
}
