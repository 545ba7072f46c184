package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Bradley1112/nurture/internal/expertise"
	"github.com/Bradley1112/nurture/internal/orchestrator"
	"github.com/Bradley1112/nurture/internal/session"
)

var decideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Print the orchestration decision for the given signals (no database)",
	Long: `Run the session orchestrator on an expertise level and the student's
pre-session signals, and print the decision as JSON. Nothing is read or stored.`,
	RunE: runDecide,
}

func init() {
	decideCmd.Flags().String("level", string(expertise.Beginner), "Expertise level: beginner, apprentice, pro, grandmaster")
	addSignalFlags(decideCmd)
}

func signalsFromFlags(cmd *cobra.Command) (session.StartInput, error) {
	focus, _ := cmd.Flags().GetInt("focus")
	stress, _ := cmd.Flags().GetInt("stress")
	duration, _ := cmd.Flags().GetInt("duration")
	exam, _ := cmd.Flags().GetString("exam")

	req := session.StartRequest{FocusLevel: focus, StressLevel: stress, SessionDurationMinutes: duration, ExamDate: exam}
	return req.Input()
}

func runDecide(cmd *cobra.Command, args []string) error {
	levelVal, _ := cmd.Flags().GetString("level")
	level, ok := expertise.ParseLevel(levelVal)
	if !ok {
		return fmt.Errorf("unknown level %q", levelVal)
	}
	in, err := signalsFromFlags(cmd)
	if err != nil {
		return err
	}

	d := orchestrator.Decide(rt.cfg.Engine.Orchestrator, orchestrator.Inputs{
		ExpertiseLevel:         level,
		FocusLevel:             in.FocusLevel,
		StressLevel:            in.StressLevel,
		SessionDurationMinutes: in.SessionDurationMinutes,
		ExamDate:               in.ExamDate,
	}, time.Now())
	return writeJSON(cmd.OutOrStdout(), d)
}
