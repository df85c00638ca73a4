package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jkratochvil/facemark/internal/attendance"
	"github.com/jkratochvil/facemark/internal/config"
	"github.com/jkratochvil/facemark/internal/identify"
	"github.com/jkratochvil/facemark/internal/store/postgres"
)

var identifyCmd = &cobra.Command{
	Use:   "identify <image>",
	Short: "Identify faces in an image",
	Long: `Run the recognition pipeline on a single image and print the result.
With --mark the recognized students are also recorded in the attendance
ledger, which requires DATABASE_URL.`,
	Args: cobra.ExactArgs(1),
	RunE: runIdentify,
}

func init() {
	rootCmd.AddCommand(identifyCmd)

	identifyCmd.Flags().String("subject", "", "Subject context for attendance marking")
	identifyCmd.Flags().Bool("mark", false, "Record recognized students in the attendance ledger")
	identifyCmd.Flags().Bool("json", false, "Print detections as JSON")
}

func runIdentify(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	mark := mustGetBool(cmd, "mark")
	subject := mustGetString(cmd, "subject")

	imageData, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}

	pipe, err := newPipeline(cfg)
	if err != nil {
		return err
	}
	if pipe.ref.Snapshot() == nil {
		return fmt.Errorf("no trained model at %s, run train first", cfg.Dataset.ModelPath)
	}

	var repo *postgres.Repo
	if mark {
		if cfg.Database.URL == "" {
			return errors.New("--mark requires DATABASE_URL")
		}
		pool, err := postgres.NewPool(&cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		defer pool.Close()
		if err := pool.Migrate(cmd.Context()); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		repo = postgres.NewRepo(pool)
	}

	var identifier *identify.Identifier
	if repo != nil {
		identifier = pipe.identifier(cfg, repo)
	} else {
		identifier = pipe.identifier(cfg, nil)
	}

	detections, err := identifier.Identify(cmd.Context(), imageData)
	if err != nil {
		return fmt.Errorf("identify: %w", err)
	}
	detections = identify.DedupeByLabel(detections)

	if mustGetBool(cmd, "json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(detections)
	}

	if len(detections) == 0 {
		fmt.Println("No faces found")
		return nil
	}
	for _, det := range detections {
		if det.Known {
			fmt.Printf("%-12s %-24s distance %.3f  %v\n", det.Label, det.Name, det.Distance, det.Region)
		} else {
			fmt.Printf("%-12s %-24s distance %.3f  %v\n", "unknown", "", det.Distance, det.Region)
		}
	}

	if !mark {
		return nil
	}

	resolver := attendance.NewResolver(repo, repo, repo, cfg.Attendance)
	now := time.Now().UTC()
	for _, det := range detections {
		if !det.Known {
			continue
		}
		act, err := resolver.Mark(cmd.Context(), det.Label, subject, now, attendance.ModeLive, false)
		if err != nil {
			return fmt.Errorf("mark %s: %w", det.Label, err)
		}
		fmt.Printf("%s: %s", det.Label, act.Kind)
		if act.Reason != "" {
			fmt.Printf(" (%s)", act.Reason)
		}
		fmt.Println()
	}
	return nil
}
