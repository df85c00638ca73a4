package cmd

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jkratochvil/facemark/internal/config"
	"github.com/jkratochvil/facemark/internal/schedule"
	"github.com/jkratochvil/facemark/internal/store/postgres"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage the class timetable",
}

var scheduleImportCmd = &cobra.Command{
	Use:   "import <timetable.yaml>",
	Short: "Import timetable slots from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE:  runScheduleImport,
}

var scheduleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all timetable slots",
	RunE:  runScheduleList,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.AddCommand(scheduleImportCmd)
	scheduleCmd.AddCommand(scheduleListCmd)
}

func openRepo(cmd *cobra.Command) (*postgres.Repo, func(), error) {
	cfg := config.Load()
	if cfg.Database.URL == "" {
		return nil, nil, errors.New("DATABASE_URL environment variable is required")
	}
	pool, err := postgres.NewPool(&cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	if err := pool.Migrate(cmd.Context()); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return postgres.NewRepo(pool), func() { pool.Close() }, nil
}

func runScheduleImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read timetable: %w", err)
	}

	repo, closeRepo, err := openRepo(cmd)
	if err != nil {
		return err
	}
	defer closeRepo()

	created, err := schedule.Import(cmd.Context(), repo, data)
	if err != nil {
		return fmt.Errorf("import timetable: %w", err)
	}
	fmt.Printf("Imported %d slots\n", created)
	return nil
}

func runScheduleList(cmd *cobra.Command, args []string) error {
	repo, closeRepo, err := openRepo(cmd)
	if err != nil {
		return err
	}
	defer closeRepo()

	slots, err := repo.ListSlots(cmd.Context())
	if err != nil {
		return fmt.Errorf("list slots: %w", err)
	}
	if len(slots) == 0 {
		fmt.Println("No timetable slots")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WEEKDAY\tSTART\tEND\tSUBJECT\tTEACHER\tYEAR\tSECTION")
	for _, slot := range slots {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			slot.Weekday, slot.Start, slot.End, slot.Subject, slot.Teacher, slot.Year, slot.Section)
	}
	return w.Flush()
}
