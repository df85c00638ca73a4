package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var attendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Show the attendance ledger for a date",
	RunE:  runAttendance,
}

func init() {
	rootCmd.AddCommand(attendanceCmd)

	attendanceCmd.Flags().String("date", "", "Civil date (2006-01-02), defaults to today")
	attendanceCmd.Flags().String("subject", "", "Filter by subject")
}

func runAttendance(cmd *cobra.Command, args []string) error {
	date := mustGetString(cmd, "date")
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		return fmt.Errorf("invalid date %q", date)
	}

	repo, closeRepo, err := openRepo(cmd)
	if err != nil {
		return err
	}
	defer closeRepo()

	records, err := repo.ListAttendanceByDate(cmd.Context(), date, mustGetString(cmd, "subject"))
	if err != nil {
		return fmt.Errorf("list attendance: %w", err)
	}
	if len(records) == 0 {
		fmt.Printf("No attendance records on %s\n", date)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STUDENT\tSTATUS\tSUBJECT\tTIME")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			rec.StudentCode, rec.Status, rec.Subject, rec.RecordedAt.Format("15:04:05"))
	}
	return w.Flush()
}
