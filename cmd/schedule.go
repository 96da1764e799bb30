package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kilianp07/techsched/pkg/export"
)

var (
	scheduleTechnicians int
	scheduleFormat      string
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Assign the open faults to technicians and print the result",
	Long: "Assign the open faults to technicians and print the result. The run is\n" +
		"recorded and published the same way as runs triggered over HTTP.",
	RunE:  runSchedule,
}

func init() {
	scheduleCmd.Flags().IntVarP(&scheduleTechnicians, "technicians", "n", 0, "number of technicians (default from config)")
	scheduleCmd.Flags().StringVarP(&scheduleFormat, "format", "f", "json", "output format: json or csv")
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	format, err := export.ParseFormat(scheduleFormat)
	if err != nil {
		return err
	}
	svc, err := newService(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer closeService(svc)
	svc.Start(cmd.Context())

	n := svc.DefaultTechnicians()
	if cmd.Flags().Changed("technicians") {
		n = scheduleTechnicians
	}
	res, err := svc.Schedule(cmd.Context(), n)
	if err != nil {
		return err
	}
	return export.Write(cmd.OutOrStdout(), format, res)
}
