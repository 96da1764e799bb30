package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/techsched/core/model"
	"github.com/kilianp07/techsched/infra/store"
)

var (
	faultsStatus     string
	faultsTechnician string
)

var faultsCmd = &cobra.Command{
	Use:   "faults",
	Short: "Fault related commands",
}

var faultsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List reported faults",
	Args:  cobra.NoArgs,
	RunE:  runFaultsLs,
}

var faultsTransitionCmd = &cobra.Command{
	Use:   "transition <id> <status>",
	Short: "Move a fault to another status",
	Args:  cobra.ExactArgs(2),
	RunE:  runFaultsTransition,
}

func init() {
	faultsLsCmd.Flags().StringVar(&faultsStatus, "status", "", "only list faults with this status")
	faultsTransitionCmd.Flags().StringVar(&faultsTechnician, "technician", "", "technician taking the fault")
	faultsCmd.AddCommand(faultsLsCmd, faultsTransitionCmd)
	rootCmd.AddCommand(faultsCmd)
}

func runFaultsLs(cmd *cobra.Command, args []string) error {
	var flt store.Filter
	if faultsStatus != "" {
		st, err := model.ParseStatus(faultsStatus)
		if err != nil {
			return err
		}
		flt.Status = st
	}
	svc, err := newService(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer closeService(svc)

	faults, err := svc.Faults(cmd.Context(), flt)
	if err != nil {
		return err
	}
	for _, f := range faults {
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\t%s\n",
			f.ID, f.Status, f.Type, f.SchoolName, f.CreatedAt.Format("2006-01-02 15:04")); err != nil {
			return err
		}
	}
	return nil
}

func runFaultsTransition(cmd *cobra.Command, args []string) error {
	to, err := model.ParseStatus(args[1])
	if err != nil {
		return err
	}
	svc, err := newService(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer closeService(svc)

	f, err := svc.TransitionFault(cmd.Context(), args[0], to, faultsTechnician)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(f)
}
