package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nerrad567/lumen-core/internal/bridges/fader"
	"github.com/nerrad567/lumen-core/internal/output"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the lumen version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "lumen %s (commit %s, built %s)\n", version, commit, date)
			return err
		},
	}
}

type interfacesReport struct {
	Network []output.Interface `json:"network"`
	MIDI    []string           `json:"midi"`
}

func newInterfacesCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "interfaces",
		Short: "List network interfaces and MIDI inputs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ifaces, err := output.Interfaces()
			if err != nil {
				return err
			}
			report := interfacesReport{Network: ifaces, MIDI: fader.InPorts()}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "INTERFACE\tADDRESSES\tFLAGS")
			for _, ifi := range report.Network {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", ifi.Name, strings.Join(ifi.Addresses, ","), interfaceFlags(ifi))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if len(report.MIDI) == 0 {
				_, err = fmt.Fprintln(out, "\nno MIDI inputs")
				return err
			}
			fmt.Fprintln(out, "\nMIDI INPUTS")
			for _, name := range report.MIDI {
				fmt.Fprintf(out, "  %s\n", name)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func interfaceFlags(ifi output.Interface) string {
	var flags []string
	if ifi.Up {
		flags = append(flags, "up")
	}
	if ifi.Loopback {
		flags = append(flags, "loopback")
	}
	if ifi.Multicast {
		flags = append(flags, "multicast")
	}
	if ifi.Broadcast {
		flags = append(flags, "broadcast")
	}
	return strings.Join(flags, ",")
}
