package cli

import (
	"context"
	"fmt"
	"io"
	"runtime"

	"github.com/fmueller/speech2symbol/internal/record"
	"github.com/spf13/cobra"
)

func newDevicesCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List recording devices and backend diagnostics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			backends := record.DefaultBackends(runtime.GOOS)
			if len(backends) == 0 {
				return fmt.Errorf("unsupported OS: %s", runtime.GOOS)
			}
			return listDevices(cmd.Context(), cmd.OutOrStdout(), backends, app.cfg.Capture.Backend)
		},
	}
}

// listDevices prints every backend's devices and marks the one a capture
// with the preferred backend would use.
func listDevices(ctx context.Context, out io.Writer, backends []record.Backend, preferred string) error {
	selected := ""
	if backend, err := record.SelectBackend(backends, preferred); err == nil {
		selected = backend.Name()
	} else {
		fmt.Fprintf(out, "No usable backend: %v\n\n", err)
	}

	for _, backend := range backends {
		header := "== " + backend.Name() + " =="
		if backend.Name() == selected {
			header += " (selected)"
		}
		fmt.Fprintln(out, header)

		switch {
		case !backend.Available():
			fmt.Fprintln(out, "not available on PATH")
		default:
			devices, err := backend.ListDevices(ctx)
			switch {
			case err != nil:
				fmt.Fprintf(out, "failed to list devices: %v\n", err)
			case devices == "":
				fmt.Fprintln(out, "no output")
			default:
				fmt.Fprintln(out, devices)
			}
		}
		fmt.Fprintln(out)
	}
	return nil
}
