package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newPINCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pin",
		Short: "Manage the unlock PIN",
	}

	set := &cobra.Command{
		Use:   "set",
		Short: "Set or replace the unlock PIN",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(cmd *cobra.Command, _ []string, e *env) error {
			in := newPINReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()
			pin, err := in.prompt(out, "New PIN: ")
			if err != nil {
				return fmt.Errorf("failed to read PIN: %w", err)
			}
			confirm, err := in.prompt(out, "Confirm PIN: ")
			if err != nil {
				return fmt.Errorf("failed to read PIN: %w", err)
			}
			if err := e.auth.Setup(cmd.Context(), pin, confirm); err != nil {
				return err
			}
			fmt.Fprintln(out, "PIN saved")
			return nil
		}),
	}

	verify := &cobra.Command{
		Use:   "verify",
		Short: "Check a PIN against the stored one",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(cmd *cobra.Command, _ []string, e *env) error {
			out := cmd.OutOrStdout()
			pin, err := newPINReader(cmd.InOrStdin()).prompt(out, "PIN: ")
			if err != nil {
				return fmt.Errorf("failed to read PIN: %w", err)
			}
			ok, err := e.auth.Verify(cmd.Context(), pin)
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("PIN rejected")
			}
			fmt.Fprintln(out, "PIN accepted")
			return nil
		}),
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show whether a PIN and biometric unlock are configured",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(cmd *cobra.Command, _ []string, e *env) error {
			st, err := e.auth.Status(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pin: %s\nbiometrics: %s\n", onOff(st.SetupComplete), onOff(st.BiometricsEnabled))
			return nil
		}),
	}

	biometrics := &cobra.Command{
		Use:       "biometrics on|off",
		Short:     "Enable or disable biometric unlock",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
			var enabled bool
			switch args[0] {
			case "on":
				enabled = true
			case "off":
			default:
				return fmt.Errorf("expected on or off, got %q", args[0])
			}
			if err := e.auth.SetBiometrics(cmd.Context(), enabled); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "biometrics: %s\n", onOff(enabled))
			return nil
		}),
	}

	cmd.AddCommand(set, verify, status, biometrics)
	return cmd
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// pinReader reads PINs without echo from a terminal and line by line from
// anything else (pipes, tests).
type pinReader struct {
	in      io.Reader
	scanner *bufio.Scanner
}

func newPINReader(in io.Reader) *pinReader {
	return &pinReader{in: in, scanner: bufio.NewScanner(in)}
}

func (r *pinReader) prompt(out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	if f, ok := r.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	if r.scanner.Scan() {
		fmt.Fprintln(out)
		return r.scanner.Text(), nil
	}
	if err := r.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
