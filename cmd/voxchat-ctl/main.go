package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"voxchat/internal/ipc"
)

var socketPath string

var rootCmd = &cobra.Command{
	Use:           "voxchat-ctl",
	Short:         "Control a running voxchat daemon",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// send delivers one command and prints the daemon's reply.
func send(cmd string, args ...string) error {
	r, err := ipc.SendCommand(socketPath, ipc.ControlMessage{Cmd: cmd, Args: args})
	if err != nil {
		return fmt.Errorf("voxchat daemon not running: %w", err)
	}
	if !r.OK {
		return errors.New(r.Error)
	}
	if r.Text != "" {
		fmt.Println(r.Text)
	}
	return nil
}

// passthrough builds a subcommand that forwards its arguments unchanged.
func passthrough(use, short string, args cobra.PositionalArgs) *cobra.Command {
	name, _, _ := strings.Cut(use, " ")
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(_ *cobra.Command, args []string) error {
			return send(name, args...)
		},
	}
}

var attachCmd = &cobra.Command{
	Use:   "attach PATH",
	Short: "Stage a file for the next send",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		path, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		return send("attach", path)
	},
}

func init() {
	def := os.Getenv("VOXCHAT_SOCKET")
	if def == "" {
		def = ipc.DefaultSocketPath()
	}
	rootCmd.PersistentFlags().StringVarP(&socketPath, "socket", "s", def, "Daemon control socket")

	rootCmd.AddCommand(
		passthrough("record", "Start or stop a voice recording", cobra.NoArgs),
		passthrough("say TEXT...", "Submit a text message", cobra.MinimumNArgs(1)),
		attachCmd,
		passthrough("detach NAME", "Remove a staged file", cobra.ExactArgs(1)),
		passthrough("send", "Send staged files", cobra.NoArgs),
		passthrough("action N|TEXT", "Stage a suggested action", cobra.MinimumNArgs(1)),
		passthrough("play [ID]", "Visualize a voice message, the latest by default", cobra.MaximumNArgs(1)),
		passthrough("stop [ID]", "Stop one visualization, or all", cobra.MaximumNArgs(1)),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
