// Ivctl is the command-line client for the interviewd API.
//
// Usage:
//
//	ivctl --server http://localhost:8080 start --topic goroutines --type coding
//	ivctl answer SESSION_ID "I'd fan the work out over a worker pool"
//	ivctl clarify SESSION_ID "Can I assume the input fits in memory?"
//	ivctl submit SESSION_ID --file solution.go
//	ivctl feedback SESSION_ID
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	gitCommit = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ivctl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var serverURL string

	root := &cobra.Command{
		Use:           "ivctl",
		Short:         "Client for the interviewd mock-interview API",
		Version:       fmt.Sprintf("%s (%s)", version, gitCommit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "interviewd server URL")

	client := &apiClient{base: &serverURL}

	root.AddCommand(
		newHealthCmd(client),
		newStartCmd(client),
		newAnswerCmd(client),
		newClarifyCmd(client),
		newSubmitCmd(client),
		newFeedbackCmd(client),
		newGetCmd(client),
		newTopicsCmd(client),
		newModulesCmd(client),
	)

	return root
}
