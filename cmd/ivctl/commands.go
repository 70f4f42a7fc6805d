package main

import (
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"
)

func newHealthCmd(client *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := client.get("/healthz")
			if err != nil {
				return err
			}
			return printJSON(data)
		},
	}
}

func newStartCmd(client *apiClient) *cobra.Command {
	var (
		module   string
		topic    string
		ivType   string
		question string
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a new interview session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := client.post("/v1/sessions", map[string]any{
				"module":         module,
				"topic":          topic,
				"interview_type": ivType,
				"base_question":  question,
			})
			if err != nil {
				return err
			}
			return printJSON(data)
		},
	}

	cmd.Flags().StringVar(&module, "module", "", "question bank module to draw from")
	cmd.Flags().StringVar(&topic, "topic", "", "interview topic")
	cmd.Flags().StringVar(&ivType, "type", "coding", "interview type: approach or coding")
	cmd.Flags().StringVar(&question, "question", "", "base question (overrides the bank draw)")

	return cmd
}

func newAnswerCmd(client *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "answer SESSION_ID MESSAGE",
		Short: "Answer the current question",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := client.post("/v1/sessions/"+url.PathEscape(args[0])+"/answer", map[string]any{
				"message": args[1],
			})
			if err != nil {
				return err
			}
			return printJSON(data)
		},
	}
}

func newClarifyCmd(client *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "clarify SESSION_ID MESSAGE",
		Short: "Ask a coding-phase clarification question",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := client.post("/v1/sessions/"+url.PathEscape(args[0])+"/answer", map[string]any{
				"message":       args[1],
				"clarification": true,
			})
			if err != nil {
				return err
			}
			return printJSON(data)
		},
	}
}

func newSubmitCmd(client *apiClient) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "submit SESSION_ID [CODE]",
		Short: "Submit the final code and end the session",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var code string
			switch {
			case file != "":
				content, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("read code file: %w", err)
				}
				code = string(content)
			case len(args) == 2:
				code = args[1]
			default:
				return fmt.Errorf("provide the code as an argument or via --file")
			}

			data, err := client.post("/v1/sessions/"+url.PathEscape(args[0])+"/submission", map[string]any{
				"code": code,
			})
			if err != nil {
				return err
			}
			return printJSON(data)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "read the code from a file")

	return cmd
}

func newFeedbackCmd(client *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "feedback SESSION_ID",
		Short: "Generate feedback for a completed session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := client.post("/v1/sessions/"+url.PathEscape(args[0])+"/feedback", nil)
			if err != nil {
				return err
			}
			return printJSON(data)
		},
	}
}

func newGetCmd(client *apiClient) *cobra.Command {
	var (
		topic string
		phase string
	)

	cmd := &cobra.Command{
		Use:   "get [SESSION_ID]",
		Short: "Show one session, or list all sessions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				data, err := client.get("/v1/sessions/" + url.PathEscape(args[0]))
				if err != nil {
					return err
				}
				return printJSON(data)
			}

			query := url.Values{}
			if topic != "" {
				query.Set("topic", topic)
			}
			if phase != "" {
				query.Set("phase", phase)
			}
			path := "/v1/sessions"
			if encoded := query.Encode(); encoded != "" {
				path += "?" + encoded
			}

			data, err := client.get(path)
			if err != nil {
				return err
			}
			return printJSON(data)
		},
	}

	cmd.Flags().StringVar(&topic, "topic", "", "filter the listing by topic")
	cmd.Flags().StringVar(&phase, "phase", "", "filter the listing by phase: verbal, coding or completed")

	return cmd
}

func newTopicsCmd(client *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "topics",
		Short: "List question bank topics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := client.get("/v1/topics")
			if err != nil {
				return err
			}
			return printJSON(data)
		},
	}
}

func newModulesCmd(client *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "modules",
		Short: "List question bank modules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := client.get("/v1/modules")
			if err != nil {
				return err
			}
			return printJSON(data)
		},
	}
}
