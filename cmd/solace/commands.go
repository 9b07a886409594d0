package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/solacelabs/solaced/internal/domino"
	"github.com/solacelabs/solaced/internal/focus"
	"github.com/solacelabs/solaced/internal/httpapi"
)

var httpClient = &http.Client{Timeout: 60 * time.Second}

func newCaptureCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "capture [text]",
		Short: "Turn freeform text into scheduled tasks",
		Long: `Capture sends text through the extraction pipeline. With no argument
the text is read from stdin, so you can pipe notes straight in.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var text string
			if len(args) == 1 {
				text = args[0]
			} else {
				data, err := io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = string(data)
			}

			body, err := json.Marshal(httpapi.CaptureRequest{UserID: userID, Text: text})
			if err != nil {
				return err
			}

			var resp httpapi.CaptureResponse
			if err := post("/api/v1/capture", body, &resp); err != nil {
				return err
			}

			fmt.Printf("Captured %d task(s):\n", len(resp.Tasks))
			for _, t := range resp.Tasks {
				marker := " "
				if t.IsFocus {
					marker = "*"
				}
				fmt.Printf("  %s [%s] %s (%s)\n", marker, t.Bucket, t.Title, strings.ToLower(t.Priority))
			}
			for _, idea := range resp.Ideas {
				fmt.Printf("  idea: %s\n", idea)
			}
			for _, q := range resp.Questions {
				fmt.Printf("  ? %s\n", q)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "user id (required)")
	cmd.MarkFlagRequired("user")
	return cmd
}

func newFocusCmd() *cobra.Command {
	var userID string
	var invalidate bool
	var commit string

	cmd := &cobra.Command{
		Use:   "focus",
		Short: "Show today's focus predictions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if invalidate {
				body, _ := json.Marshal(httpapi.FocusInvalidateRequest{UserID: userID})
				if err := post("/api/v1/focus/invalidate", body, nil); err != nil {
					return err
				}
				fmt.Println("Focus cache cleared.")
				return nil
			}
			if commit != "" {
				body, _ := json.Marshal(httpapi.FocusCommitRequest{UserID: userID, TaskID: commit})
				if err := post("/api/v1/focus/commit", body, nil); err != nil {
					return err
				}
				fmt.Println("Focus set.")
				return nil
			}

			var result focus.Result
			if err := get("/api/v1/focus?user_id="+url.QueryEscape(userID), &result); err != nil {
				return err
			}

			if len(result.Predictions) == 0 {
				for _, r := range result.Reasoning {
					fmt.Println(r)
				}
				if len(result.Reasoning) == 0 {
					fmt.Println("No focus suggestions today.")
				}
				return nil
			}
			for i, p := range result.Predictions {
				fmt.Printf("%d. %s (score %.0f)\n", i+1, p.Title, p.Score)
				for _, r := range p.Reasoning {
					fmt.Printf("   - %s\n", r)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "user id (required)")
	cmd.Flags().BoolVar(&invalidate, "invalidate", false, "clear the cached predictions")
	cmd.Flags().StringVar(&commit, "commit", "", "task id to set as today's focus")
	cmd.MarkFlagRequired("user")
	return cmd
}

func newDominoCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "domino <task-id>",
		Short: "Show what completing a task unlocks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var report domino.Report
			path := fmt.Sprintf("/api/v1/tasks/%s/domino?user_id=%s",
				url.PathEscape(args[0]), url.QueryEscape(userID))
			if err := get(path, &report); err != nil {
				return err
			}

			if report.Summary != "" {
				fmt.Println(report.Summary)
			}
			for _, e := range report.Effects {
				fmt.Printf("  [%s %.0f%%] %s\n", e.Relationship, e.Confidence*100, e.Title)
				if e.Reasoning != "" {
					fmt.Printf("    %s\n", e.Reasoning)
				}
			}
			for _, r := range report.Reasoning {
				fmt.Println(r)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "user id (required)")
	cmd.MarkFlagRequired("user")
	return cmd
}

func get(path string, out any) error {
	resp, err := httpClient.Get(serverURL + path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	return decode(resp, out)
}

func post(path string, body []byte, out any) error {
	resp, err := httpClient.Post(serverURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	return decode(resp, out)
}

func decode(resp *http.Response, out any) error {
	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
