// ask posts a question to a running coopassist server and prints the reply.
//
// Usage: go run ./scripts/ask "how many cooperatives are registered?"
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	serverURL string
	timeout   time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the cooperative registry assistant a question",
	Long: `ask sends a natural-language question to a running coopassist server's
/chat endpoint and prints the reply, with the chart location when one
was produced. Questions may be written in English or Arabic.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(strings.Join(args, " "))
	},
}

func init() {
	rootCmd.Flags().StringVarP(&serverURL, "server", "s", "http://localhost:8090", "Base URL of the coopassist server")
	rootCmd.Flags().DurationVarP(&timeout, "timeout", "t", 60*time.Second, "Request timeout")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func run(question string) error {
	payload, err := json.Marshal(map[string]string{"message": question})
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Post(serverURL+"/chat", "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errBody struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(body, &errBody)
		if errBody.Message != "" {
			return fmt.Errorf("server returned %s: %s", resp.Status, errBody.Message)
		}
		return fmt.Errorf("server returned %s", resp.Status)
	}

	var reply struct {
		Reply    string `json:"reply"`
		ChartURL string `json:"chart_url"`
	}
	if err := json.Unmarshal(body, &reply); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	fmt.Println(color.GreenString(reply.Reply))
	if reply.ChartURL != "" {
		chart := color.New(color.FgBlue, color.Bold)
		chart.Printf("Chart: %s%s\n", serverURL, reply.ChartURL)
	}
	return nil
}
