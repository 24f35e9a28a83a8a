package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/mcoot/openface/internal/api/response"
)

// HealthReport is the server's health as seen from the CLI
type HealthReport struct {
	response.Health
	Server    string `json:"server"`
	LatencyMs int64  `json:"latency_ms"`
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the server can reach its room store",
		RunE: func(cmd *cobra.Command, args []string) error {
			report := HealthReport{Server: cfg.ServerURL}

			started := time.Now()
			if err := client.Get("/api/v1/health", &report.Health); err != nil {
				return err
			}
			report.LatencyMs = time.Since(started).Milliseconds()

			NewOutput(cfg.Output).Print(report)
			return nil
		},
	}
}
