// gripctl talks to a running griprumble daemon over its local HTTP API.
package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var addr string

func main() {
	root := &cobra.Command{
		Use:          "gripctl",
		Short:        "Control a running griprumble daemon",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&addr, "addr", "127.0.0.1:8751", "daemon listen address")

	root.AddCommand(
		statusCmd(),
		logCmd(),
		holdCmd(),
		resumeCmd(),
		intensityCmd(),
		rawCmd(),
		reopenCmd(),
		curveCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print connection status, flight snapshot and effect flags",
		RunE: func(cmd *cobra.Command, args []string) error {
			return get("/status")
		},
	}
}

func logCmd() *cobra.Command {
	var tail int
	c := &cobra.Command{
		Use:   "log",
		Short: "Print the daemon's recent log lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := request(http.MethodGet, "/log", nil)
			if err != nil {
				return err
			}
			var out struct {
				Lines []string `json:"lines"`
			}
			if err := json.Unmarshal(body, &out); err != nil {
				return err
			}
			lines := out.Lines
			if tail > 0 && len(lines) > tail {
				lines = lines[len(lines)-tail:]
			}
			for _, l := range lines {
				fmt.Println(l)
			}
			return nil
		},
	}
	c.Flags().IntVarP(&tail, "tail", "n", 0, "print only the last n lines")
	return c
}

func holdCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hold",
		Short: "Silence the grip until resume",
		RunE: func(cmd *cobra.Command, args []string) error {
			return post("/command/hold", nil)
		},
	}
}

func resumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Lift a previous hold",
		RunE: func(cmd *cobra.Command, args []string) error {
			return post("/command/resume", nil)
		},
	}
}

func intensityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "intensity <0-255>",
		Short: "Drive the motor at a fixed level (diagnostics)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := strconv.Atoi(args[0])
			if err != nil || level < 0 || level > 255 {
				return fmt.Errorf("level must be 0..255")
			}
			return post("/command/intensity", map[string]int{"level": level})
		},
	}
}

func rawCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "raw <hex-bytes>",
		Short: "Send a raw 14-byte report to every grip (diagnostics)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			frame, err := hex.DecodeString(strings.ReplaceAll(args[0], " ", ""))
			if err != nil {
				return fmt.Errorf("invalid hex: %w", err)
			}
			return post("/command/raw", map[string]any{"frame": frame})
		},
	}
}

func reopenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reopen",
		Short: "Close and re-enumerate grip devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			return post("/command/reopen", nil)
		},
	}
}

func curveCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "curve",
		Short: "Show or tune the rumble curve",
		RunE: func(cmd *cobra.Command, args []string) error {
			return get("/curve")
		},
	}
	c.AddCommand(
		&cobra.Command{
			Use:   "set <field=value> ...",
			Short: "Overlay curve fields, e.g. ground_roll=50 bank=60",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				patch := map[string]any{}
				for _, a := range args {
					k, v, ok := strings.Cut(a, "=")
					if !ok {
						return fmt.Errorf("expected field=value, got %q", a)
					}
					f, err := strconv.ParseFloat(v, 64)
					if err != nil {
						return fmt.Errorf("%s: %w", k, err)
					}
					patch[k] = f
				}
				return post("/curve", patch)
			},
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Restore the factory curve",
			RunE: func(cmd *cobra.Command, args []string) error {
				return post("/curve/reset", nil)
			},
		},
	)
	return c
}

func get(path string) error {
	body, err := request(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	fmt.Print(string(body))
	return nil
}

func post(path string, payload any) error {
	body, err := request(http.MethodPost, path, payload)
	if err != nil {
		return err
	}
	fmt.Print(string(body))
	return nil
}

func request(method, path string, payload any) ([]byte, error) {
	var rd io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, "http://"+addr+path, rd)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("daemon not reachable at %s: %w", addr, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return body, nil
}
