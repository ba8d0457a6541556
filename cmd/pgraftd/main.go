package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pgraft/pgraft/pkg/config"
	"github.com/pgraft/pgraft/pkg/daemon"
	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build).
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCodeFor(err))
	}
}

var rootCmd = &cobra.Command{
	Use:     "pgraftd",
	Short:   "pgraft - Raft-coordinated PostgreSQL high-availability daemon",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("pgraftd version %s (%s)\n", Version, Commit))
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(clusterCmd)

	runCmd.Flags().String("config", "/etc/pgraft/pgraft.yaml", "Path to the daemon's YAML configuration file")
	runCmd.Flags().String("api-addr", "127.0.0.1:8090", "Address the HTTP control surface listens on")

	clusterCmd.AddCommand(clusterHealthCmd)
	clusterCmd.AddCommand(clusterAddNodeCmd)

	clusterHealthCmd.Flags().String("endpoint", "http://127.0.0.1:8090", "pgraftd control-surface base URL")

	clusterAddNodeCmd.Flags().String("endpoint", "http://127.0.0.1:8090", "pgraftd control-surface base URL")
	clusterAddNodeCmd.Flags().Uint32("node-id", 0, "ID of the node to add (required)")
	clusterAddNodeCmd.Flags().String("hostname", "", "Hostname of the node to add")
	clusterAddNodeCmd.Flags().String("address", "", "Address of the node to add (required)")
	clusterAddNodeCmd.Flags().Int("port", 0, "Port of the node to add (required)")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pgraft daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		apiAddr, _ := cmd.Flags().GetString("api-addr")

		cfg, err := config.Load(configPath)
		if err != nil {
			return cliError{code: 2, err: fmt.Errorf("loading config: %w", err)}
		}

		d, err := daemon.New(*cfg)
		if err != nil {
			return cliError{code: 1, err: fmt.Errorf("constructing daemon: %w", err)}
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigCh
			fmt.Println("received shutdown signal")
			cancel()
		}()

		if err := d.Run(ctx, apiAddr); err != nil {
			return cliError{code: 1, err: err}
		}
		return nil
	},
}

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Query and manage a running pgraft cluster via its control surface",
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

var clusterHealthCmd = &cobra.Command{
	Use:   "health",
	Short: "Report cluster health from a running daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		endpoint, _ := cmd.Flags().GetString("endpoint")

		resp, err := http.Get(endpoint + "/api/v1/cluster/health")
		if err != nil {
			return cliError{code: 1, err: fmt.Errorf("contacting %s: %w", endpoint, err)}
		}
		defer resp.Body.Close()

		var env envelope
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			return cliError{code: 1, err: fmt.Errorf("decoding response: %w", err)}
		}
		if env.Status != "ok" {
			return cliError{code: 1, err: fmt.Errorf("cluster reports: %s", env.Message)}
		}

		fmt.Println(string(env.Data))
		return nil
	},
}

var clusterAddNodeCmd = &cobra.Command{
	Use:   "add-node",
	Short: "Add a node to a running cluster",
	RunE: func(cmd *cobra.Command, args []string) error {
		endpoint, _ := cmd.Flags().GetString("endpoint")
		nodeID, _ := cmd.Flags().GetUint32("node-id")
		hostname, _ := cmd.Flags().GetString("hostname")
		address, _ := cmd.Flags().GetString("address")
		port, _ := cmd.Flags().GetInt("port")

		if nodeID == 0 || address == "" || port == 0 {
			return cliError{code: 2, err: fmt.Errorf("node-id, address and port are required")}
		}

		body, err := json.Marshal(map[string]interface{}{
			"node_id":  nodeID,
			"hostname": hostname,
			"address":  address,
			"port":     port,
		})
		if err != nil {
			return cliError{code: 2, err: err}
		}

		client := &http.Client{Timeout: 10 * time.Second}
		resp, err := client.Post(endpoint+"/api/v1/cluster/add-node", "application/json", bytes.NewReader(body))
		if err != nil {
			return cliError{code: 1, err: fmt.Errorf("contacting %s: %w", endpoint, err)}
		}
		defer resp.Body.Close()

		var env envelope
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			return cliError{code: 1, err: fmt.Errorf("decoding response: %w", err)}
		}
		if env.Status != "ok" {
			return cliError{code: 1, err: fmt.Errorf("add-node rejected: %s", env.Message)}
		}

		fmt.Println(env.Message)
		return nil
	},
}

// cliError carries the process exit code spec.md §6 assigns: 0 success,
// 1 connectivity failure, 2 invalid argument.
type cliError struct {
	code int
	err  error
}

func (e cliError) Error() string { return e.err.Error() }

func exitCodeFor(err error) int {
	if ce, ok := err.(cliError); ok {
		return ce.code
	}
	return 1
}
