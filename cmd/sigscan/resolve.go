package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"sigscan/config"
	"sigscan/resolve"
	"sigscan/snapshot"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newResolveCmd() *cobra.Command {
	var (
		configPath string
		from       string
		watch      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve the signatures of a config file and read the values they point at",
		Long:  "resolve loads a signature file (-c, or .sigscan.yml in the current directory), attaches to the configured process and prints every signature's address and reads.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("config: %w", err)
			}

			if cfg.Elevate && from == "" {
				if err := elevate(); err != nil {
					return err
				}
			}

			t := target{pid: cfg.PID, name: cfg.Process, from: from}
			open, pid, mainModule, err := t.open()
			if err != nil {
				return err
			}
			moduleName := cfg.Module
			if moduleName == "" {
				moduleName = mainModule
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			r := resolve.New()
			return snapshot.With(open, pid, moduleName, func(s *snapshot.Snapshot) error {
				return resolveLoop(ctx, cmd, r, s, cfg.Signatures, watch)
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "signature file (default: .sigscan.yml in the current directory)")
	cmd.Flags().StringVar(&from, "from", "", "resolve against a dump directory instead of the live process")
	cmd.Flags().DurationVar(&watch, "watch", 0, "re-resolve at this interval until interrupted")
	return cmd
}

func loadConfig(path string) (config.File, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.LoadLocal(".")
}

func resolveLoop(ctx context.Context, cmd *cobra.Command, r *resolve.Resolver, s *snapshot.Snapshot, sigs []config.Signature, watch time.Duration) error {
	if err := resolveOnce(cmd, r, s, sigs); err != nil || watch <= 0 {
		return err
	}

	ticker := time.NewTicker(watch)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			hits, misses := r.Stats()
			log.Infoln("Stopped;", hits, "cached scans,", misses, "full scans")
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			if err := resolveOnce(cmd, r, s, sigs); err != nil {
				return err
			}
		}
	}
}

func resolveOnce(cmd *cobra.Command, r *resolve.Resolver, s *snapshot.Snapshot, sigs []config.Signature) error {
	results, err := r.Run(s, sigs)
	if results != nil {
		if werr := writeResults(cmd, s, results); werr != nil {
			return werr
		}
	}
	return err
}

func writeResults(cmd *cobra.Command, s *snapshot.Snapshot, results []resolve.Result) error {
	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header("SIGNATURE", "OFFSET", "ADDRESS", "READ", "TYPE", "AT", "VALUE")

	for _, res := range results {
		if !res.Found {
			if err := table.Append([]string{res.Name, "-", "not found", "", "", "", ""}); err != nil {
				return err
			}
			continue
		}

		offset := s.Module().Name + "+0x" + strconv.FormatInt(int64(res.Offset), 16)
		if len(res.Values) == 0 {
			if err := table.Append([]string{res.Name, offset, res.Address.ToString(), "", "", "", ""}); err != nil {
				return err
			}
			continue
		}
		for _, v := range res.Values {
			if err := table.Append([]string{res.Name, offset, res.Address.ToString(), v.Name, v.Type, v.Address.ToString(), v.String()}); err != nil {
				return err
			}
		}
	}

	return table.Render()
}
