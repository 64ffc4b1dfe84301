package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"hoopgraph-backend/internal/config"
	"hoopgraph-backend/internal/di"
	"hoopgraph-backend/internal/interfaces/http/rest/handlers"
	"hoopgraph-backend/internal/metadata"
	"hoopgraph-backend/internal/observability"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// =============================================================================
// ROOT COMMAND
// =============================================================================

type cli struct {
	configPath string
	cfg        *config.Config
	out        io.Writer
}

func newRootCommand(out io.Writer) *cobra.Command {
	c := &cli{out: out}

	cmd := &cobra.Command{
		Use:           "hoopgraph",
		Short:         "Degrees of separation between NBA teammates.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewLoader(c.configPath).Load()
			if err != nil {
				return err
			}
			// One-shot runs neither export spans nor watch files.
			cfg.Tracing.Enabled = false
			cfg.Graph.Watch = false
			c.cfg = cfg
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&c.configPath, "config", "", "path to a YAML or JSON config file (default $"+config.ConfigPathEnv+")")
	cmd.SetOut(c.out)

	cmd.AddCommand(c.pathCommand(), c.statsCommand(), c.metadataCommand())
	return cmd
}

func (c *cli) writeJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) container(ctx context.Context) (*di.Container, func(), error) {
	return di.InitializeContainer(ctx, c.cfg)
}

// =============================================================================
// PATH COMMAND
// =============================================================================

func (c *cli) pathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path <start-player-id> <end-player-id>",
		Short: "Print the shortest teammate chain between two players as JSON.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			container, cleanup, err := c.container(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := container.Finder.Find(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			return c.writeJSON(handlers.NewConnectionResponse(result))
		},
	}
}

// =============================================================================
// STATS COMMAND
// =============================================================================

func (c *cli) statsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Load the graph and print summary statistics.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			container, cleanup, err := c.container(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			graph, err := container.Graphs.Load(ctx)
			if err != nil {
				return err
			}
			return c.writeJSON(handlers.GraphStatsResponse{
				GraphStats: graph.Stats(),
				MaxDegrees: container.Finder.MaxDegrees(),
				LoadedAt:   container.Graphs.LoadedAt(),
			})
		},
	}
}

// =============================================================================
// METADATA IMPORT COMMAND
// =============================================================================

func (c *cli) metadataCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metadata",
		Short: "Manage edge metadata stores.",
	}

	var file, target string
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Bulk load pair records from a JSON file into badger or DynamoDB.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := metadata.ReadRecordsFile(file)
			if err != nil {
				return err
			}

			logger, err := observability.NewLogger(c.cfg.Logging, c.cfg.Environment)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			importer, closeFn, err := c.openImporter(cmd.Context(), target, logger)
			if err != nil {
				return err
			}
			defer closeFn()

			n, err := importer.Import(cmd.Context(), records)
			if err != nil {
				return fmt.Errorf("import into %s: %w", target, err)
			}
			fmt.Fprintf(c.out, "imported %d pair records into %s\n", n, target)
			return nil
		},
	}
	importCmd.Flags().StringVar(&file, "file", "", "JSON array of pair records")
	importCmd.Flags().StringVar(&target, "target", "badger", "destination store: badger or dynamodb")
	_ = importCmd.MarkFlagRequired("file")

	cmd.AddCommand(importCmd)
	return cmd
}

func (c *cli) openImporter(ctx context.Context, target string, logger *zap.Logger) (metadata.Importer, func(), error) {
	switch target {
	case "badger":
		store, err := metadata.OpenBadgerStore(metadata.BadgerOptions{Dir: c.cfg.Metadata.BadgerDir}, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	case "dynamodb":
		client, err := metadata.NewDynamoClient(ctx, c.cfg.AWS.Region, c.cfg.AWS.DynamoDBEndpoint)
		if err != nil {
			return nil, nil, err
		}
		return metadata.NewDynamoStore(client, c.cfg.Metadata.TableName, logger), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown import target %q (want badger or dynamodb)", target)
	}
}
