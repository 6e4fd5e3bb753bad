// Package main implements foodctl, a command-line client for looking foods
// up in FoodData Central with the same normalization the server uses.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/franckalain/nutritrack/internal/config"
	"github.com/franckalain/nutritrack/internal/fdc"
	"github.com/franckalain/nutritrack/internal/fooddata"
	"github.com/franckalain/nutritrack/internal/logging"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type options struct {
	configPath string
	baseURL    string
	apiKey     string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "foodctl",
		Short: "Look up foods in FoodData Central",
		Long: `foodctl searches FoodData Central and prints normalized food items as JSON.

Examples:
  # Search for foods
  foodctl search greek yogurt --limit 5

  # Fetch one or more foods by id
  foodctl detail 2345 1102644

  # Nutrients for 30 g of a food
  foodctl scale 2345 30`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", config.GetConfigPath(), "path to configuration file")
	root.PersistentFlags().StringVar(&opts.baseURL, "base-url", "", "FoodData Central API base URL (overrides config)")
	root.PersistentFlags().StringVar(&opts.apiKey, "api-key", "", "FoodData Central API key (overrides config)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log requests to stderr")

	root.AddCommand(newSearchCmd(opts), newDetailCmd(opts), newScaleCmd(opts))
	return root
}

func newSearchCmd(opts *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <query>...",
		Short: "Search foods by description",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			query := strings.Join(args, " ")
			items, err := client.Search(cmd.Context(), query, limit)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), items)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of results (default from config)")
	return cmd
}

func newDetailCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "detail <id>...",
		Short: "Fetch foods by FoodData Central id",
		Long:  "Fetch foods by id. Ids that cannot be found are printed as null.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			items, err := client.Details(cmd.Context(), args)
			if err != nil {
				return err
			}
			if len(items) == 1 {
				return printJSON(cmd.OutOrStdout(), items[0])
			}
			return printJSON(cmd.OutOrStdout(), items)
		},
	}
}

func newScaleCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "scale <id> <grams>",
		Short: "Show a food's nutrients for a given weight",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			grams, err := strconv.ParseFloat(args[1], 64)
			if err != nil || grams <= 0 {
				return fmt.Errorf("grams must be a positive number, got %q", args[1])
			}
			client, err := opts.client()
			if err != nil {
				return err
			}
			item, err := client.Detail(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("lookup failed: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), fooddata.ScaleToWeight(item, grams))
		},
	}
}

func (o *options) client() (*fdc.Client, error) {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if o.baseURL != "" {
		cfg.FDC.BaseURL = o.baseURL
	}
	if o.apiKey != "" {
		cfg.FDC.APIKey = o.apiKey
	}

	level := "warn"
	if o.verbose {
		level = "debug"
	}
	logger, err := logging.New(level, "console")
	if err != nil {
		return nil, err
	}

	return fdc.New(fdc.Config{
		BaseURL:   cfg.FDC.BaseURL,
		APIKey:    cfg.FDC.APIKey,
		Timeout:   cfg.FDC.Timeout,
		RateLimit: cfg.FDC.RateLimit,
		Burst:     cfg.FDC.Burst,
		CacheSize: cfg.FDC.CacheSize,
		PageSize:  cfg.FDC.PageSize,
	}, logger, nil)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
