package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mchalk/txncat/internal/cli"
	"github.com/mchalk/txncat/internal/config"
	"github.com/mchalk/txncat/internal/fina"
)

func categorizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categorize [description]...",
		Short: "Categorize transactions through the Fina API",
		Long: `Send transaction descriptions to the Fina categorization API and print the
relayed response.

Examples:
  txncat categorize "UBER TRIP" "WHOLE FOODS MARKET"
  txncat categorize --model v1 "UBER TRIP"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runCategorizeCmd,
	}

	cmd.Flags().String("model", "", "categorization model version (default v3)")
	cmd.Flags().Bool("no-mapping", false, "disable category id-to-name mapping upstream")

	_ = viper.BindPFlag("categorize.model", cmd.Flags().Lookup("model"))
	_ = viper.BindPFlag("categorize.no_mapping", cmd.Flags().Lookup("no-mapping"))

	return cmd
}

func runCategorizeCmd(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	items := make([]fina.Item, len(args))
	for i, name := range args {
		items[i] = fina.Item{Name: name}
	}

	req := fina.Request{
		Items: items,
		Model: viper.GetString("categorize.model"),
	}
	if viper.GetBool("categorize.no_mapping") {
		mapping := false
		req.Mapping = &mapping
	}

	result, err := newCategorizer(cfg).Categorize(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("categorization failed: %w", err)
	}

	if result.Error != "" {
		fmt.Println(cli.FormatError(fmt.Sprintf("upstream error (status %d): %s", result.Status, result.Error)))
		return nil
	}

	out, err := json.MarshalIndent(result.Categories, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render categories: %w", err)
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Categorized %d transactions", len(items))))
	fmt.Println(string(out))

	return nil
}
