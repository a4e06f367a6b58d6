package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mchalk/txncat/internal/classifier"
	"github.com/mchalk/txncat/internal/cli"
	"github.com/mchalk/txncat/internal/config"
)

func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify [description]",
		Short: "Classify a transaction description locally",
		Long: `Classify a transaction description with the local model.

Examples:
  txncat classify "STARBUCKS #1234 SEATTLE"
  txncat classify --type expense "STARBUCKS #1234 SEATTLE"
  txncat classify --file descriptions.txt`,
		Args: cobra.MaximumNArgs(1),
		RunE: runClassifyCmd,
	}

	cmd.Flags().StringP("type", "t", "", "transaction type hint (income, expense, expenses)")
	cmd.Flags().StringP("file", "f", "", "classify one description per line from a file")

	_ = viper.BindPFlag("classify.type", cmd.Flags().Lookup("type"))
	_ = viper.BindPFlag("classify.file", cmd.Flags().Lookup("file"))

	return cmd
}

func runClassifyCmd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	clf, cleanup, err := buildClassifier(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	txnType := viper.GetString("classify.type")

	if file := viper.GetString("classify.file"); file != "" {
		return classifyFile(ctx, clf, config.ExpandPath(file), txnType)
	}

	if len(args) == 0 {
		return fmt.Errorf("provide a description argument or --file")
	}

	result, err := clf.Classify(ctx, classifier.Request{Text: args[0], Type: txnType})
	if err != nil {
		return fmt.Errorf("classification failed: %w", err)
	}

	content := fmt.Sprintf("%s %s\nconfidence: %.1f%%",
		cli.LabelStyle.Render(result.LabelName),
		cli.SubtleStyle.Render(fmt.Sprintf("(label %d)", result.LabelID)),
		result.Score*100)
	fmt.Println(cli.RenderBox("Classification", content))

	return nil
}

func classifyFile(ctx context.Context, clf *classifier.Classifier, path, txnType string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	var lines []string
	for _, line := range strings.Split(string(raw), "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return fmt.Errorf("no descriptions found in %s", path)
	}

	bar := progressbar.NewOptions(len(lines),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Classifying transactions...[reset]"),
	)

	type classified struct {
		text   string
		result classifier.Result
	}
	rows := make([]classified, 0, len(lines))

	for _, line := range lines {
		result, classifyErr := clf.Classify(ctx, classifier.Request{Text: line, Type: txnType})
		if classifyErr != nil {
			return fmt.Errorf("failed to classify %q: %w", line, classifyErr)
		}
		rows = append(rows, classified{text: line, result: result})
		_ = bar.Add(1)
	}
	fmt.Fprintln(os.Stderr)

	for _, row := range rows {
		fmt.Printf("%s\t%s\t%.4f\n", strings.TrimSpace(row.text), row.result.LabelName, row.result.Score)
	}

	return nil
}
