package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/pmguide/internal/presentation/graph"
	"github.com/aretw0/pmguide/pkg/knowledge"
	"github.com/spf13/cobra"
)

var kbCmd = &cobra.Command{
	Use:   "kb",
	Short: "Inspect the knowledge base",
}

var kbValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Check a knowledge base file for consistency",
	Long:  `Parses the corpus and reports duplicate ids, dangling step links, cycles and empty sections.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := knowledgePath(cmd, args)
		if err != nil {
			return err
		}
		b, err := knowledge.LoadFile(path)
		if err != nil {
			var verr *knowledge.ValidationError
			if errors.As(err, &verr) {
				for _, p := range verr.Problems {
					cmd.PrintErrln("- "+p)
				}
			}
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Knowledge base is valid! ✅ (%d steps, %d templates, %d faqs)\n",
			len(b.Steps()), len(b.Templates("")), len(b.FAQs()))
		return nil
	},
}

var kbFlowCmd = &cobra.Command{
	Use:   "flow",
	Short: "Print the certification flow as JSON or a Mermaid diagram",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		path, err := knowledgePath(cmd, nil)
		if err != nil {
			return err
		}
		kb := knowledge.Load(path, nil)

		switch format {
		case "mermaid":
			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(kb.Steps(), nil))
			return nil
		case "json":
			data, err := json.MarshalIndent(kb.FlowOverview(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		default:
			return fmt.Errorf("unknown format %q (json, mermaid)", format)
		}
	},
}

var kbFAQCmd = &cobra.Command{
	Use:   "faq <query>",
	Short: "Search the FAQ",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := knowledgePath(cmd, nil)
		if err != nil {
			return err
		}
		faq, ok := knowledge.Load(path, nil).SearchFAQ(strings.Join(args, " "))
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "No matching FAQ entry.")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Q: %s\nA: %s\n", faq.Question, faq.Answer)
		for _, r := range faq.RelatedQuestions {
			fmt.Fprintln(cmd.OutOrStdout(), "  - "+r)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(kbCmd)
	kbCmd.AddCommand(kbValidateCmd)
	kbCmd.AddCommand(kbFlowCmd)
	kbCmd.AddCommand(kbFAQCmd)
	kbFlowCmd.Flags().String("format", "json", "Output format: json or mermaid")
}

func knowledgePath(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return "", err
	}
	return cfg.KnowledgePath, nil
}
