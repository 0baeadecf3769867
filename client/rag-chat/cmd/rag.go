package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var uploadCmd = &cobra.Command{
	Use:   "upload [file-path]",
	Short: "Upload a DOCX file to the DocQA service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		msg, err := newClient().Upload(cmd.Context(), args[0], indexName)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), msg)
		return nil
	},
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about the uploaded document",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return answer(cmd, strings.Join(args, " "), 0)
	},
}

var indexesCmd = &cobra.Command{
	Use:   "indexes",
	Short: "List the available indexes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := newClient().ListIndexes(cmd.Context())
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No indexes available.")
			return nil
		}
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(indexesCmd)
}

// answer 打印问题的回答。非流式模式下按词输出，delay 为每个词之间的停顿。
func answer(cmd *cobra.Command, question string, delay time.Duration) error {
	out := cmd.OutOrStdout()
	client := newClient()

	if stream {
		err := client.AskStream(cmd.Context(), question, topK, indexName, func(token string) {
			fmt.Fprint(out, token)
		})
		fmt.Fprintln(out)
		return err
	}

	text, err := client.Ask(cmd.Context(), question, topK, indexName)
	if err != nil {
		return err
	}
	for i, word := range strings.Fields(text) {
		if i > 0 {
			fmt.Fprint(out, " ")
		}
		fmt.Fprint(out, word)
		if delay > 0 {
			time.Sleep(delay)
		}
	}
	fmt.Fprintln(out)
	return nil
}
