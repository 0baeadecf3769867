package cmd

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// wordDelay 是非流式回答逐词显示时的停顿。
const wordDelay = 50 * time.Millisecond

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat about the uploaded document",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		in := bufio.NewScanner(cmd.InOrStdin())

		fmt.Fprintln(out, "Hi! How may I help you? (type /upload <file>, /indexes or /quit)")
		for {
			fmt.Fprint(out, "> ")
			if !in.Scan() {
				fmt.Fprintln(out)
				return in.Err()
			}
			line := strings.TrimSpace(in.Text())

			var err error
			switch {
			case line == "":
				continue
			case line == "/quit" || line == "/exit":
				return nil
			case line == "/indexes":
				err = indexesCmd.RunE(cmd, nil)
			case strings.HasPrefix(line, "/upload "):
				err = uploadCmd.RunE(cmd, []string{strings.TrimSpace(strings.TrimPrefix(line, "/upload "))})
			default:
				err = answer(cmd, line, wordDelay)
			}
			if err != nil {
				// 对话中的错误只打印，不退出
				fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
