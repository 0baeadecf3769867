package cmd

import (
	"fmt"
	"os"
	"time"

	"DocQA/client/rag-chat/ragclient"
	httpclient "DocQA/backend/go/pkg/http"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const defaultBackendURL = "http://localhost:8000"

var (
	backendURL string
	indexName  string
	topK       int
	stream     bool
	timeout    time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "rag-chat",
	Short: "A CLI client to chat with documents through the DocQA service",
	Long:  `A command-line interface for uploading DOCX files to the DocQA service and asking questions about them.`,
	// 不带子命令时进入交互式对话。
	RunE: func(cmd *cobra.Command, args []string) error {
		return chatCmd.RunE(cmd, args)
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Whoops. There was an error while executing your CLI: %s\n", err)
		os.Exit(1)
	}
}

func init() {
	_ = godotenv.Load()

	defaultURL := os.Getenv("RAG_BACKEND_URL")
	if defaultURL == "" {
		defaultURL = defaultBackendURL
	}

	rootCmd.PersistentFlags().StringVar(&backendURL, "backend", defaultURL, "DocQA backend URL (env RAG_BACKEND_URL)")
	rootCmd.PersistentFlags().StringVar(&indexName, "index", "", "index to upload to or ask against")
	rootCmd.PersistentFlags().IntVar(&topK, "top-k", 5, "number of chunks used as context")
	rootCmd.PersistentFlags().BoolVar(&stream, "stream", false, "stream answers token by token")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Minute, "request timeout, 0 for none")
}

func newClient() *ragclient.Client {
	t := timeout
	if stream {
		// 流式响应的总时长由服务端决定
		t = 0
	}
	return ragclient.New(backendURL, httpclient.NewClient(t))
}
