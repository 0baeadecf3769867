package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"DocQA/backend/go/internal/config"
	"DocQA/backend/go/internal/database/milvus"
	"DocQA/backend/go/internal/embedding"
	"DocQA/backend/go/internal/llm"
	"DocQA/backend/go/internal/rag_service/api"
	"DocQA/backend/go/internal/rag_service/rag/splitters"
	"DocQA/backend/go/internal/rag_service/rag/storages/vectorstore"
	"DocQA/backend/go/internal/rag_service/service"
	httpserver "DocQA/backend/go/pkg/http"
	"DocQA/backend/go/pkg/logger"
	"github.com/sirupsen/logrus"
)

const defaultConfigPath = "config/config.yaml"

func main() {
	// 1. Load Configuration
	// 配置文件路径可以通过 DOCQA_CONFIG 覆盖，文件不存在时只使用环境变量。
	configPath := os.Getenv("DOCQA_CONFIG")
	if configPath == "" {
		configPath = defaultConfigPath
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Init(logrus.InfoLevel)
		logger.New("RAGService").Fatal(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. Initialize Logger
	logger.Init(logger.ParseLevel(cfg.Logger.Level, cfg.App.Debug))
	appLogger := logger.New(cfg.App.Name)
	appLogger.Info("Starting RAG Service...")

	// 3. Initialize Dependencies
	ctx := context.Background()

	store, err := vectorstore.New(ctx, cfg.VectorStore, appLogger)
	if err != nil {
		appLogger.Fatal(fmt.Sprintf("Failed to create vector store: %v", err))
	}
	var healthChecks []api.HealthCheck
	if cfg.VectorStore.Provider == config.ProviderMilvus {
		// vectorstore.New 已经建立了连接，这里取回同一个单例。
		if mc, err := milvus.GetClient(ctx, &cfg.VectorStore.Milvus); err == nil {
			defer mc.Close()
			healthChecks = append(healthChecks, api.HealthCheck{Name: "milvus", Check: mc.HealthCheck})
		}
	}

	embedder, err := embedding.NewEmdModel(ctx, cfg.Embedding, cfg.VectorStore.Pinecone)
	if err != nil {
		appLogger.Fatal(fmt.Sprintf("Failed to create embedding model: %v", err))
	}

	llmClient, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		appLogger.Fatal(fmt.Sprintf("Failed to create LLM client: %v", err))
	}

	splitter, err := splitters.New(cfg.Chunking)
	if err != nil {
		appLogger.Fatal(fmt.Sprintf("Failed to create splitter: %v", err))
	}

	appLogger.WithPayload(map[string]interface{}{
		"vector_store": cfg.VectorStore.Provider,
		"embedding":    cfg.Embedding.Provider + "/" + cfg.Embedding.Model,
		"llm":          cfg.LLM.Provider,
		"chunking":     fmt.Sprintf("%s size=%d overlap=%d", cfg.Chunking.Strategy, cfg.Chunking.ChunkSize, cfg.Chunking.ChunkOverlap),
	}).Info("Dependencies initialized.")

	// 4. Create the RAG Service and HTTP API
	ragService := service.New(cfg.VectorStore, cfg.Embedding, store, splitter, embedder, llmClient, appLogger)

	srv := httpserver.NewServer(cfg, appLogger)
	api.RegisterRoutes(srv.Engine(), api.NewAPI(ragService, appLogger, cfg.Server.MaxUploadBytes, healthChecks...))

	// 5. Start HTTP Server in a goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	// 6. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		if err != nil {
			appLogger.Error(fmt.Sprintf("HTTP server failed: %v", err))
		}
		return
	case <-quit:
	}
	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(fmt.Sprintf("Server forced to shutdown: %v", err))
	}
	appLogger.Info("Server gracefully stopped")
}
