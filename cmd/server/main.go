// Package main is the application entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"doc-qa-go/internal/config"
	"doc-qa-go/internal/handler"
	"doc-qa-go/internal/ingest"
	"doc-qa-go/internal/middleware"
	"doc-qa-go/internal/model"
	"doc-qa-go/internal/rag"
	"doc-qa-go/internal/repository"
	"doc-qa-go/internal/service"
	"doc-qa-go/pkg/database"
	"doc-qa-go/pkg/embedding"
	"doc-qa-go/pkg/es"
	"doc-qa-go/pkg/events"
	"doc-qa-go/pkg/llm"
	"doc-qa-go/pkg/log"
	"doc-qa-go/pkg/storage"
	"doc-qa-go/pkg/tika"
)

func main() {
	cfg, err := config.Load("./configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()
	log.Info("logger initialized")

	db, err := database.NewMySQL(cfg.Database.MySQL.DSN)
	if err != nil {
		log.Fatalf("mysql init failed: %v", err)
	}
	if err := db.AutoMigrate(&model.File{}); err != nil {
		log.Fatalf("mysql migration failed: %v", err)
	}

	redisClient, err := database.NewRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	if err != nil {
		log.Fatalf("redis init failed: %v", err)
	}

	objectStore, err := storage.New(cfg.MinIO)
	if err != nil {
		log.Fatalf("minio init failed: %v", err)
	}

	embeddingClient := embedding.NewClient(cfg.Embedding)
	llmClient := llm.NewClient(cfg.LLM)
	tikaClient := tika.NewClient(cfg.Tika.ServerURL)

	index, err := es.New(cfg.Elasticsearch, embeddingClient, cfg.Embedding.Model)
	if err != nil {
		log.Fatalf("elasticsearch init failed: %v", err)
	}
	if err := index.EnsureIndex(context.Background()); err != nil {
		log.Fatalf("index setup failed: %v", err)
	}

	publisher := events.NewPublisher(cfg.Kafka)
	defer publisher.Close()

	fileRepo := repository.NewFileRepository(db)
	conversationRepo := repository.NewConversationRepository(redisClient)

	chunker := ingest.NewChunker(ingest.DefaultChunkSize, ingest.DefaultChunkOverlap)
	selector := ingest.NewSelector(
		ingest.NewPDF(tikaClient, llmClient),
		ingest.NewExcel(tikaClient, chunker),
	)

	reformulator := rag.NewQueryReformulator(llmClient)
	retriever := rag.NewRetriever(index)
	synthesizer := rag.NewAnswerSynthesizer(llmClient)

	uploadService := service.NewUploadService(selector, index, fileRepo, objectStore, publisher, cfg.Upload.MaxFileSizeBytes)
	queryService := service.NewQueryService(reformulator, retriever, synthesizer, conversationRepo)
	fileService := service.NewFileService(fileRepo, index, objectStore, publisher)

	uploadHandler := handler.NewUploadHandler(uploadService)
	queryHandler := handler.NewQueryHandler(queryService)
	fileHandler := handler.NewFileHandler(fileService)

	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())

	apiV1 := r.Group("/api/v1")
	{
		apiV1.POST("/upload", uploadHandler.Upload)
		apiV1.POST("/query", queryHandler.Query)

		files := apiV1.Group("/files")
		{
			files.GET("", fileHandler.ListFiles)
			files.DELETE("/:fileId", fileHandler.DeleteFile)
			files.GET("/:fileId/download", fileHandler.Download)
		}

		apiV1.GET("/conversations/:id", queryHandler.GetTranscript)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server failed: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutdown signal received, stopping server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("http server shutdown failed: %v", err)
	}

	log.Info("server stopped cleanly")
}
