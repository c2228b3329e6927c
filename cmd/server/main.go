package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/acelabs/aceai/internal/ai"
	"github.com/acelabs/aceai/internal/chat"
	"github.com/acelabs/aceai/internal/chatstore"
	"github.com/acelabs/aceai/internal/config"
	"github.com/acelabs/aceai/internal/httpapi"
	"github.com/acelabs/aceai/internal/httpapi/handlers"
	"github.com/acelabs/aceai/internal/index"
	"github.com/acelabs/aceai/internal/keystore"
)

const bootstrapKeyFile = "initial_superadmin_key.txt"

func openDB(path string) *gorm.DB {
	db, err := gorm.Open(gormsqlite.Open(path), &gorm.Config{})
	if err != nil {
		log.Fatalf("open %s: %v", path, err)
	}
	return db
}

func buildRegistry(cfg config.Config) *ai.Registry {
	reg := ai.NewRegistry()

	ollama := ai.NewOllamaProvider(cfg.OllamaBaseURL, cfg.OllamaModel, cfg.OllamaEmbeddingModel)
	reg.Register("ollama", ai.Backend{Provider: ollama, Embedder: ollama})

	if cfg.OpenAIAPIKey != "" {
		oa, err := ai.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIEmbeddingModel)
		if err != nil {
			log.Fatalf("openai provider: %v", err)
		}
		reg.Register("openai", ai.Backend{Provider: oa, Embedder: oa})
	}
	return reg
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("create data dir: %v", err)
	}

	keys, err := keystore.NewStore(openDB(filepath.Join(cfg.DataDir, "api_keys.db")))
	if err != nil {
		log.Fatalf("key store: %v", err)
	}
	sessions, err := chatstore.NewStore(openDB(filepath.Join(cfg.DataDir, "chat.db")))
	if err != nil {
		log.Fatalf("chat store: %v", err)
	}

	backend, err := buildRegistry(cfg).Get(cfg.AIProvider)
	if err != nil {
		log.Fatalf("ai backend: %v", err)
	}

	ix, err := index.New(openDB(filepath.Join(cfg.DataDir, "vectors.db")), backend.Embedder)
	if err != nil {
		log.Fatalf("document index: %v", err)
	}

	// first start mints a super admin key for out-of-band pickup
	plaintext, err := keys.BootstrapSuperAdmin(context.Background())
	if err != nil {
		log.Fatalf("bootstrap super admin: %v", err)
	}
	if plaintext != "" {
		path := filepath.Join(cfg.DataDir, bootstrapKeyFile)
		if err := os.WriteFile(path, []byte(plaintext+"\n"), 0o600); err != nil {
			log.Fatalf("write bootstrap key: %v", err)
		}
		log.Printf("[bootstrap] super admin api key generated, stored at %s", path)
	}

	chatSvc := chat.NewService(sessions, ix, backend.Provider,
		cfg.ChatHistoryWindow, cfg.RetrieveTopK, cfg.SystemPrompt)

	h := handlers.NewHandler(cfg, keys, sessions, ix, chatSvc)
	router := httpapi.NewRouter(h, keys)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("server listening on %s (provider=%s)", cfg.Addr, cfg.AIProvider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
