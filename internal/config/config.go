package config

import (
	"os"
	"strconv"
)

type Config struct {
	Addr    string
	DataDir string

	// AI provider
	AIProvider           string
	OllamaBaseURL        string
	OllamaModel          string
	OllamaEmbeddingModel string
	OpenAIAPIKey         string
	OpenAIModel          string
	OpenAIEmbeddingModel string

	// RAG
	ChunkSize         int
	ChunkOverlap      int
	RetrieveTopK      int
	ChatHistoryWindow int
	MaxUploadBytes    int64

	SystemPrompt string
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func Load() Config {
	maxUpload := int64(envInt("MAX_UPLOAD_BYTES", 10*1024*1024))
	if maxUpload <= 0 {
		maxUpload = 10 * 1024 * 1024
	}

	return Config{
		Addr:    envStr("ADDR", ":8000"),
		DataDir: envStr("DATA_DIR", "./data"),

		AIProvider:           envStr("AI_PROVIDER", "ollama"),
		OllamaBaseURL:        envStr("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:          envStr("OLLAMA_MODEL", "qwen3-coder:480b-cloud"),
		OllamaEmbeddingModel: envStr("EMBEDDING_MODEL", "nomic-embed-text"),
		OpenAIAPIKey:         os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:          envStr("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIEmbeddingModel: envStr("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),

		ChunkSize:         envInt("CHUNK_SIZE", 1000),
		ChunkOverlap:      envInt("CHUNK_OVERLAP", 200),
		RetrieveTopK:      envInt("RAG_TOP_K", 3),
		ChatHistoryWindow: envInt("CHAT_HISTORY_WINDOW", 10),
		MaxUploadBytes:    maxUpload,

		SystemPrompt: envStr("SYSTEM_PROMPT", "You are Ace AI, a helpful assistant. Answer concisely and truthfully."),
	}
}
