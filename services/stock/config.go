package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAPIVersion            = "2025-01"
	defaultInventorySourceSuffix = "-store"
)

// Config reúne a configuração do processo, lida uma única vez na inicialização
type Config struct {
	ServiceName  string
	Port         string
	OTLPEndpoint string
	OTelEnabled  bool
	LogLevel     string

	StoreDomain     string
	StorefrontToken string
	AdminToken      string
	APIVersion      string
	HTTPTimeout     time.Duration

	RedisAddr     string
	RedisPassword string
	LockTTL       time.Duration

	InventorySourceSuffix string
	InventorySourceMap    map[string]string
}

// LoadConfig carrega .env (se existir) e lê as variáveis de ambiente.
// Falha se alguma credencial obrigatória estiver ausente.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServiceName:  getEnv("SERVICE_NAME", "variant-stock-service"),
		Port:         getEnv("PORT", "3000"),
		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		OTelEnabled:  getEnv("OTEL_ENABLED", "true") != "false",
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		StoreDomain:     strings.TrimSpace(os.Getenv("SHOPIFY_STORE_DOMAIN")),
		StorefrontToken: strings.TrimSpace(os.Getenv("SHOPIFY_STOREFRONT_TOKEN")),
		AdminToken:      strings.TrimSpace(os.Getenv("SHOPIFY_ADMIN_TOKEN")),
		APIVersion:      getEnv("SHOPIFY_API_VERSION", defaultAPIVersion),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		InventorySourceSuffix: getEnv("INVENTORY_SOURCE_SUFFIX", defaultInventorySourceSuffix),
	}

	var missing []string
	if cfg.StoreDomain == "" {
		missing = append(missing, "SHOPIFY_STORE_DOMAIN")
	}
	if cfg.StorefrontToken == "" {
		missing = append(missing, "SHOPIFY_STOREFRONT_TOKEN")
	}
	if cfg.AdminToken == "" {
		missing = append(missing, "SHOPIFY_ADMIN_TOKEN")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}

	var err error
	if cfg.HTTPTimeout, err = time.ParseDuration(getEnv("SHOPIFY_HTTP_TIMEOUT", "30s")); err != nil {
		return nil, fmt.Errorf("invalid SHOPIFY_HTTP_TIMEOUT: %w", err)
	}
	if cfg.LockTTL, err = time.ParseDuration(getEnv("LOCK_TTL", "10s")); err != nil {
		return nil, fmt.Errorf("invalid LOCK_TTL: %w", err)
	}
	if cfg.LockTTL < time.Second {
		return nil, fmt.Errorf("invalid LOCK_TTL: must be at least 1s, got %s", cfg.LockTTL)
	}
	if cfg.InventorySourceMap, err = parseInventorySourceMap(os.Getenv("INVENTORY_SOURCE_MAP")); err != nil {
		return nil, err
	}

	return cfg, nil
}

// InventorySourceHandle devolve o handle do produto cujo inventário real
// alimenta o metafield do produto handle
func (c *Config) InventorySourceHandle(handle string) string {
	if source, ok := c.InventorySourceMap[handle]; ok {
		return source
	}
	return handle + c.InventorySourceSuffix
}

// parseInventorySourceMap lê o formato "alvo=origem,alvo2=origem2"
func parseInventorySourceMap(raw string) (map[string]string, error) {
	mapping := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		target, source, ok := strings.Cut(pair, "=")
		target, source = strings.TrimSpace(target), strings.TrimSpace(source)
		if !ok || target == "" || source == "" {
			return nil, fmt.Errorf("invalid INVENTORY_SOURCE_MAP entry %q", pair)
		}
		mapping[target] = source
	}
	return mapping, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
