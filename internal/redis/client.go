package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"regata_go/internal/config"
	"regata_go/pkg/logger"
)

// Client encapsula a conexão com o Redis e o esquema de chaves da regata
type Client struct {
	client *redis.Client
	prefix string
	config config.RedisConfig
}

// NewClient cria um novo cliente Redis. A conexão só é testada em Connect.
func NewClient(cfg config.RedisConfig) *Client {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &Client{
		client: redisClient,
		prefix: cfg.Prefix,
		config: cfg,
	}
}

// NewClientFrom embrulha um *redis.Client existente (testes, ferramentas)
func NewClientFrom(client *redis.Client, prefix string) *Client {
	return &Client{client: client, prefix: prefix}
}

// Connect testa a conexão com ping
func (c *Client) Connect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := c.client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("erro ao conectar ao Redis: %w", err)
	}

	logger.Infof("Conexão estabelecida com Redis em %s", c.client.Options().Addr)
	return nil
}

// Ping verifica se o Redis responde
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return c.client.Ping(ctx).Err()
}

// Close fecha a conexão com o Redis
func (c *Client) Close() error {
	if err := c.client.Close(); err != nil {
		return fmt.Errorf("erro ao fechar conexão Redis: %w", err)
	}
	logger.Info("Conexão com Redis fechada")
	return nil
}

// GetClient retorna o cliente Redis subjacente
func (c *Client) GetClient() *redis.Client {
	return c.client
}

// GetPrefix retorna o prefixo utilizado para chaves
func (c *Client) GetPrefix() string {
	return c.prefix
}

// FormatKey formata uma chave com o prefixo configurado
func (c *Client) FormatKey(key string) string {
	return fmt.Sprintf("%s:%s", c.prefix, key)
}

// RoomsKey é o hash id → RoomRecord JSON
func (c *Client) RoomsKey() string { return c.FormatKey("rooms") }

// DevicesKey é o hash id → RawDeviceReport JSON
func (c *Client) DevicesKey() string { return c.FormatKey("devices") }

// RoomsChannel recebe uma notificação a cada mudança nas salas
func (c *Client) RoomsChannel() string { return c.FormatKey("rooms:changed") }

// DevicesChannel recebe uma notificação a cada mudança nos dispositivos
func (c *Client) DevicesChannel() string { return c.FormatKey("devices:changed") }

// HGetAll lê um hash inteiro
func (c *Client) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	values, err := c.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("erro ao ler hash %s: %w", key, err)
	}
	return values, nil
}

// HSetAndNotify grava um campo e publica a notificação na mesma pipeline
func (c *Client) HSetAndNotify(ctx context.Context, key, field string, value interface{}, channel string) error {
	pipe := c.client.Pipeline()
	pipe.HSet(ctx, key, field, value)
	pipe.Publish(ctx, channel, field)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("erro ao gravar %s/%s: %w", key, field, err)
	}
	return nil
}

// HDelAndNotify remove um campo e publica a notificação
func (c *Client) HDelAndNotify(ctx context.Context, key, field, channel string) error {
	pipe := c.client.Pipeline()
	pipe.HDel(ctx, key, field)
	pipe.Publish(ctx, channel, field)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("erro ao remover %s/%s: %w", key, field, err)
	}
	return nil
}

// DelAndNotify remove a chave inteira e publica a notificação
func (c *Client) DelAndNotify(ctx context.Context, key, channel string) error {
	pipe := c.client.Pipeline()
	pipe.Del(ctx, key)
	pipe.Publish(ctx, channel, "*")
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("erro ao limpar %s: %w", key, err)
	}
	return nil
}

// Subscribe assina os canais e espera a confirmação do servidor
func (c *Client) Subscribe(ctx context.Context, channels ...string) (*redis.PubSub, error) {
	pubsub := c.client.Subscribe(ctx, channels...)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("erro ao assinar %v: %w", channels, err)
	}
	return pubsub, nil
}
