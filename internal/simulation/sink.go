package simulation

import (
	"context"

	"regata_go/internal/models"
	"regata_go/internal/redis"
)

// RedisSink escreve os snapshots simulados no feed Redis, exercitando o
// mesmo caminho de notificação usado pelos dispositivos reais
type RedisSink struct {
	service *redis.Service
}

// NewRedisSink cria o destino Redis
func NewRedisSink(service *redis.Service) *RedisSink {
	return &RedisSink{service: service}
}

// PublishDevices grava os relatórios no hash de dispositivos
func (r *RedisSink) PublishDevices(ctx context.Context, devices map[string]models.RawDeviceReport) error {
	return r.service.PutDevices(ctx, devices)
}

// PublishRoom grava a sala da sessão
func (r *RedisSink) PublishRoom(ctx context.Context, room models.RoomRecord) error {
	return r.service.PutRoom(ctx, room)
}
