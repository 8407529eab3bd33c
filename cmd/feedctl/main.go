// feedctl escreve e observa os registros de salas e dispositivos no Redis,
// usando o mesmo esquema de chaves e notificações consumido pelo servidor.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"regata_go/internal/config"
	"regata_go/internal/models"
	"regata_go/internal/redis"
	"regata_go/pkg/logger"
	"regata_go/pkg/utils"
)

const usage = `uso: feedctl [-config arquivo] <comando> [opções]

comandos:
  room           grava uma sala (-id, -name, -devices a,b,c, -created ms)
  delete-room    remove uma sala (-id)
  device         grava um dispositivo (-id, -lat, -lon, -speed, -heading, -role, -team, -room)
  delete-device  remove um dispositivo (-id)
  load           grava um arquivo JSON {id: relatório} de uma vez (-file)
  clear          apaga todos os dispositivos (os consumidores limpam a exibição)
  watch          imprime os snapshots recebidos até Ctrl+C
  keys           mostra o esquema de chaves usado
`

func main() {
	logger.Init()

	configPath := flag.String("config", config.DefaultPath, "arquivo de configuração YAML")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatalf("Erro ao carregar configurações: %v", err)
	}

	client := redis.NewClient(cfg.Redis)
	defer client.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if flag.Arg(0) == "keys" {
		printKeys(client)
		return
	}

	if err := client.Connect(ctx); err != nil {
		fatalf("Redis indisponível: %v", err)
	}
	service := redis.NewService(client, cfg.Feed)

	if err := run(ctx, service, flag.Arg(0), flag.Args()[1:]); err != nil {
		fatalf("%s: %v", flag.Arg(0), err)
	}
}

func run(ctx context.Context, service *redis.Service, command string, args []string) error {
	fs := flag.NewFlagSet(command, flag.ExitOnError)
	id := fs.String("id", "", "id do registro")

	switch command {
	case "room":
		name := fs.String("name", "", "nome da regata")
		devices := fs.String("devices", "", "lista estrita de dispositivos (separados por vírgula); vazio = sem lista")
		created := fs.Int64("created", 0, "createdAt em ms (padrão: agora)")
		fs.Parse(args)

		room := models.RoomRecord{ID: *id, Name: *name, CreatedAt: *created}
		if room.CreatedAt == 0 {
			room.CreatedAt = utils.UnixMillis(time.Now())
		}
		if *devices != "" {
			room.Devices = models.AssignedDevices(strings.Split(*devices, ","))
		}
		if err := service.PutRoom(ctx, room); err != nil {
			return err
		}
		logger.Infof("Sala %s gravada (%q, %d dispositivos)", room.ID, room.Name, len(room.Devices))

	case "delete-room":
		fs.Parse(args)
		if *id == "" {
			return fmt.Errorf("-id obrigatório")
		}
		if err := service.DeleteRoom(ctx, *id); err != nil {
			return err
		}
		logger.Infof("Sala %s removida", *id)

	case "device":
		lat := fs.Float64("lat", 0, "latitude")
		lon := fs.Float64("lon", 0, "longitude")
		speed := fs.Float64("speed", 0, "velocidade")
		heading := fs.Float64("heading", 0, "rumo (graus, 0 = desconhecido)")
		role := fs.String("role", "", "papel (vazio = racing_boat)")
		team := fs.String("team", "", "equipe")
		room := fs.String("room", "", "tag de sala do dispositivo")
		fs.Parse(args)
		if *id == "" {
			return fmt.Errorf("-id obrigatório")
		}

		report := models.RawDeviceReport{
			ID:        *id,
			Lat:       utils.Float64Ptr(*lat),
			Lon:       utils.Float64Ptr(*lon),
			Speed:     utils.Float64Ptr(*speed),
			Heading:   utils.Float64Ptr(*heading),
			Role:      *role,
			TeamID:    *team,
			RoomID:    *room,
			Timestamp: utils.Int64Ptr(utils.UnixMillis(time.Now())),
		}
		if err := service.PutDevice(ctx, *id, report); err != nil {
			return err
		}
		logger.Infof("Dispositivo %s gravado em %.6f, %.6f", *id, *lat, *lon)

	case "delete-device":
		fs.Parse(args)
		if *id == "" {
			return fmt.Errorf("-id obrigatório")
		}
		if err := service.DeleteDevice(ctx, *id); err != nil {
			return err
		}
		logger.Infof("Dispositivo %s removido", *id)

	case "load":
		file := fs.String("file", "", "arquivo JSON com o mapa id → relatório")
		fs.Parse(args)
		devices, err := readDevices(*file)
		if err != nil {
			return err
		}
		if err := service.PutDevices(ctx, devices); err != nil {
			return err
		}
		logger.Infof("%d dispositivos gravados de %s", len(devices), *file)

	case "clear":
		fs.Parse(args)
		if err := service.ClearDevices(ctx); err != nil {
			return err
		}
		logger.Info("Dispositivos apagados")

	case "watch":
		fs.Parse(args)
		watch(ctx, service)

	default:
		return fmt.Errorf("comando desconhecido (veja -h)")
	}
	return nil
}

func readDevices(path string) (map[string]models.RawDeviceReport, error) {
	if path == "" {
		return nil, fmt.Errorf("-file obrigatório")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("erro ao ler %s: %w", path, err)
	}
	var devices map[string]models.RawDeviceReport
	if err := json.Unmarshal(data, &devices); err != nil {
		return nil, fmt.Errorf("erro ao interpretar %s: %w", path, err)
	}
	for id, d := range devices {
		d.ID = id
		devices[id] = d
	}
	return devices, nil
}

// watch assina os dois feeds e imprime um resumo de cada snapshot
func watch(ctx context.Context, service *redis.Service) {
	service.Start(ctx, redis.Handlers{
		Rooms: func(_ context.Context, rooms map[string]models.RoomRecord) {
			ids := make([]string, 0, len(rooms))
			for id, r := range rooms {
				ids = append(ids, fmt.Sprintf("%s(%q)", id, r.Name))
			}
			sort.Strings(ids)
			logger.Infof("salas: %d %v", len(rooms), ids)
		},
		Devices: func(_ context.Context, devices map[string]models.RawDeviceReport) {
			if devices == nil {
				logger.Info("dispositivos: limpeza")
				return
			}
			counts := map[models.UnitClass]int{}
			for _, d := range devices {
				counts[models.Classify(d.Role)]++
			}
			logger.Infof("dispositivos: %d barcos, %d marcadores",
				counts[models.ClassRacing], counts[models.ClassMarker])
		},
		Status: func(status models.FeedStatus) {
			logger.Infof("feed: conectado=%v desatualizado=%v", status.Connected, status.Stale)
		},
	})
	logger.Info("Observando feeds. Pressione Ctrl+C para interromper.")
	<-ctx.Done()
	service.Stop()
}

func printKeys(client *redis.Client) {
	fmt.Println("\n=== Esquema de chaves do feed ===")
	fmt.Printf("1. Salas (hash id → JSON):         %s\n", client.RoomsKey())
	fmt.Printf("2. Dispositivos (hash id → JSON):  %s\n", client.DevicesKey())
	fmt.Printf("3. Notificação de salas:           %s\n", client.RoomsChannel())
	fmt.Printf("4. Notificação de dispositivos:    %s\n", client.DevicesChannel())
	fmt.Println("=================================")
}

func fatalf(format string, args ...interface{}) {
	logger.Errorf(format, args...)
	os.Exit(1)
}
