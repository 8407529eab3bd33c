package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"regata_go/internal/config"
	"regata_go/internal/server"
	"regata_go/pkg/logger"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "arquivo de configuração YAML")
	logDir := flag.String("logs", filepath.Join(".", "logs"), "diretório dos arquivos de log (vazio desativa)")
	flag.Parse()

	logger.Init()
	if *logDir != "" {
		if err := logger.EnableFileLogging(*logDir, "regata"); err != nil {
			logger.Warnf("Logging em arquivo indisponível: %v", err)
		}
	}
	defer logger.Sync()

	displayBanner()

	logger.Info("Iniciando Regata Telemetry")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("Erro ao carregar configurações", err)
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Warnf("%v, usando INFO", err)
	}
	logger.SetLevel(level)

	if cfg.Feed.Disabled {
		logger.Info("Configuração carregada: feeds desativados (modo offline)")
	} else {
		logger.Infof("Configuração carregada: Redis em %s:%d, prefixo %s",
			cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Prefix)
	}
	logger.Infof("Voltas: %d, histórico máximo: %d quadros", cfg.Course.Laps, cfg.Replay.MaxFrames)

	srv, err := server.NewServer(cfg)
	if err != nil {
		logger.Fatal("Erro ao criar servidor", err)
	}

	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Erro ao iniciar o servidor", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Desligando servidor...")

	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Erro durante o shutdown do servidor", err)
	}

	logger.Info("Servidor encerrado com sucesso")
}

// displayBanner exibe um banner de inicialização
func displayBanner() {
	banner := `
  ____                        _
 |  _ \ ___  __ _  __ _| |_ __ _
 | |_) / _ \/ _' |/ _' | __/ _' |
 |  _ <  __/ (_| | (_| | || (_| |
 |_| \_\___|\__, |\__,_|\__\__,_|   TELEMETRY v1.0
            |___/
 `
	fmt.Println(banner)
	fmt.Printf("Iniciando em %s\n\n", time.Now().Format("2006-01-02 15:04:05"))
}
