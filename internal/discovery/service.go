// Package discovery anuncia o servidor de telemetria na rede local via mDNS.
package discovery

import (
	"fmt"
	"net"
	"os"
	"sort"
	"sync"

	"github.com/grandcat/zeroconf"

	"regata_go/pkg/logger"
)

const (
	// ServiceDomain é o domínio para descoberta na rede
	ServiceDomain = "local."

	// ServiceType define o tipo de serviço anunciado
	ServiceType = "_regata._tcp"

	// Version vai no registro TXT para que clientes verifiquem compatibilidade
	Version = "1.0"
)

// announcer é a parte do servidor zeroconf usada pelo serviço
type announcer interface {
	SetText(text []string)
	Shutdown()
}

type registerFunc func(instance, service, domain string, port int, text []string) (announcer, error)

func zeroconfRegister(instance, service, domain string, port int, text []string) (announcer, error) {
	server, err := zeroconf.Register(instance, service, domain, port, text, nil)
	if err != nil {
		return nil, err
	}
	return server, nil
}

// Service gerencia o anúncio mDNS do servidor
type Service struct {
	register     registerFunc
	localIP      func() (string, error)
	server       announcer
	mutex        sync.Mutex
	instanceName string
	port         int
	running      bool
	serverIP     string
	meta         map[string]string
}

// NewService cria um serviço de descoberta para a porta HTTP informada
func NewService(port int) *Service {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "regata"
	}

	return &Service{
		register:     zeroconfRegister,
		localIP:      LocalIP,
		port:         port,
		instanceName: fmt.Sprintf("%s-regata", hostname),
		meta: map[string]string{
			"version": Version,
			"ws":      "/ws",
			"api":     "/api",
		},
	}
}

// Start registra o serviço no mDNS
func (s *Service) Start() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.running {
		return nil
	}

	ip, err := s.localIP()
	if err != nil {
		return fmt.Errorf("erro ao obter IP local: %w", err)
	}
	s.serverIP = ip
	s.meta["ip"] = ip

	server, err := s.register(s.instanceName, ServiceType, ServiceDomain, s.port, s.textLocked())
	if err != nil {
		return fmt.Errorf("erro ao registrar serviço de descoberta: %w", err)
	}

	s.server = server
	s.running = true

	logger.Infof("Serviço de descoberta iniciado em %s:%d (mDNS: %s.%s)",
		ip, s.port, s.instanceName, ServiceType)
	return nil
}

// SetRaceName publica o nome da regata ativa no registro TXT ("" remove)
func (s *Service) SetRaceName(name string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.meta["race"] == name {
		return
	}
	if name == "" {
		delete(s.meta, "race")
	} else {
		s.meta["race"] = name
	}

	if s.running && s.server != nil {
		s.server.SetText(s.textLocked())
		logger.Debugf("Registro TXT mDNS atualizado: race=%q", name)
	}
}

// Stop remove o anúncio
func (s *Service) Stop() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.running {
		return
	}

	if s.server != nil {
		s.server.Shutdown()
		s.server = nil
	}
	s.running = false

	logger.Info("Serviço de descoberta parado")
}

// textLocked monta o registro TXT em ordem estável de chaves
func (s *Service) textLocked() []string {
	keys := make([]string, 0, len(s.meta))
	for k := range s.meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	text := make([]string, 0, len(keys))
	for _, k := range keys {
		text = append(text, fmt.Sprintf("%s=%s", k, s.meta[k]))
	}
	return text
}

// GetServerIP retorna o IP anunciado
func (s *Service) GetServerIP() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.serverIP
}

// GetPort retorna a porta do servidor
func (s *Service) GetPort() int {
	return s.port
}

// GetInstanceName retorna o nome da instância do serviço
func (s *Service) GetInstanceName() string {
	return s.instanceName
}

// IsRunning verifica se o serviço está em execução
func (s *Service) IsRunning() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.running
}

// LocalIP devolve o primeiro IPv4 não-loopback da máquina
func LocalIP() (string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", err
	}

	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipnet.IP.To4() != nil {
				return ipnet.IP.String(), nil
			}
		}
	}

	return "", fmt.Errorf("não foi possível determinar o endereço IP local")
}
