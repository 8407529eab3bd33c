package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

// Level representa o nível de log
type Level int

const (
	// DEBUG nível para mensagens detalhadas de depuração
	DEBUG Level = iota
	// INFO nível para informações gerais
	INFO
	// WARN nível para avisos
	WARN
	// ERROR nível para erros
	ERROR
	// FATAL nível para erros fatais (encerra o programa)
	FATAL
)

var levelPrefixes = map[Level]string{
	DEBUG: "DEBUG",
	INFO:  "INFO ",
	WARN:  "WARN ",
	ERROR: "ERROR",
	FATAL: "FATAL",
}

// sink agrupa os destinos de escrita do logger
type sink struct {
	out     *log.Logger
	err     *log.Logger
	outW    io.Writer
	errW    io.Writer
	outFile io.WriteCloser
	errFile io.WriteCloser
}

var (
	mu          sync.Mutex
	logLevel    = INFO
	timeFormat  = "2006-01-02 15:04:05.000"
	includeFile = true
	current     *sink
)

// Init inicializa o logger com stdout/stderr
func Init() {
	mu.Lock()
	defer mu.Unlock()

	if current != nil {
		return
	}
	current = newSink(os.Stdout, os.Stderr)
}

func newSink(out, errOut io.Writer) *sink {
	return &sink{
		out:  log.New(out, "", 0),
		err:  log.New(errOut, "", 0),
		outW: out,
		errW: errOut,
	}
}

// SetLevel define o nível mínimo de log
func SetLevel(level Level) {
	mu.Lock()
	defer mu.Unlock()
	logLevel = level
}

// GetLevel retorna o nível atual de log
func GetLevel() Level {
	mu.Lock()
	defer mu.Unlock()
	return logLevel
}

// ParseLevel converte o nome de um nível ("debug", "info", ...) em Level
func ParseLevel(name string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return DEBUG, nil
	case "info", "":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	case "fatal":
		return FATAL, nil
	}
	return INFO, fmt.Errorf("nível de log desconhecido: %q", name)
}

// IsDebugEnabled verifica se o nível de debug está habilitado
func IsDebugEnabled() bool {
	return GetLevel() <= DEBUG
}

// SetOutput redireciona todos os níveis para w (usado em testes)
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	current = newSink(w, w)
}

// SetTimeFormat define o formato de timestamp
func SetTimeFormat(format string) {
	mu.Lock()
	defer mu.Unlock()
	timeFormat = format
}

// EnableFileLogging duplica a saída em <logDir>/<prefix>_<data>.log e _error.log
func EnableFileLogging(logDir, prefix string) error {
	mu.Lock()

	if err := os.MkdirAll(logDir, 0755); err != nil {
		mu.Unlock()
		return fmt.Errorf("erro ao criar diretório de log: %w", err)
	}

	stamp := time.Now().Format("20060102_150405")
	if prefix != "" {
		prefix += "_"
	}

	logFile, err := os.OpenFile(filepath.Join(logDir, prefix+stamp+".log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		mu.Unlock()
		return fmt.Errorf("erro ao criar arquivo de log: %w", err)
	}
	errFile, err := os.OpenFile(filepath.Join(logDir, prefix+stamp+"_error.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		logFile.Close()
		mu.Unlock()
		return fmt.Errorf("erro ao criar arquivo de log de erro: %w", err)
	}

	base := current
	if base == nil {
		base = newSink(os.Stdout, os.Stderr)
	}
	closeFiles(base)

	next := newSink(io.MultiWriter(base.outW, logFile), io.MultiWriter(base.errW, errFile))
	next.outW, next.errW = base.outW, base.errW
	next.outFile, next.errFile = logFile, errFile
	current = next
	mu.Unlock()

	Info("Logging em arquivo iniciado")
	return nil
}

// Sync fecha os arquivos de log abertos
func Sync() {
	mu.Lock()
	defer mu.Unlock()

	if current == nil {
		return
	}
	closeFiles(current)
	current = newSink(current.outW, current.errW)
}

func closeFiles(s *sink) {
	if s.outFile != nil {
		s.outFile.Close()
		s.outFile = nil
	}
	if s.errFile != nil {
		s.errFile.Close()
		s.errFile = nil
	}
}

// GetLogger retorna um *log.Logger para bibliotecas que exigem um
func GetLogger() *log.Logger {
	mu.Lock()
	defer mu.Unlock()
	if current == nil {
		return log.New(os.Stdout, "", 0)
	}
	return current.out
}

func logMessage(level Level, format string, args ...interface{}) {
	mu.Lock()
	if level < logLevel {
		mu.Unlock()
		return
	}
	s := current
	stampFormat := timeFormat
	withFile := includeFile
	mu.Unlock()

	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}

	var source string
	if withFile {
		if _, file, line, ok := runtime.Caller(2); ok {
			source = fmt.Sprintf(" [%s:%d]", filepath.Base(file), line)
		}
	}

	stamp := time.Now().Format(stampFormat)
	line := fmt.Sprintf("[%s] %s%s: %s", stamp, levelPrefixes[level], source, msg)

	switch {
	case s == nil:
		fmt.Fprintln(os.Stderr, line)
	case level >= ERROR:
		s.err.Print(line)
	default:
		s.out.Print(line)
	}

	if level == FATAL {
		panic(msg)
	}
}

// Debug escreve mensagem de log com nível DEBUG
func Debug(msg string) { logMessage(DEBUG, "%s", msg) }

// Debugf escreve mensagem formatada com nível DEBUG
func Debugf(format string, args ...interface{}) { logMessage(DEBUG, format, args...) }

// Info escreve mensagem de log com nível INFO
func Info(msg string) { logMessage(INFO, "%s", msg) }

// Infof escreve mensagem formatada com nível INFO
func Infof(format string, args ...interface{}) { logMessage(INFO, format, args...) }

// Warn escreve mensagem de log com nível WARN
func Warn(msg string) { logMessage(WARN, "%s", msg) }

// Warnf escreve mensagem formatada com nível WARN
func Warnf(format string, args ...interface{}) { logMessage(WARN, format, args...) }

// Error escreve mensagem de log com nível ERROR, anexando err se houver
func Error(msg string, err error) {
	if err != nil {
		logMessage(ERROR, "%s: %v", msg, err)
		return
	}
	logMessage(ERROR, "%s", msg)
}

// Errorf escreve mensagem formatada com nível ERROR
func Errorf(format string, args ...interface{}) { logMessage(ERROR, format, args...) }

// Fatal registra a mensagem e entra em pânico
func Fatal(msg string, err error) {
	if err != nil {
		logMessage(FATAL, "%s: %v", msg, err)
		return
	}
	logMessage(FATAL, "%s", msg)
}

// Fatalf registra a mensagem formatada e entra em pânico
func Fatalf(format string, args ...interface{}) { logMessage(FATAL, format, args...) }
