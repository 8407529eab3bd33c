package utils

import (
	"fmt"
	"strconv"
	"time"
)

// UnixMillis converte um time.Time para milissegundos Unix (formato usado pelo feed)
func UnixMillis(t time.Time) int64 {
	return t.UnixNano() / int64(time.Millisecond)
}

// FromUnixMillis converte milissegundos Unix para time.Time
func FromUnixMillis(ms int64) time.Time {
	return time.Unix(0, ms*int64(time.Millisecond))
}

// FormatDuration formata uma duração para exibição amigável
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)

	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	} else if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// FormatTimestamp formata um timestamp em milissegundos para exibição
func FormatTimestamp(ms int64) string {
	return FromUnixMillis(ms).Format("2006-01-02 15:04:05.000")
}

// ParseTimestamp interpreta um timestamp em milissegundos, segundos ou RFC3339
// e devolve o valor em milissegundos Unix
func ParseTimestamp(value string) (int64, error) {
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		// Valores grandes já estão em milissegundos
		if n > 1000000000000 || n < -1000000000000 {
			return n, nil
		}
		return n * 1000, nil
	}

	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, value); err == nil {
			return UnixMillis(t), nil
		}
	}

	return 0, fmt.Errorf("formato de timestamp não reconhecido: %s", value)
}
