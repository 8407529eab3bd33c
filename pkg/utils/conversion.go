package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// IsFinite indica se v não é NaN nem infinito
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// FiniteOr devolve o primeiro valor não nulo e finito da lista, ou fallback
func FiniteOr(fallback float64, candidates ...*float64) float64 {
	for _, c := range candidates {
		if c != nil && IsFinite(*c) {
			return *c
		}
	}
	return fallback
}

// FormatFloat formata um float com precisão específica, sem zeros à direita
func FormatFloat(value float64, precision int) string {
	format := "%." + strconv.Itoa(precision) + "f"
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf(format, value), "0"), ".")
}

// Float64Ptr devolve um ponteiro para v
func Float64Ptr(v float64) *float64 {
	return &v
}

// Int64Ptr devolve um ponteiro para v
func Int64Ptr(v int64) *int64 {
	return &v
}
