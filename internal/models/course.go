package models

// PointType é o tipo de um ponto do percurso
type PointType string

const (
	PointPin  PointType = "pin"
	PointBoat PointType = "boat"
	PointMark PointType = "mark"
	PointGate PointType = "gate"
)

// CoursePoint é um ponto do percurso derivado de um marcador
type CoursePoint struct {
	ID    string    `json:"id"`
	Label string    `json:"label"`
	Lat   float64   `json:"lat"`
	Lon   float64   `json:"lon"`
	Type  PointType `json:"type"`
	Color string    `json:"color"`
}

// FinishLineTarget é o alvo sentinela da última perna na sequência de navegação
const FinishLineTarget = "finish-line"

// CourseData é o percurso estruturado
type CourseData struct {
	StartLine      [2]CoursePoint  `json:"startLine"`
	FinishLine     [2]CoursePoint  `json:"finishLine"`
	SemiFinishLine *[2]CoursePoint `json:"semiFinishLine,omitempty"`
	Marks          []CoursePoint   `json:"marks"`
	Sequence       []string        `json:"sequence"`
}
