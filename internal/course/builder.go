// Package course monta a geometria do percurso (linhas de largada/chegada,
// boias, portões) e a sequência de navegação a partir dos marcadores.
package course

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"regata_go/internal/geo"
	"regata_go/internal/models"
)

// DefaultLaps é o número de voltas quando nada é configurado
const DefaultLaps = 2

// MaxLaps é o maior número de voltas aceito
const MaxLaps = 20

// Marker é um dispositivo classificado como marcador
type Marker struct {
	ID   string
	Lat  float64
	Lon  float64
	Role string
}

// Papéis reconhecidos; cada ponta aceita a variante antiga do firmware
var (
	startPinRoles       = []string{"start_pin", "start_buoy_left"}
	startBoatRoles      = []string{"start_boat", "start_buoy_right"}
	finishPinRoles      = []string{"finish_pin", "finish_buoy_left"}
	finishBoatRoles     = []string{"finish_boat", "finish_buoy_right"}
	semiFinishPinRoles  = []string{"semi_finish_pin", "semi_finish_left"}
	semiFinishBoatRoles = []string{"semi_finish_boat", "semi_finish_right"}
)

const (
	roleMark1  = "buoy_1"
	roleMark1A = "buoy_1a"
	roleGate4S = "gate_4s"
	roleGate4P = "gate_4p"
)

var (
	buoyRole = regexp.MustCompile(`^buoy_(\d+)([a-z]?)$`)
	gateRole = regexp.MustCompile(`^gate_(\d+)([sp])$`)
)

// Build monta o percurso. Devolve nil quando não há marcadores, o que
// significa "nada para desenhar" e é diferente de um percurso só com placeholders.
func Build(markers map[string]Marker, laps int) *models.CourseData {
	if len(markers) == 0 {
		return nil
	}
	if laps < 1 {
		laps = 1
	}
	if laps > MaxLaps {
		laps = MaxLaps
	}

	sorted := sortedMarkers(markers)
	find := func(roles ...string) *Marker {
		for i := range sorted {
			for _, r := range roles {
				if sorted[i].Role == r {
					return &sorted[i]
				}
			}
		}
		return nil
	}

	data := &models.CourseData{
		StartLine: [2]models.CoursePoint{
			pointOr(find(startPinRoles...), "Start Pin", models.PointPin, "orange", "s1", "Start Left"),
			pointOr(find(startBoatRoles...), "Start Boat", models.PointBoat, "green", "s2", "Start Right"),
		},
		FinishLine: [2]models.CoursePoint{
			pointOr(find(finishPinRoles...), "Finish Pin", models.PointPin, "blue", "f1", "Finish Pin"),
			pointOr(find(finishBoatRoles...), "Finish Boat", models.PointBoat, "blue", "f2", "Finish Boat"),
		},
		Marks:    []models.CoursePoint{},
		Sequence: []string{},
	}

	if pin, boat := find(semiFinishPinRoles...), find(semiFinishBoatRoles...); pin != nil && boat != nil {
		data.SemiFinishLine = &[2]models.CoursePoint{
			toPoint(*pin, "Semi Finish Pin", models.PointPin, "purple"),
			toPoint(*boat, "Semi Finish Boat", models.PointBoat, "purple"),
		}
	}

	m1 := find(roleMark1)
	if m1 != nil {
		data.Marks = append(data.Marks, toPoint(*m1, "1", models.PointMark, "yellow"))
	}
	m1a := find(roleMark1A)
	if m1a != nil {
		data.Marks = append(data.Marks, toPoint(*m1a, "1A", models.PointMark, "orange"))
	}

	var gateID string
	g4s, g4p := find(roleGate4S), find(roleGate4P)
	if g4s != nil {
		data.Marks = append(data.Marks, toPoint(*g4s, "4S", models.PointGate, "green"))
		gateID = g4s.ID
	}
	if g4p != nil {
		data.Marks = append(data.Marks, toPoint(*g4p, "4P", models.PointGate, "green"))
		if gateID == "" {
			gateID = g4p.ID
		}
	}

	extra, extraGate := familyMarks(sorted)
	data.Marks = append(data.Marks, extra...)
	if gateID == "" {
		gateID = extraGate
	}

	if m1 != nil && m1a != nil && gateID != "" {
		data.Sequence = Sequence(m1.ID, m1a.ID, gateID, laps)
	}

	return data
}

// Sequence gera a ordem de alvos barlavento/sotavento: 1 → 1A → portão a cada
// volta, terminando a última volta na linha de chegada
func Sequence(mark1, mark1a, gate string, laps int) []string {
	seq := make([]string, 0, laps*3)
	for i := 0; i < laps; i++ {
		seq = append(seq, mark1, mark1a)
		if i < laps-1 {
			seq = append(seq, gate)
		} else {
			seq = append(seq, models.FinishLineTarget)
		}
	}
	return seq
}

// family agrupa marcadores que compartilham um papel numerado
type family struct {
	role    string
	number  int
	suffix  string
	gate    bool
	members []Marker
}

// familyMarks trata os papéis numerados genéricos (buoy_N, gate_NS/P) que não
// têm regra própria. Devolve os pontos e o id do primeiro portão encontrado.
func familyMarks(sorted []Marker) ([]models.CoursePoint, string) {
	byRole := map[string]*family{}
	for _, m := range sorted {
		switch m.Role {
		case roleMark1, roleMark1A, roleGate4S, roleGate4P:
			continue
		}

		var fam *family
		if sub := buoyRole.FindStringSubmatch(m.Role); sub != nil {
			n, _ := strconv.Atoi(sub[1])
			fam = &family{role: m.Role, number: n, suffix: sub[2]}
		} else if sub := gateRole.FindStringSubmatch(m.Role); sub != nil {
			n, _ := strconv.Atoi(sub[1])
			fam = &family{role: m.Role, number: n, suffix: sub[2], gate: true}
		} else {
			continue
		}

		if existing, ok := byRole[m.Role]; ok {
			fam = existing
		} else {
			byRole[m.Role] = fam
		}
		fam.members = append(fam.members, m)
	}

	families := make([]*family, 0, len(byRole))
	for _, f := range byRole {
		families = append(families, f)
	}
	sort.Slice(families, func(i, j int) bool {
		if families[i].number != families[j].number {
			return families[i].number < families[j].number
		}
		return families[i].suffix < families[j].suffix
	})

	var points []models.CoursePoint
	var gateID string
	for _, f := range families {
		label := strconv.Itoa(f.number) + strings.ToUpper(f.suffix)

		switch {
		case f.gate:
			// gate_NS / gate_NP: um lado de portão por papel
			points = append(points, toPoint(f.members[0], label, models.PointGate, "green"))
			if gateID == "" {
				gateID = f.members[0].ID
			}
		case len(f.members) >= 2:
			// Vários dispositivos no mesmo papel formam um portão: A, B, ...
			for i, m := range f.members {
				points = append(points, toPoint(m, label+sideLabel(i), models.PointGate, "green"))
			}
			if gateID == "" {
				gateID = f.members[0].ID
			}
		default:
			points = append(points, toPoint(f.members[0], label, models.PointMark, "yellow"))
		}
	}
	return points, gateID
}

// sideLabel devolve A, B, ..., Z, AA, AB, ...
func sideLabel(i int) string {
	label := ""
	for i >= 0 {
		label = string(rune('A'+i%26)) + label
		i = i/26 - 1
	}
	return label
}

func sortedMarkers(markers map[string]Marker) []Marker {
	out := make([]Marker, 0, len(markers))
	for id, m := range markers {
		if m.ID == "" {
			m.ID = id
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func toPoint(m Marker, label string, kind models.PointType, color string) models.CoursePoint {
	return models.CoursePoint{
		ID:    m.ID,
		Label: label,
		Lat:   m.Lat,
		Lon:   m.Lon,
		Type:  kind,
		Color: color,
	}
}

// pointOr converte o marcador ou, se ausente, cria um placeholder cinza na origem padrão
func pointOr(m *Marker, label string, kind models.PointType, color, placeholderID, placeholderLabel string) models.CoursePoint {
	if m != nil {
		return toPoint(*m, label, kind, color)
	}
	return models.CoursePoint{
		ID:    placeholderID,
		Label: placeholderLabel,
		Lat:   geo.DefaultOrigin.Lat,
		Lon:   geo.DefaultOrigin.Lon,
		Type:  kind,
		Color: "gray",
	}
}
