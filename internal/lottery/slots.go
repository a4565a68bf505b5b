package lottery

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultSlots reproduz os quatro sorteios diários: label@hora de fechamento.
const DefaultSlots = "11 AM@11,03 PM@15,06 PM@18,09 PM@21"

type Slot struct {
	Label  string `json:"label"`
	Cutoff int    `json:"cutoffHour"`
}

// SlotSet é o conjunto fechado de sorteios; a ordem da lista é a ordem dos relatórios.
type SlotSet struct {
	slots []Slot
}

// ParseSlots lê o formato "label@hora,label@hora".
func ParseSlots(raw string) (SlotSet, error) {
	var out []Slot
	seen := map[string]bool{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		label, hourStr, ok := strings.Cut(part, "@")
		label = strings.TrimSpace(label)
		if !ok || label == "" {
			return SlotSet{}, fmt.Errorf("draw slot %q: want label@hour", part)
		}
		hour, err := strconv.Atoi(strings.TrimSpace(hourStr))
		if err != nil || hour < 0 || hour > 24 {
			return SlotSet{}, fmt.Errorf("draw slot %q: bad cutoff hour", part)
		}
		if seen[label] {
			return SlotSet{}, fmt.Errorf("draw slot %q: duplicated", label)
		}
		seen[label] = true
		out = append(out, Slot{Label: label, Cutoff: hour})
	}
	if len(out) == 0 {
		return SlotSet{}, fmt.Errorf("no draw slots configured")
	}
	return SlotSet{slots: out}, nil
}

func MustParseSlots(raw string) SlotSet {
	s, err := ParseSlots(raw)
	if err != nil {
		panic(err)
	}
	return s
}

func (s SlotSet) All() []Slot {
	out := make([]Slot, len(s.slots))
	copy(out, s.slots)
	return out
}

func (s SlotSet) Labels() []string {
	out := make([]string, 0, len(s.slots))
	for _, sl := range s.slots {
		out = append(out, sl.Label)
	}
	return out
}

func (s SlotSet) Contains(label string) bool {
	return s.Index(label) >= 0
}

// Index devolve -1 para labels desconhecidos.
func (s SlotSet) Index(label string) int {
	for i, sl := range s.slots {
		if sl.Label == label {
			return i
		}
	}
	return -1
}

// Default escolhe o primeiro sorteio ainda aberto; depois do último, fica no último.
func (s SlotSet) Default(now time.Time) string {
	if len(s.slots) == 0 {
		return ""
	}
	for _, sl := range s.slots {
		if sl.Cutoff > now.Hour() {
			return sl.Label
		}
	}
	return s.slots[len(s.slots)-1].Label
}

// Resolve valida um slot de venda/resultado; vazio cai no default.
func (s SlotSet) Resolve(label string, now time.Time) (string, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return s.Default(now), nil
	}
	if !s.Contains(label) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSlot, label)
	}
	return label, nil
}
