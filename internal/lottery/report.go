package lottery

import (
	"sort"
	"strconv"
	"time"
)

// Column declara uma coluna de relatório para renderizadores (tela, PDF, gráfico).
type Column struct {
	Key   string `json:"key"`
	Title string `json:"title"`
}

var (
	SalesColumns = []Column{
		{Key: "number", Title: "Número"},
		{Key: "day", Title: "Fecha"},
		{Key: "slot", Title: "Sorteo"},
		{Key: "stake", Title: "Monto"},
		{Key: "prize", Title: "Premio"},
		{Key: "last_modified", Title: "Última venta"},
	}
	WinnersColumns = []Column{
		{Key: "day", Title: "Fecha"},
		{Key: "slot", Title: "Sorteo"},
		{Key: "number", Title: "Número ganador"},
		{Key: "stake", Title: "Monto vendido"},
		{Key: "prize", Title: "Premio pagado"},
	}
)

type GroupedSaleRow struct {
	Number       string    `json:"number"`
	Day          string    `json:"day"`
	Slot         string    `json:"slot"`
	Stake        int64     `json:"stake"`
	Prize        int64     `json:"prize"`
	LastModified time.Time `json:"lastModified"`
}

type WinnerRow struct {
	Day    string `json:"day"`
	Slot   string `json:"slot"`
	Number string `json:"number"`
	Stake  int64  `json:"stake"`
	Prize  int64  `json:"prize"`
}

type SalesReport struct {
	Window     Window           `json:"window"`
	Slot       string           `json:"slot,omitempty"`
	Columns    []Column         `json:"columns"`
	Rows       []GroupedSaleRow `json:"rows"`
	TotalStake int64            `json:"totalStake"`
	TotalPrize int64            `json:"totalPrize"`
}

type WinnersReport struct {
	Window     Window      `json:"window"`
	Slot       string      `json:"slot,omitempty"`
	Columns    []Column    `json:"columns"`
	Rows       []WinnerRow `json:"rows"`
	TotalStake int64       `json:"totalStake"`
	TotalPrize int64       `json:"totalPrize"`
}

func NewSalesReport(q Query, rows []GroupedSaleRow) SalesReport {
	if rows == nil {
		rows = []GroupedSaleRow{}
	}
	r := SalesReport{Window: q.Window, Slot: q.Slot, Columns: SalesColumns, Rows: rows}
	for _, row := range rows {
		r.TotalStake += row.Stake
		r.TotalPrize += row.Prize
	}
	return r
}

func NewWinnersReport(q Query, rows []WinnerRow) WinnersReport {
	if rows == nil {
		rows = []WinnerRow{}
	}
	r := WinnersReport{Window: q.Window, Slot: q.Slot, Columns: WinnersColumns, Rows: rows}
	for _, row := range rows {
		r.TotalStake += row.Stake
		r.TotalPrize += row.Prize
	}
	return r
}

// Records achata as linhas na ordem de SalesColumns.
func (r SalesReport) Records() [][]string {
	out := make([][]string, 0, len(r.Rows))
	for _, row := range r.Rows {
		out = append(out, []string{
			row.Number,
			row.Day,
			row.Slot,
			strconv.FormatInt(row.Stake, 10),
			strconv.FormatInt(row.Prize, 10),
			row.LastModified.Format("2006-01-02 15:04:05"),
		})
	}
	return out
}

// Records achata as linhas na ordem de WinnersColumns.
func (r WinnersReport) Records() [][]string {
	out := make([][]string, 0, len(r.Rows))
	for _, row := range r.Rows {
		out = append(out, []string{
			row.Day,
			row.Slot,
			row.Number,
			strconv.FormatInt(row.Stake, 10),
			strconv.FormatInt(row.Prize, 10),
		})
	}
	return out
}

// SortByPrize é a ordem do resumo diário: prêmio desc, depois número.
func SortByPrize(rows []GroupedSaleRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Prize != rows[j].Prize {
			return rows[i].Prize > rows[j].Prize
		}
		return rows[i].Number < rows[j].Number
	})
}

// MostSold escolhe o número com mais registros; empate vai para maior stake, depois menor número.
func MostSold(rows []GroupedSaleRow) *NumberTotal {
	if len(rows) == 0 {
		return nil
	}
	acc := map[string]*NumberTotal{}
	for _, r := range rows {
		t, ok := acc[r.Number]
		if !ok {
			t = &NumberTotal{Number: r.Number}
			acc[r.Number] = t
		}
		t.Records++
		t.Stake += r.Stake
	}
	var best *NumberTotal
	for _, t := range acc {
		if best == nil ||
			t.Records > best.Records ||
			(t.Records == best.Records && t.Stake > best.Stake) ||
			(t.Records == best.Records && t.Stake == best.Stake && t.Number < best.Number) {
			best = t
		}
	}
	out := *best
	return &out
}
