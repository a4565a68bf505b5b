package lottery

import "time"

// Bet é o registro consolidado de um número num sorteio de um dia.
type Bet struct {
	ID           int64     `json:"id"`
	Number       string    `json:"number"`
	Stake        int64     `json:"stake"`
	Prize        int64     `json:"prize"`
	LastModified time.Time `json:"lastModified"`
	Slot         string    `json:"slot"`
	Day          string    `json:"day"`
}

// Sale é a entrada já validada de uma venda.
type Sale struct {
	Number string
	Stake  int64
	Slot   string
	Day    string
	At     time.Time
}

// SaleOutcome distingue a criação de um registro do merge num registro existente.
type SaleOutcome struct {
	Created bool `json:"created"`
	Bet     Bet  `json:"bet"`
}

type DrawResult struct {
	Day    string `json:"day"`
	Slot   string `json:"slot"`
	Number string `json:"number"`
}

// Settings é o snapshot da configuração singleton.
type Settings struct {
	CredentialHash *string     `json:"-"`
	Policy         PrizePolicy `json:"policy"`
	MinStake       int64       `json:"minStake"`
	Theme          string      `json:"theme"`
}

func (s Settings) LoginRequired() bool { return s.CredentialHash != nil }

// NumberStats agrega o histórico completo de um número.
type NumberStats struct {
	Number     string     `json:"number"`
	Records    int64      `json:"records"`
	TotalStake int64      `json:"totalStake"`
	TotalPrize int64      `json:"totalPrize"`
	LastSale   *time.Time `json:"lastSale,omitempty"`
	TimesWon   int64      `json:"timesWon"`
}

type NumberTotal struct {
	Number  string `json:"number"`
	Records int64  `json:"records"`
	Stake   int64  `json:"stake"`
}

type SlotTotal struct {
	Slot  string `json:"slot"`
	Stake int64  `json:"stake"`
}

// SlotPayout compara o apostado com o pago (prêmio dos números vencedores).
type SlotPayout struct {
	Slot  string `json:"slot"`
	Stake int64  `json:"stake"`
	Paid  int64  `json:"paid"`
}

// DailySummary é o resumo do dia corrente.
type DailySummary struct {
	Day        string           `json:"day"`
	Records    int64            `json:"records"`
	TotalStake int64            `json:"totalStake"`
	TotalPrize int64            `json:"totalPrize"`
	MostSold   *NumberTotal     `json:"mostSold,omitempty"`
	Rows       []GroupedSaleRow `json:"rows"`
}
