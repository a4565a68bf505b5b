package ws

// ClientMsg é o que o cliente envia: subscribe | unsubscribe | ping.
// Kind é o tipo de evento (sale.recorded, sale.undone, winner.registered) ou "*" para todos.
type ClientMsg struct {
	Type string `json:"type"`
	Kind string `json:"kind"`
}

// AllKinds assina todos os tipos de evento
const AllKinds = "*"
