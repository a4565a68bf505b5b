package topics

const (
	// Ledger
	LedgerEvents = "ledger_events"

	// DLQs
	LedgerEventsDLQ = "ledger_events_dlq"

	// Redis Pub/Sub consumido pelo hub WebSocket do pos-service
	LedgerBroadcast = "ledger_broadcast"
)
