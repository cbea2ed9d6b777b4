package xrpl

import (
	"encoding/json"
	"time"
)

// dropsPerXRP converts ledger-native drops to display XRP.
const dropsPerXRP = 1_000_000

// Transaction is the subset of an XRPL transaction the bot looks at. Amount
// stays raw because issued-currency payments encode it as an object; only
// string amounts (XRP drops) qualify.
type Transaction struct {
	TransactionType string          `json:"TransactionType"`
	Destination     string          `json:"Destination"`
	DestinationTag  *int64          `json:"DestinationTag"`
	Amount          json.RawMessage `json:"Amount"`
	Hash            string          `json:"hash"`
}

// Payment is a validated incoming payment attributed to a recipient.
type Payment struct {
	TxHash         string
	Amount         float64
	DestinationTag string
	ObservedAt     time.Time
	ValidGroup     bool
	ValidPrivate   bool
}

// streamMessage is one websocket frame from the transactions stream.
type streamMessage struct {
	Type        string       `json:"type"`
	Transaction *Transaction `json:"transaction"`
}

// rpcRequest is a JSON-RPC call to an XRPL HTTP endpoint.
type rpcRequest struct {
	Method string                   `json:"method"`
	Params []map[string]interface{} `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
}
