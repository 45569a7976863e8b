package network

import "context"

// BlockchainService is the node surface a swap participant needs for one
// network: finding wallet coins, broadcasting, and watching contract outputs.
type BlockchainService interface {
	// ListUnspent returns all unspent outputs paying address.
	ListUnspent(ctx context.Context, address string) ([]*UTXO, error)

	// GetUTXO returns an unspent output. A spent or unknown output yields ErrTxNotFound.
	GetUTXO(ctx context.Context, txid string, vout uint32) (*UTXO, error)

	// BroadcastTx submits a raw transaction hex and returns its txid.
	BroadcastTx(ctx context.Context, rawTxHex string) (string, error)

	// GetRawTx returns the serialized transaction. Unknown txids yield ErrTxNotFound.
	GetRawTx(ctx context.Context, txid string) ([]byte, error)

	// GetTxStatus returns the confirmation status of a transaction.
	GetTxStatus(ctx context.Context, txid string) (*TxStatus, error)

	// GetBestBlockHeight returns the height of the current chain tip.
	GetBestBlockHeight(ctx context.Context) (uint64, error)
}

// UTXO represents an unspent transaction output. Amount is in satoshis.
type UTXO struct {
	TxID          string `json:"txid"`
	Vout          uint32 `json:"vout"`
	Amount        uint64 `json:"amount"`
	ScriptPubKey  string `json:"script_pubkey"`
	Address       string `json:"address"`
	Confirmations int64  `json:"confirmations"`
}

// TxStatus represents the confirmation status of a transaction.
type TxStatus struct {
	Confirmed     bool   `json:"confirmed"`
	Confirmations int64  `json:"confirmations"`
	BlockHash     string `json:"block_hash"`
	BlockHeight   uint64 `json:"block_height"`
}
