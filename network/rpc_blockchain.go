package network

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/shopspring/decimal"
)

// Compile-time interface check.
var _ BlockchainService = (*RPCClient)(nil)

// coinToSat converts a coin amount as printed by the node into satoshis.
// Amounts are decoded as decimals so no float rounding is involved.
func coinToSat(amount decimal.Decimal) (uint64, error) {
	sat := amount.Shift(8)
	if sat.IsNegative() || !sat.Equal(sat.Truncate(0)) {
		return 0, fmt.Errorf("%w: amount %s is not a whole number of satoshis", ErrInvalidResponse, amount)
	}
	return uint64(sat.IntPart()), nil
}

// ParseCoin parses a coin amount such as "0.015" into satoshis for a
// network with places decimals.
func ParseCoin(s string, places int32) (uint64, error) {
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: amount %q: %w", ErrInvalidParams, s, err)
	}
	sat := amount.Shift(places)
	if !sat.IsPositive() || !sat.Equal(sat.Truncate(0)) {
		return 0, fmt.Errorf("%w: amount %s is not a positive whole number of satoshis", ErrInvalidParams, s)
	}
	return uint64(sat.IntPart()), nil
}

// SatToCoin formats satoshis as a coin amount with places decimals.
func SatToCoin(sat uint64, places int32) string {
	return decimal.NewFromInt(int64(sat)).Shift(-places).StringFixed(places)
}

type listUnspentResult struct {
	TxID          string          `json:"txid"`
	Vout          uint32          `json:"vout"`
	Amount        decimal.Decimal `json:"amount"`
	ScriptPubKey  string          `json:"scriptPubKey"`
	Address       string          `json:"address"`
	Confirmations int64           `json:"confirmations"`
}

// ListUnspent calls `listunspent 0 9999999 ["address"]`.
func (c *RPCClient) ListUnspent(ctx context.Context, address string) ([]*UTXO, error) {
	params := []interface{}{0, 9999999, []string{address}}
	var results []listUnspentResult
	if err := c.Call(ctx, "listunspent", params, &results); err != nil {
		return nil, err
	}

	utxos := make([]*UTXO, len(results))
	for i, r := range results {
		amount, err := coinToSat(r.Amount)
		if err != nil {
			return nil, err
		}
		utxos[i] = &UTXO{
			TxID:          r.TxID,
			Vout:          r.Vout,
			Amount:        amount,
			ScriptPubKey:  r.ScriptPubKey,
			Address:       r.Address,
			Confirmations: r.Confirmations,
		}
	}
	return utxos, nil
}

// gettxout returns JSON null for spent outputs, hence the pointer.
type gettxoutResult struct {
	Value         decimal.Decimal `json:"value"`
	Confirmations int64           `json:"confirmations"`
	ScriptPubKey  struct {
		Hex       string   `json:"hex"`
		Addresses []string `json:"addresses"`
	} `json:"scriptPubKey"`
}

// GetUTXO calls `gettxout "txid" vout`.
func (c *RPCClient) GetUTXO(ctx context.Context, txid string, vout uint32) (*UTXO, error) {
	params := []interface{}{txid, vout}
	var result *gettxoutResult
	if err := c.Call(ctx, "gettxout", params, &result); err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("%w: output %s:%d is spent or unknown", ErrTxNotFound, txid, vout)
	}
	amount, err := coinToSat(result.Value)
	if err != nil {
		return nil, err
	}

	utxo := &UTXO{
		TxID:          txid,
		Vout:          vout,
		Amount:        amount,
		ScriptPubKey:  result.ScriptPubKey.Hex,
		Confirmations: result.Confirmations,
	}
	if len(result.ScriptPubKey.Addresses) > 0 {
		utxo.Address = result.ScriptPubKey.Addresses[0]
	}
	return utxo, nil
}

// BroadcastTx calls `sendrawtransaction "hex"`. Rebroadcasting a transaction
// the node already has in a block succeeds and returns its txid.
func (c *RPCClient) BroadcastTx(ctx context.Context, rawTxHex string) (string, error) {
	params := []interface{}{rawTxHex}
	var txid string
	err := c.Call(ctx, "sendrawtransaction", params, &txid)
	if isRPCCode(err, rpcVerifyAlreadyInMem) {
		raw, decErr := hex.DecodeString(rawTxHex)
		if decErr != nil {
			return "", fmt.Errorf("%w: %w", ErrBroadcastRejected, err)
		}
		tx, parseErr := transaction.NewTransactionFromBytes(raw)
		if parseErr != nil {
			return "", fmt.Errorf("%w: %w", ErrBroadcastRejected, err)
		}
		return tx.TxID().String(), nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrBroadcastRejected, err)
	}
	return txid, nil
}

// GetRawTx calls `getrawtransaction "txid" false`.
func (c *RPCClient) GetRawTx(ctx context.Context, txid string) ([]byte, error) {
	params := []interface{}{txid, false}
	var rawHex string
	if err := c.Call(ctx, "getrawtransaction", params, &rawHex); err != nil {
		return nil, err
	}
	data, err := hex.DecodeString(rawHex)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid tx hex: %w", ErrInvalidResponse, err)
	}
	return data, nil
}

type verboseTxResult struct {
	Confirmations int64  `json:"confirmations"`
	BlockHash     string `json:"blockhash"`
	BlockHeight   uint64 `json:"blockheight"`
}

// GetTxStatus calls `getrawtransaction "txid" true`.
func (c *RPCClient) GetTxStatus(ctx context.Context, txid string) (*TxStatus, error) {
	params := []interface{}{txid, true}
	var result verboseTxResult
	if err := c.Call(ctx, "getrawtransaction", params, &result); err != nil {
		return nil, err
	}
	return &TxStatus{
		Confirmed:     result.Confirmations > 0,
		Confirmations: result.Confirmations,
		BlockHash:     result.BlockHash,
		BlockHeight:   result.BlockHeight,
	}, nil
}

// GetBestBlockHeight calls `getblockcount`.
func (c *RPCClient) GetBestBlockHeight(ctx context.Context) (uint64, error) {
	var height json.Number
	if err := c.Call(ctx, "getblockcount", nil, &height); err != nil {
		return 0, err
	}
	h, err := height.Int64()
	if err != nil || h < 0 {
		return 0, fmt.Errorf("%w: invalid block height %q", ErrInvalidResponse, height)
	}
	return uint64(h), nil
}
