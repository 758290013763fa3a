package assetrail

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/elentis/reconcile/internal/models"
)

const (
	EndpointDepositAddress = "/getOrCreateAppDepositAddress"
	EndpointWithdraw       = "/applyAppWithdrawToNetwork"
	EndpointDepositRecord  = "/getAppDepositRecord"
)

type depositAddressRequest struct {
	ReferenceID string `json:"referenceId"`
	Chain       string `json:"chain"`
}

type DepositAddress struct {
	Address string `json:"address"`
	Memo    string `json:"memo"`
}

// DepositAddress asks the rail for the address bound to referenceID. The rail
// returns the same address for the same reference.
func (c *Client) DepositAddress(ctx context.Context, referenceID string) (*DepositAddress, error) {
	resp, err := c.Call(ctx, EndpointDepositAddress, depositAddressRequest{
		ReferenceID: referenceID,
		Chain:       c.cfg.Chain,
	})
	if err != nil {
		return nil, err
	}

	var out DepositAddress
	if err := json.Unmarshal(resp.Data, &out); err != nil || out.Address == "" {
		return nil, &models.RailError{Code: resp.Code, Msg: "deposit address missing from response"}
	}
	return &out, nil
}

type WithdrawRequest struct {
	CoinID                string `json:"coinId"`
	Address               string `json:"address"`
	OrderID               string `json:"orderId"`
	Chain                 string `json:"chain"`
	Amount                string `json:"amount"`
	MerchantPayNetworkFee bool   `json:"merchantPayNetworkFee"`
	Memo                  string `json:"memo"`
}

type WithdrawResult struct {
	RecordID string `json:"recordId"`
}

// Withdraw submits a network withdrawal of amount minor units under orderID.
func (c *Client) Withdraw(ctx context.Context, orderID, address, memo string, amount int64) (*WithdrawResult, error) {
	resp, err := c.Call(ctx, EndpointWithdraw, WithdrawRequest{
		CoinID:                c.cfg.CoinID,
		Address:               address,
		OrderID:               orderID,
		Chain:                 c.cfg.Chain,
		Amount:                models.FormatMinorUnits(amount, c.cfg.Decimals),
		MerchantPayNetworkFee: true,
		Memo:                  memo,
	})
	if err != nil {
		return nil, err
	}

	// The rail has accepted the order at this point, so an unreadable body only
	// costs the record id; the webhook still carries it.
	var out WithdrawResult
	if len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, &out); err != nil {
			c.log.WithField("order_id", orderID).WithError(err).Warn("withdraw response without a readable recordId")
		}
	}
	return &out, nil
}

type DepositRecord struct {
	RecordID    string `json:"recordId"`
	ReferenceID string `json:"referenceId"`
	CoinID      int64  `json:"coinId"`
	CoinSymbol  string `json:"coinSymbol"`
	Chain       string `json:"chain"`
	Amount      string `json:"amount"`
	ServiceFee  string `json:"serviceFee"`
	TxID        string `json:"txId"`
	Status      string `json:"status"`
}

// DepositRecord fetches the authoritative record for a deposit webhook that
// arrived without an amount.
func (c *Client) DepositRecord(ctx context.Context, recordID string) (*DepositRecord, error) {
	resp, err := c.Call(ctx, EndpointDepositRecord, map[string]string{"recordId": recordID})
	if err != nil {
		return nil, err
	}

	var out struct {
		Record DepositRecord `json:"record"`
	}
	if err := json.Unmarshal(resp.Data, &out); err != nil {
		return nil, fmt.Errorf("decode deposit record %s: %w", recordID, err)
	}
	if out.Record.RecordID != recordID {
		return nil, fmt.Errorf("deposit record %s: %w", recordID, models.ErrNotFound)
	}
	return &out.Record, nil
}

// Decimals is the minor-unit precision of the configured coin.
func (c *Client) Decimals() int32 {
	return c.cfg.Decimals
}
