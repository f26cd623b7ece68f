package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/ardanlabs/gjchain/foundation/blockchain/block"
	"github.com/go-resty/resty/v2"
)

// errorResponse is the body a node returns for a failed request.
type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

type walletInfo struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
	Balance int64  `json:"balance"`
}

// client talks to the public api of a node.
type client struct {
	rc *resty.Client
}

func newClient(url string) *client {
	rc := resty.New().
		SetBaseURL(strings.TrimSuffix(url, "/")).
		SetTimeout(5 * time.Minute).
		SetHeader("Content-Type", "application/json")

	return &client{rc: rc}
}

func (c *client) wallets() ([]walletInfo, error) {
	var wallets []walletInfo
	if err := c.do(c.rc.R().SetResult(&wallets), "GET", "/wallets"); err != nil {
		return nil, err
	}
	return wallets, nil
}

func (c *client) send(from string, to string, amount int64) (string, error) {
	body := struct {
		FromAddress string `json:"fromAddress"`
		ToAddress   string `json:"toAddress"`
		Amount      int64  `json:"amount"`
	}{
		FromAddress: from,
		ToAddress:   to,
		Amount:      amount,
	}

	var resp struct {
		Message string `json:"message"`
	}
	if err := c.do(c.rc.R().SetBody(body).SetResult(&resp), "POST", "/transaction"); err != nil {
		return "", err
	}
	return resp.Message, nil
}

func (c *client) mine(miner string) (block.Block, error) {
	body := struct {
		MinerAddress string `json:"minerAddress"`
	}{
		MinerAddress: miner,
	}

	var blk block.Block
	if err := c.do(c.rc.R().SetBody(body).SetResult(&blk), "POST", "/mine"); err != nil {
		return block.Block{}, err
	}
	return blk, nil
}

func (c *client) chain() ([]block.Block, error) {
	var chain []block.Block
	if err := c.do(c.rc.R().SetResult(&chain), "GET", "/chain"); err != nil {
		return nil, err
	}
	return chain, nil
}

func (c *client) do(req *resty.Request, method string, path string) error {
	var er errorResponse
	resp, err := req.SetError(&er).Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	if resp.IsError() {
		if len(er.Fields) > 0 {
			return fmt.Errorf("%s %s: %d: %s: %v", method, path, resp.StatusCode(), er.Error, er.Fields)
		}
		return fmt.Errorf("%s %s: %d: %s", method, path, resp.StatusCode(), er.Error)
	}

	return nil
}
