package public

import "github.com/ardanlabs/gjchain/foundation/blockchain/block"

type walletInfo struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
	Balance int64  `json:"balance"`
}

type newTx struct {
	FromAddress string `json:"fromAddress" validate:"required"`
	ToAddress   string `json:"toAddress" validate:"required"`
	Amount      int64  `json:"amount" validate:"gt=0"`
}

type mineRequest struct {
	MinerAddress string `json:"minerAddress" validate:"required"`
}

type message struct {
	Message string `json:"message"`
}

type tx struct {
	From     string `json:"from"`
	FromName string `json:"fromName,omitempty"`
	To       string `json:"to"`
	ToName   string `json:"toName,omitempty"`
	Amount   int64  `json:"amount"`
}

func toTxs(txs []block.Tx, lookup func(string) string) []tx {
	out := make([]tx, len(txs))
	for i, t := range txs {
		out[i] = tx{
			From:   t.From,
			To:     t.To,
			Amount: t.Amount,
		}
		if name := lookup(t.From); name != t.From {
			out[i].FromName = name
		}
		if name := lookup(t.To); name != t.To {
			out[i].ToName = name
		}
	}
	return out
}
