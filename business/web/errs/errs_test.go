package errs_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/ardanlabs/gjchain/business/web/errs"
	"github.com/ardanlabs/gjchain/foundation/blockchain/state"
	"github.com/ardanlabs/gjchain/foundation/blockchain/storage"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_FromChain(t *testing.T) {
	type table struct {
		name   string
		err    error
		status int
	}

	tt := []table{
		{name: "funds", err: fmt.Errorf("%w: gja has 1, needs 5", state.ErrInsufficientFunds), status: http.StatusBadRequest},
		{name: "amount", err: state.ErrInvalidAmount, status: http.StatusBadRequest},
		{name: "address", err: fmt.Errorf("miner: %w", storage.CheckAddress("bad/miner")), status: http.StatusBadRequest},
		{name: "moved", err: state.ErrChainMoved, status: http.StatusConflict},
		{name: "cancelled", err: context.Canceled, status: http.StatusConflict},
		{name: "worker", err: state.ErrNoWorker, status: http.StatusServiceUnavailable},
		{name: "other", err: errors.New("disk on fire"), status: 0},
	}

	t.Log("Given the need to map blockchain errors to responses.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				err := errs.FromChain(tst.err)

				if tst.status == 0 {
					if errs.IsTrusted(err) {
						t.Fatalf("\t%s\tTest %d:\tShould not trust an unknown error.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould not trust an unknown error.", success, testID)
					return
				}

				te := errs.GetTrusted(err)
				if te == nil || te.Status != tst.status {
					t.Fatalf("\t%s\tTest %d:\tShould get status %d: %v", failed, testID, tst.status, err)
				}
				if !errors.Is(err, tst.err) {
					t.Fatalf("\t%s\tTest %d:\tShould keep the original error.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould get status %d.", success, testID, tst.status)
			}

			t.Logf("\tTest %d:\tWhen handling the %s error.", testID, tst.name)
			t.Run(tst.name, f)
		}
	}
}
