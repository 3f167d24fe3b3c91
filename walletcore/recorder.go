package walletcore

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lambdaclass/agentwallet/bridge"
)

// Recorder is an optional persistence hook a host may implement, e.g.
// against SQLite with the teacher's database/sql + mattn/go-sqlite3
// pattern (db/db.go, db/store.go). The core module has no required
// persistence dependency; a nil Recorder is a no-op.
type Recorder interface {
	RecordSpend(chainID int64, recipient common.Address, rawAmount, usdAmount *big.Int, kind string)
	RecordApproval(requestID string, decision string)
	RecordBridgeMetadata(trackingID string, meta bridge.Metadata)
}

type noopRecorder struct{}

func (noopRecorder) RecordSpend(int64, common.Address, *big.Int, *big.Int, string) {}
func (noopRecorder) RecordApproval(string, string)                                 {}
func (noopRecorder) RecordBridgeMetadata(string, bridge.Metadata)                  {}
