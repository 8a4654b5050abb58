package ingress

import (
	"context"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// forwardRawTx dual-writes a raw transaction to an external JSON-RPC
// mempool, using go-ethereum's own RPC client rather than a bespoke
// HTTP/JSON call.
func forwardRawTx(ctx context.Context, url string, raw []byte) error {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return err
	}
	defer client.Close()

	var result string
	return client.CallContext(ctx, &result, "eth_sendRawTransaction", hexutil.Encode(raw))
}
