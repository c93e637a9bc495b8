package ibclient

import (
	"context"

	"github.com/ondergetekende/ibclient/codec"
	"github.com/ondergetekende/ibclient/ibkrerr"
	"github.com/ondergetekende/ibclient/message"
)

// CurrentTime sends REQ_CURRENT_TIME and resolves with the gateway's
// current time as a Unix timestamp (spec.md §4.8 "Notable flows", S1),
// grounded on
// _examples/original_source/ib_async/functionality/current_time.py.
// CURRENT_TIME responses carry no request id on the wire, so pending
// calls are tracked in a FIFO queue and resolved in request order,
// generalizing the original source's single outstanding future.
func (c *Connection) CurrentTime(ctx context.Context) (int64, error) {
	if c.proto == 0 {
		return 0, ibkrerr.New(ibkrerr.NotConnected, "handshake not completed")
	}
	id := c.requests.nextRequestID()
	w := codec.NewWriter(c.proto)
	w.WriteIntVal(codec.Gate{}, int32(message.ReqCurrentTime))
	w.WriteIntVal(codec.Gate{}, 1)

	ch := c.requests.makePending(id)
	c.stateMu.Lock()
	c.currentTimeQueue = append(c.currentTimeQueue, id)
	c.stateMu.Unlock()

	if err := c.send(w.Fields()); err != nil {
		c.requests.cancel(id)
		return 0, err
	}

	select {
	case res := <-ch:
		if res.err != nil {
			return 0, res.err
		}
		return res.value.(int64), nil
	case <-ctx.Done():
		c.requests.cancel(id)
		return 0, ctx.Err()
	}
}

func handleCurrentTime(c *Connection, r *codec.Reader) {
	t := int64(r.ReadIntOr(codec.Gate{}, 0))
	c.stateMu.Lock()
	var id int32
	ok := len(c.currentTimeQueue) > 0
	if ok {
		id = c.currentTimeQueue[0]
		c.currentTimeQueue = c.currentTimeQueue[1:]
	}
	c.stateMu.Unlock()
	if ok {
		c.requests.resolve(id, t)
	}
}
