package worker

import (
	"context"
	"time"
)

// dialTimeout bounds the single connection attempt made to a seed.
const dialTimeout = 5 * time.Second

// peerOperations connects to every seed and runs the conversation with the
// seeds that answered.
func (w *Worker) peerOperations() {
	w.evHandler("worker: peerOperations: G started")
	defer w.evHandler("worker: peerOperations: G completed")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		<-w.shut
		cancel()
	}()

	var n int
	done := make(chan struct{}, len(w.seeds))

	for _, host := range w.seeds {
		if host == "" || host == w.state.RetrieveHost() {
			continue
		}

		n++
		go func() {
			defer func() { done <- struct{}{} }()
			w.runPeerOperation(ctx, host)
		}()
	}

	for i := 0; i < n; i++ {
		<-done
	}
}

// runPeerOperation makes one connection attempt to the host. There is no
// retry when the attempt fails.
func (w *Worker) runPeerOperation(ctx context.Context, host string) {
	w.evHandler("worker: runPeerOperation: started: host[%s]", host)
	defer w.evHandler("worker: runPeerOperation: completed: host[%s]", host)

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	p, err := w.state.NetConnectPeer(dialCtx, host)
	cancel()

	if err != nil {
		w.evHandler("worker: runPeerOperation: host[%s]: ERROR: %s", host, err)
		return
	}

	// Track the peer so shutdown can close it. A shutdown that already
	// happened closes the peer right away.
	w.mu.Lock()
	{
		if w.isShutdown() {
			w.mu.Unlock()
			p.Close()
			return
		}
		w.outbound = append(w.outbound, p)
	}
	w.mu.Unlock()

	w.state.HandlePeer(ctx, p)
}
