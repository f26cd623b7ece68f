// Package checkgrp maintains the group of handlers for health checking.
package checkgrp

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/ardanlabs/gjchain/foundation/blockchain/state"
	"go.uber.org/zap"
)

// Handlers manages the set of check endpoints.
type Handlers struct {
	Build string
	Log   *zap.SugaredLogger
	State *state.State
}

// Readiness checks if the node can serve the chain. If the chain can't be
// read from storage, a 500 status is returned.
func (h Handlers) Readiness(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	statusCode := http.StatusOK
	if _, err := h.State.RetrieveChain(r.Context()); err != nil {
		status = "chain not ready"
		statusCode = http.StatusInternalServerError
	}

	data := struct {
		Status string `json:"status"`
	}{
		Status: status,
	}

	if err := response(w, statusCode, data); err != nil {
		h.Log.Errorw("readiness", "ERROR", err)
	}

	h.Log.Infow("readiness", "statusCode", statusCode, "method", r.Method, "path", r.URL.Path, "remoteaddr", r.RemoteAddr)
}

// Liveness returns simple status info if the service is alive. If the
// app is deployed to a Kubernetes cluster, it will also return pod, node, and
// namespace details via the Downward API. The Kubernetes environment variables
// need to be set within your Pod/Deployment manifest.
func (h Handlers) Liveness(w http.ResponseWriter, r *http.Request) {
	host, err := os.Hostname()
	if err != nil {
		host = "unavailable"
	}

	latest := h.State.RetrieveLatestBlock()

	data := struct {
		Status      string `json:"status,omitempty"`
		Build       string `json:"build,omitempty"`
		Host        string `json:"host,omitempty"`
		Pod         string `json:"pod,omitempty"`
		PodIP       string `json:"podIP,omitempty"`
		Node        string `json:"node,omitempty"`
		Namespace   string `json:"namespace,omitempty"`
		ChainHeight uint64 `json:"chainHeight"`
	}{
		Status:      "up",
		Build:       h.Build,
		Host:        host,
		Pod:         os.Getenv("KUBERNETES_PODNAME"),
		PodIP:       os.Getenv("KUBERNETES_NAMESPACE_POD_IP"),
		Node:        os.Getenv("KUBERNETES_NODENAME"),
		Namespace:   os.Getenv("KUBERNETES_NAMESPACE"),
		ChainHeight: latest.Index,
	}

	statusCode := http.StatusOK
	if err := response(w, statusCode, data); err != nil {
		h.Log.Errorw("liveness", "ERROR", err)
	}

	// THIS IS A FREE TIMER. WE COULD UPDATE THE METRIC GOROUTINE COUNT HERE.

	h.Log.Infow("liveness", "statusCode", statusCode, "method", r.Method, "path", r.URL.Path, "remoteaddr", r.RemoteAddr)
}

func response(w http.ResponseWriter, statusCode int, data any) error {

	// Convert the response value to JSON.
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	// Set the content type and headers once we know marshaling has succeeded.
	w.Header().Set("Content-Type", "application/json")

	// Write the status code to the response.
	w.WriteHeader(statusCode)

	// Send the result back to the client.
	if _, err := w.Write(jsonData); err != nil {
		return err
	}

	return nil
}
