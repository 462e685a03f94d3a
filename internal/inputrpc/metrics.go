package inputrpc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var rpcRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "kiosk_rpc_inputs_total",
	Help: "Inputs accepted over gRPC by type",
}, []string{"type"})
