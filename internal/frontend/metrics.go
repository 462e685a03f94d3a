package frontend

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	wsClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kiosk_ws_clients",
		Help: "Connected kiosk screens",
	})

	wsInbound = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kiosk_ws_inbound_total",
		Help: "Messages received from kiosk screens by type",
	}, []string{"type"})

	wsOutbound = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kiosk_ws_outbound_total",
		Help: "Messages sent to kiosk screens by type",
	}, []string{"type"})

	wsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kiosk_ws_dropped_total",
		Help: "Outbound messages dropped because no screen was connected",
	}, []string{"type"})
)
