package answer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var answerTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "kiosk_answers_total",
	Help: "Free-form answer requests by status",
}, []string{"status"})
