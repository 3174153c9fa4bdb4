package admission

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var submissions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "classmark_submissions_total",
	Help: "Attendance submission attempts by outcome.",
}, []string{"outcome"})

func observe(outcome string) {
	submissions.WithLabelValues(outcome).Inc()
}
