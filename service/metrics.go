package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "knoword",
		Subsystem: "auth",
		Name:      "logins_total",
		Help:      "Login attempts by result.",
	}, []string{"result"})

	refreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "knoword",
		Subsystem: "auth",
		Name:      "refresh_total",
		Help:      "Refresh-token rotations by result.",
	}, []string{"result"})

	logoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "knoword",
		Subsystem: "auth",
		Name:      "logouts_total",
		Help:      "Logouts, labelled by whether a session record was removed.",
	}, []string{"revoked"})
)
