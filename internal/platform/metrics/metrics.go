// Package metrics registers the client's prometheus counters once, on the
// default registerer. Exposition is the embedder's concern.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "matchlobby",
		Subsystem: "auth",
		Name:      "login_attempts_total",
		Help:      "Login attempts by method (password, mnemonic, wallet) and result.",
	}, []string{"method", "result"})

	LobbyRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "matchlobby",
		Subsystem: "lobby",
		Name:      "refreshes_total",
		Help:      "Lobby list refreshes by result.",
	}, []string{"result"})

	LobbyOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "matchlobby",
		Subsystem: "lobby",
		Name:      "operations_total",
		Help:      "Lobby mutations by operation (create, join, leave, delete, invite) and result.",
	}, []string{"operation", "result"})

	SchedulerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "matchlobby",
		Subsystem: "scheduler",
		Name:      "transitions_total",
		Help:      "Auto-refresh scheduler starts and stops.",
	}, []string{"state"})
)

const (
	ResultOK    = "ok"
	ResultError = "error"
)
