package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CommandsTotal counts handled bot commands by command name.
	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kinbot_commands_total",
		Help: "Number of handled bot commands.",
	}, []string{"command"})

	// CallbacksTotal counts handled callback queries by prefix.
	CallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kinbot_callbacks_total",
		Help: "Number of handled callback queries.",
	}, []string{"action"})

	// HandlerErrors counts commands and callbacks that failed.
	HandlerErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kinbot_handler_errors_total",
		Help: "Number of handler failures.",
	})

	MarriagesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kinbot_marriages_created_total",
		Help: "Number of marriages created.",
	})

	MarriagesDissolved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kinbot_marriages_dissolved_total",
		Help: "Number of marriages dissolved.",
	})

	Adoptions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kinbot_adoptions_total",
		Help: "Number of completed adoptions.",
	})

	TreeRenders = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kinbot_tree_renders_total",
		Help: "Number of family trees built.",
	})
)
