package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespaceTxProcessor  = "txprocessor"
	namespaceBlockBuilder = "blockbuilder"
	namespacePriorityOps  = "priorityops"
)

var (
	// OpExecutionDuration duration of the execution of an operation,
	// labeled by operation type
	OpExecutionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespaceTxProcessor,
			Name:      "op_execution_duration_ms",
			Help:      "",
		}, []string{"op"})

	// AppliedOps applied operations count
	AppliedOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespaceTxProcessor,
			Name:      "applied_ops_total",
			Help:      "",
		}, []string{"op"})

	// RejectedOps rejected operations count
	RejectedOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespaceTxProcessor,
			Name:      "rejected_ops_total",
			Help:      "",
		}, []string{"op"})

	// PriorityOpsParsed priority operations decoded from L1 logs
	PriorityOpsParsed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespacePriorityOps,
			Name:      "parsed_total",
			Help:      "",
		})

	// SealedBlocks sealed blocks count
	SealedBlocks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespaceBlockBuilder,
			Name:      "sealed_blocks_total",
			Help:      "",
		})

	// LastBlockNum number of the last sealed block
	LastBlockNum = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespaceBlockBuilder,
			Name:      "last_block_num",
			Help:      "",
		})

	// BlockCommitGas commit gas limit of the last sealed block
	BlockCommitGas = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespaceBlockBuilder,
			Name:      "block_commit_gas",
			Help:      "",
		})

	// BlockVerifyGas verify gas limit of the last sealed block
	BlockVerifyGas = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespaceBlockBuilder,
			Name:      "block_verify_gas",
			Help:      "",
		})
)

func init() {
	prometheus.MustRegister(OpExecutionDuration)
	prometheus.MustRegister(AppliedOps)
	prometheus.MustRegister(RejectedOps)
	prometheus.MustRegister(PriorityOpsParsed)
	prometheus.MustRegister(SealedBlocks)
	prometheus.MustRegister(LastBlockNum)
	prometheus.MustRegister(BlockCommitGas)
	prometheus.MustRegister(BlockVerifyGas)
}

// MeasureDuration measure the method execution duration
// and save it into a histogram metric
func MeasureDuration(histogram *prometheus.HistogramVec, start time.Time, lvs ...string) {
	duration := time.Since(start)
	histogram.WithLabelValues(lvs...).Observe(float64(duration.Milliseconds()))
}
