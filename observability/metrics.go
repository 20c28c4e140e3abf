package observability

import (
	"math"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// VaultMetrics wraps collectors tracking trove engine activity.
type VaultMetrics struct {
	operations     *prometheus.CounterVec
	latency        *prometheus.HistogramVec
	liquidatedDebt *prometheus.CounterVec
	redistributed  *prometheus.CounterVec
	redeemed       *prometheus.CounterVec
	liquidations   *prometheus.CounterVec
}

// StabilityMetrics wraps collectors tracking stability pool activity.
type StabilityMetrics struct {
	totalStake *prometheus.GaugeVec
	epoch      *prometheus.GaugeVec
	offsets    *prometheus.CounterVec
}

var (
	vaultMetricsOnce sync.Once
	vaultRegistry    *VaultMetrics

	stabilityMetricsOnce sync.Once
	stabilityRegistry    *StabilityMetrics
)

// Vault returns the lazily-initialised metrics registry for the trove engine.
func Vault() *VaultMetrics {
	vaultMetricsOnce.Do(func() {
		vaultRegistry = &VaultMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "zusd",
				Subsystem: "vault",
				Name:      "operations_total",
				Help:      "Count of trove operations segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "zusd",
				Subsystem: "vault",
				Name:      "operation_duration_seconds",
				Help:      "Latency distribution for trove operations.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
			liquidatedDebt: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "zusd",
				Subsystem: "vault",
				Name:      "liquidated_debt_total",
				Help:      "Stablecoin debt cancelled against the stability pool, in integer stable units.",
			}, []string{"denom"}),
			redistributed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "zusd",
				Subsystem: "vault",
				Name:      "redistributed_debt_total",
				Help:      "Stablecoin debt redistributed to remaining troves, in integer stable units.",
			}, []string{"denom"}),
			redeemed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "zusd",
				Subsystem: "vault",
				Name:      "redeemed_total",
				Help:      "Stablecoin redeemed against troves, in integer stable units.",
			}, []string{"denom"}),
			liquidations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "zusd",
				Subsystem: "vault",
				Name:      "liquidations_total",
				Help:      "Count of liquidated troves segmented by denom.",
			}, []string{"denom"}),
		}
		prometheus.MustRegister(
			vaultRegistry.operations,
			vaultRegistry.latency,
			vaultRegistry.liquidatedDebt,
			vaultRegistry.redistributed,
			vaultRegistry.redeemed,
			vaultRegistry.liquidations,
		)
	})
	return vaultRegistry
}

// ObserveOp records the outcome and latency of a trove operation.
func (m *VaultMetrics) ObserveOp(operation, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	op := strings.TrimSpace(operation)
	if op == "" {
		op = "unknown"
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.operations.WithLabelValues(op, outcome).Inc()
	m.latency.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordLiquidation records the coverage split of a single liquidated trove.
func (m *VaultMetrics) RecordLiquidation(denom string, covered, uncovered *big.Int) {
	if m == nil {
		return
	}
	label := labelDenom(denom)
	m.liquidations.WithLabelValues(label).Inc()
	m.liquidatedDebt.WithLabelValues(label).Add(bigToFloat(covered))
	m.redistributed.WithLabelValues(label).Add(bigToFloat(uncovered))
}

// RecordRedemption records stablecoin redeemed against a denom's troves.
func (m *VaultMetrics) RecordRedemption(denom string, amount *big.Int) {
	if m == nil {
		return
	}
	m.redeemed.WithLabelValues(labelDenom(denom)).Add(bigToFloat(amount))
}

// Stability returns the lazily-initialised metrics registry for the pool.
func Stability() *StabilityMetrics {
	stabilityMetricsOnce.Do(func() {
		stabilityRegistry = &StabilityMetrics{
			totalStake: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "zusd",
				Subsystem: "stability",
				Name:      "total_stake",
				Help:      "Aggregate stability pool stake per denom in integer stable units.",
			}, []string{"denom"}),
			epoch: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "zusd",
				Subsystem: "stability",
				Name:      "epoch",
				Help:      "Current product-sum epoch per denom; advances when the pool is fully depleted.",
			}, []string{"denom"}),
			offsets: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "zusd",
				Subsystem: "stability",
				Name:      "offsets_total",
				Help:      "Count of liquidation offsets absorbed by the pool.",
			}, []string{"denom"}),
		}
		prometheus.MustRegister(
			stabilityRegistry.totalStake,
			stabilityRegistry.epoch,
			stabilityRegistry.offsets,
		)
	})
	return stabilityRegistry
}

// RecordOffset updates the pool gauges after a liquidation offset.
func (m *StabilityMetrics) RecordOffset(denom string, totalStake *big.Int, epoch uint64) {
	if m == nil {
		return
	}
	label := labelDenom(denom)
	m.offsets.WithLabelValues(label).Inc()
	m.totalStake.WithLabelValues(label).Set(bigToFloat(totalStake))
	m.epoch.WithLabelValues(label).Set(float64(epoch))
}

// RecordStake updates the total stake gauge after a deposit or withdrawal.
func (m *StabilityMetrics) RecordStake(denom string, totalStake *big.Int) {
	if m == nil {
		return
	}
	m.totalStake.WithLabelValues(labelDenom(denom)).Set(bigToFloat(totalStake))
}

func labelDenom(denom string) string {
	trimmed := strings.TrimSpace(denom)
	if trimmed == "" {
		return "unknown"
	}
	return strings.ToLower(trimmed)
}

func bigToFloat(value *big.Int) float64 {
	if value == nil {
		return 0
	}
	floatVal, acc := new(big.Float).SetInt(value).Float64()
	if acc != big.Exact {
		// Guard against NaN/Inf when conversion fails.
		if math.IsNaN(floatVal) || math.IsInf(floatVal, 0) {
			return 0
		}
	}
	return floatVal
}
