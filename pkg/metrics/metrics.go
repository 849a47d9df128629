// Package metrics exposes prometheus counters for coupon engine outcomes.
// A nil *Recorder is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "vipclub"

type Recorder struct {
	Claims        *prometheus.CounterVec
	Redemptions   *prometheus.CounterVec
	GiftsGranted  *prometheus.CounterVec
	StorageErrors *prometheus.CounterVec
}

// NewRecorder creates the counters and registers them with reg when reg is non-nil.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		Claims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupon_claims_total",
			Help:      "Coupon claim attempts by outcome.",
		}, []string{"outcome"}),
		Redemptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupon_redemptions_total",
			Help:      "Coupon redemption attempts by outcome.",
		}, []string{"outcome"}),
		GiftsGranted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupon_gifts_granted_total",
			Help:      "Tier upgrade gift coupons granted, by tier.",
		}, []string{"tier"}),
		StorageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupon_storage_errors_total",
			Help:      "Swallowed persistence failures by operation.",
		}, []string{"op"}),
	}

	if reg != nil {
		reg.MustRegister(r.Claims, r.Redemptions, r.GiftsGranted, r.StorageErrors)
	}
	return r
}

func (r *Recorder) Claim(outcome string) {
	if r == nil {
		return
	}
	r.Claims.WithLabelValues(outcome).Inc()
}

func (r *Recorder) Redeem(outcome string) {
	if r == nil {
		return
	}
	r.Redemptions.WithLabelValues(outcome).Inc()
}

func (r *Recorder) Gift(tier string) {
	if r == nil {
		return
	}
	r.GiftsGranted.WithLabelValues(tier).Inc()
}

func (r *Recorder) StorageError(op string) {
	if r == nil {
		return
	}
	r.StorageErrors.WithLabelValues(op).Inc()
}
