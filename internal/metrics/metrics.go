// Package metrics регистрирует счётчики Prometheus для онбординга.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OnboardingEvents считает завершения онбординга по результату:
	// registered, updated, blocked, promo_applied, error.
	OnboardingEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_onboarding_events_total",
		Help: "Onboarding flow completions by result.",
	}, []string{"result"})

	// GateChecks считает проверки гейта по исходу: allowed, allowed_cached,
	// blocked, failed.
	GateChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_gate_checks_total",
		Help: "Channel gate checks by outcome.",
	}, []string{"outcome"})

	// RenderSteps считает шаги конвейера отрисовки: edit_caption, edit_text,
	// edit_media, send_new, degrade_text, last_resort, give_up.
	RenderSteps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_render_steps_total",
		Help: "Render pipeline steps taken, including fallbacks.",
	}, []string{"step"})
)
