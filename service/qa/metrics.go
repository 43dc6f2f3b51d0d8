/*
 * @module service/qa/metrics
 * @description 质量审查相关的Prometheus指标定义，经 /metrics 暴露
 * @architecture 分层架构 - 质量审查服务层
 * @dependencies github.com/prometheus/client_golang
 * @refs service/qa/engine.go, main.go
 */

package qa

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reviewsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qa_reviews_total",
		Help: "质量审查总次数，按结论类别统计",
	}, []string{"category"})

	reviewDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "qa_review_duration_seconds",
		Help:    "单次质量审查耗时",
		Buckets: prometheus.DefBuckets,
	})

	linkChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qa_link_checks_total",
		Help: "链接校验总次数，按校验状态统计",
	}, []string{"status"})

	judgeFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qa_judge_fallbacks_total",
		Help: "AI判定回退到启发式分析的次数",
	})
)
