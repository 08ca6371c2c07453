package metrics

import (
	"fmt"
	"sync"
	"time"
)

// Session outcomes.
const (
	OutcomeFinalized  = "finalized"
	OutcomeTerminated = "terminated"
	OutcomeStopped    = "stopped"
)

// Retry causes. Each failed collection attempt is counted under exactly one
// of these so silence, empty transcriptions and service failures stay
// distinguishable in dashboards.
const (
	RetryNoAudio             = "no_audio"
	RetryRecordingFailed     = "recording_failed"
	RetryEmptyTranscription  = "empty_transcription"
	RetryTranscriptionFailed = "transcription_failed"
	RetryExtractionFailed    = "extraction_failed"
	RetrySlotNotFilled       = "slot_not_filled"
)

// Metrics holds in-process counters for the voicebot.
type Metrics struct {
	mu sync.RWMutex

	SessionsStarted int64
	SessionOutcomes map[string]int64
	Restarts        int64

	RetriesByCause map[string]int64

	ServiceCalls   map[string]int64
	ServiceErrors  map[string]int64
	ServiceLatency map[string][]time.Duration

	StartTime time.Time
}

var globalMetrics = &Metrics{
	SessionOutcomes: make(map[string]int64),
	RetriesByCause:  make(map[string]int64),
	ServiceCalls:    make(map[string]int64),
	ServiceErrors:   make(map[string]int64),
	ServiceLatency:  make(map[string][]time.Duration),
	StartTime:       time.Now(),
}

// RecordSessionStart counts a new call session.
func RecordSessionStart() {
	globalMetrics.mu.Lock()
	defer globalMetrics.mu.Unlock()
	globalMetrics.SessionsStarted++
}

// RecordSessionOutcome counts how a session ended.
func RecordSessionOutcome(outcome string) {
	globalMetrics.mu.Lock()
	defer globalMetrics.mu.Unlock()
	globalMetrics.SessionOutcomes[outcome]++
}

// RecordRestart counts a confirmation rejection restart.
func RecordRestart() {
	globalMetrics.mu.Lock()
	defer globalMetrics.mu.Unlock()
	globalMetrics.Restarts++
}

// RecordRetry counts one consumed collection attempt by cause.
func RecordRetry(cause string) {
	globalMetrics.mu.Lock()
	defer globalMetrics.mu.Unlock()
	globalMetrics.RetriesByCause[cause]++
}

// RecordServiceCall records an external service call (stt, tts, extract,
// ari) with its latency.
func RecordServiceCall(service string, success bool, latency time.Duration) {
	globalMetrics.mu.Lock()
	defer globalMetrics.mu.Unlock()

	globalMetrics.ServiceCalls[service]++
	if !success {
		globalMetrics.ServiceErrors[service]++
	}

	// Keep only last 100 latency measurements per service
	if len(globalMetrics.ServiceLatency[service]) >= 100 {
		globalMetrics.ServiceLatency[service] = globalMetrics.ServiceLatency[service][1:]
	}
	globalMetrics.ServiceLatency[service] = append(globalMetrics.ServiceLatency[service], latency)
}

// GetMetrics returns current metrics as a JSON-friendly map.
func GetMetrics() map[string]interface{} {
	globalMetrics.mu.RLock()
	defer globalMetrics.mu.RUnlock()

	serviceAvgLatency := make(map[string]float64)
	for service, latencies := range globalMetrics.ServiceLatency {
		if len(latencies) > 0 {
			var sum time.Duration
			for _, l := range latencies {
				sum += l
			}
			serviceAvgLatency[service] = sum.Seconds() / float64(len(latencies))
		}
	}

	outcomes := make(map[string]int64, len(globalMetrics.SessionOutcomes))
	for k, v := range globalMetrics.SessionOutcomes {
		outcomes[k] = v
	}
	retries := make(map[string]int64, len(globalMetrics.RetriesByCause))
	for k, v := range globalMetrics.RetriesByCause {
		retries[k] = v
	}
	calls := make(map[string]int64, len(globalMetrics.ServiceCalls))
	for k, v := range globalMetrics.ServiceCalls {
		calls[k] = v
	}
	errs := make(map[string]int64, len(globalMetrics.ServiceErrors))
	for k, v := range globalMetrics.ServiceErrors {
		errs[k] = v
	}

	return map[string]interface{}{
		"uptime_seconds": time.Since(globalMetrics.StartTime).Seconds(),
		"sessions": map[string]interface{}{
			"started":  globalMetrics.SessionsStarted,
			"outcomes": outcomes,
			"restarts": globalMetrics.Restarts,
		},
		"retries": retries,
		"services": map[string]interface{}{
			"calls":               calls,
			"errors":              errs,
			"latency_avg_seconds": serviceAvgLatency,
		},
	}
}

// GetPrometheusMetrics returns metrics in Prometheus text format.
func GetPrometheusMetrics() string {
	globalMetrics.mu.RLock()
	defer globalMetrics.mu.RUnlock()

	var output string

	output += "# HELP voicebot_uptime_seconds Service uptime in seconds\n"
	output += "# TYPE voicebot_uptime_seconds gauge\n"
	output += fmt.Sprintf("voicebot_uptime_seconds %.2f\n", time.Since(globalMetrics.StartTime).Seconds())

	output += "# HELP voicebot_sessions_started_total Call sessions started\n"
	output += "# TYPE voicebot_sessions_started_total counter\n"
	output += fmt.Sprintf("voicebot_sessions_started_total %d\n", globalMetrics.SessionsStarted)

	output += "# HELP voicebot_sessions_ended_total Call sessions ended by outcome\n"
	output += "# TYPE voicebot_sessions_ended_total counter\n"
	for outcome, count := range globalMetrics.SessionOutcomes {
		output += fmt.Sprintf("voicebot_sessions_ended_total{outcome=\"%s\"} %d\n", outcome, count)
	}

	output += "# HELP voicebot_restarts_total Confirmation rejection restarts\n"
	output += "# TYPE voicebot_restarts_total counter\n"
	output += fmt.Sprintf("voicebot_restarts_total %d\n", globalMetrics.Restarts)

	output += "# HELP voicebot_retries_total Consumed collection attempts by cause\n"
	output += "# TYPE voicebot_retries_total counter\n"
	for cause, count := range globalMetrics.RetriesByCause {
		output += fmt.Sprintf("voicebot_retries_total{cause=\"%s\"} %d\n", cause, count)
	}

	output += "# HELP voicebot_service_calls_total External service calls\n"
	output += "# TYPE voicebot_service_calls_total counter\n"
	for service, count := range globalMetrics.ServiceCalls {
		output += fmt.Sprintf("voicebot_service_calls_total{service=\"%s\"} %d\n", service, count)
	}

	return output
}
