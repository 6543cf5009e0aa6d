package utils

import (
	"os"
	"strconv"
	"time"

	"go.viam.com/planengine/logging"
)

const (
	// NumThreadsEnvVar overrides the default number of worker goroutines a planner may use.
	NumThreadsEnvVar = "PLANENGINE_NUM_THREADS"

	// PlanTimeoutEnvVar overrides the default time budget of a single Solve call.
	PlanTimeoutEnvVar = "PLANENGINE_PLAN_TIMEOUT"
)

// GetenvInt returns the integer value of the environment variable `name`, or `def` when the
// variable is unset or does not parse.
func GetenvInt(name string, def int) int {
	val := os.Getenv(name)
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return parsed
}

// GetPlanTimeout returns the PLANENGINE_PLAN_TIMEOUT duration if set, defaultTimeout otherwise.
func GetPlanTimeout(defaultTimeout time.Duration, logger logging.Logger) time.Duration {
	return timeoutHelper(defaultTimeout, PlanTimeoutEnvVar, logger)
}

func timeoutHelper(defaultTimeout time.Duration, timeoutEnvVar string, logger logging.Logger) time.Duration {
	if timeoutVal := os.Getenv(timeoutEnvVar); timeoutVal != "" {
		timeout, err := time.ParseDuration(timeoutVal)
		if err != nil {
			logger.Warnf("Failed to parse %s env var, falling back to default %v timeout",
				timeoutEnvVar, defaultTimeout)
			return defaultTimeout
		}
		return timeout
	}
	return defaultTimeout
}
