package health

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/23skdu/smellsense/internal/signature"
	"github.com/23skdu/smellsense/internal/similarity"
)

// SignatureStoreChecker verifies the reference store is populated and that
// every signature scores 1.0 against itself.
type SignatureStoreChecker struct {
	store *signature.Store
}

func NewSignatureStoreChecker(store *signature.Store) *SignatureStoreChecker {
	return &SignatureStoreChecker{store: store}
}

func (sc *SignatureStoreChecker) Name() string {
	return "signature_store"
}

func (sc *SignatureStoreChecker) Check(_ context.Context) *ComponentHealth {
	h := &ComponentHealth{
		Name:        sc.Name(),
		Status:      StatusHealthy,
		Message:     "Signature store loaded",
		LastChecked: time.Now(),
		Metadata: map[string]interface{}{
			"signatures": sc.store.Len(),
			"dimensions": signature.Dimensions,
		},
	}

	if sc.store.Len() == 0 {
		h.Status = StatusUnhealthy
		h.Message = "Signature store is empty"
		return h
	}

	sc.store.Each(func(sig signature.Signature) bool {
		score, err := similarity.Similarity(sig.Levels, sig.Levels)
		if err != nil || score != 1 {
			h.Status = StatusUnhealthy
			h.Message = fmt.Sprintf("Signature %q failed self-check", sig.Label)
			return false
		}
		return true
	})
	return h
}

// LoggingChecker checks logging system health
type LoggingChecker struct {
	logger zerolog.Logger
}

func NewLoggingChecker(logger zerolog.Logger) *LoggingChecker {
	return &LoggingChecker{logger: logger}
}

func (lc *LoggingChecker) Name() string {
	return "logging"
}

func (lc *LoggingChecker) Check(_ context.Context) *ComponentHealth {
	start := time.Now()

	// Test logging by writing a debug log entry
	lc.logger.Debug().Str("checker", lc.Name()).Msg("Health check test log entry")

	duration := time.Since(start)

	return &ComponentHealth{
		Name:        lc.Name(),
		Status:      StatusHealthy,
		Message:     "Logging system operational",
		LastChecked: time.Now(),
		Metadata: map[string]interface{}{
			"level":          lc.logger.GetLevel().String(),
			"check_duration": duration.String(),
		},
	}
}
