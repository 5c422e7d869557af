package cleanup

import (
	"context"
	"errors"
	"io/fs"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"

	"github.com/temirov/brrbatch/internal/paths"
)

const (
	// DefaultAttempts bounds the number of removal attempts per artifact.
	DefaultAttempts = 6
	// DefaultDelay separates consecutive removal attempts.
	DefaultDelay = 50 * time.Millisecond

	removalRetryMessageConstant     = "temporary artifact removal retry"
	removalSucceededMessageConstant = "temporary artifact removed"
	removalOrphanedMessageConstant  = "Could not remove temporary BRR file"
	pathFieldNameConstant           = "path"
	attemptFieldNameConstant        = "attempt"
	attemptsFieldNameConstant       = "attempts"
)

// Options configures the retry budget.
type Options struct {
	Attempts int
	Delay    time.Duration
}

// Outcome records what happened to a single temporary artifact.
type Outcome struct {
	Attempts  int
	Removed   bool
	Orphaned  bool
	LastError error
}

// TempArtifactManager deletes temporary artifacts with bounded fixed-delay retries.
type TempArtifactManager struct {
	logger     *zap.Logger
	fileSystem paths.FileSystem
	attempts   int
	delay      time.Duration
}

// NewTempArtifactManager builds a manager. A non-positive attempt count or a negative delay
// falls back to the defaults.
func NewTempArtifactManager(logger *zap.Logger, fileSystem paths.FileSystem, options Options) *TempArtifactManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if fileSystem == nil {
		fileSystem = paths.OSFileSystem{}
	}
	attempts := options.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	delay := options.Delay
	if delay < 0 {
		delay = DefaultDelay
	}
	return &TempArtifactManager{logger: logger, fileSystem: fileSystem, attempts: attempts, delay: delay}
}

// Cleanup removes temporaryPath. A missing file consumes no attempts. Exhausting the
// budget logs a warning and reports the artifact as orphaned; it is never returned as an error.
func (manager *TempArtifactManager) Cleanup(executionContext context.Context, temporaryPath string) Outcome {
	if _, statError := manager.fileSystem.Stat(temporaryPath); errors.Is(statError, fs.ErrNotExist) {
		return Outcome{}
	}

	// A cancelled batch still removes the artifact of an item that already finished.
	cleanupContext := context.WithoutCancel(executionContext)
	outcome := Outcome{}
	removalError := retry.Do(
		func() error {
			outcome.Attempts++
			removeError := manager.fileSystem.Remove(temporaryPath)
			if removeError == nil || errors.Is(removeError, fs.ErrNotExist) {
				return nil
			}
			return removeError
		},
		retry.Context(cleanupContext),
		retry.Attempts(uint(manager.attempts)),
		retry.Delay(manager.delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(attemptIndex uint, attemptError error) {
			manager.logger.Debug(
				removalRetryMessageConstant,
				zap.String(pathFieldNameConstant, temporaryPath),
				zap.Uint(attemptFieldNameConstant, attemptIndex+1),
				zap.Error(attemptError),
			)
		}),
	)

	if removalError != nil {
		outcome.Orphaned = true
		outcome.LastError = removalError
		manager.logger.Warn(
			removalOrphanedMessageConstant,
			zap.String(pathFieldNameConstant, temporaryPath),
			zap.Int(attemptsFieldNameConstant, outcome.Attempts),
			zap.Error(removalError),
		)
		return outcome
	}

	outcome.Removed = true
	manager.logger.Debug(
		removalSucceededMessageConstant,
		zap.String(pathFieldNameConstant, temporaryPath),
		zap.Int(attemptsFieldNameConstant, outcome.Attempts),
	)
	return outcome
}
