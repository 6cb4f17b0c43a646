package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/framegate/framegate/internal/domain/entity"
	"github.com/framegate/framegate/internal/domain/repair"
	"github.com/framegate/framegate/internal/domain/repository"
	"github.com/framegate/framegate/internal/domain/schema"
	"github.com/framegate/framegate/internal/domain/service"
	"github.com/framegate/framegate/internal/domain/tool"
	"github.com/framegate/framegate/internal/infrastructure/artifacts"
	"github.com/framegate/framegate/internal/infrastructure/config"
)

// StreamInput is one stream request as the transports hand it over.
type StreamInput struct {
	Prompt         string
	Mode           string // test mode selector; empty for real traffic
	TestKey        string // opaque per-run tag, recorded but otherwise inert
	IdempotencyKey string
}

// StreamUseCase assembles and runs one session per request over the
// process-wide collaborators (provider, schema registry, tool
// registry, idempotency cache, session store).
type StreamUseCase struct {
	cfg       *config.Config
	provider  service.Provider
	schemas   *schema.Registry
	tools     tool.Registry
	idemCache *service.IdempotencyCache
	sessions  repository.SessionRepository
	logger    *zap.Logger
}

// NewStreamUseCase wires the use case.
func NewStreamUseCase(
	cfg *config.Config,
	provider service.Provider,
	schemas *schema.Registry,
	tools tool.Registry,
	idemCache *service.IdempotencyCache,
	sessions repository.SessionRepository,
	logger *zap.Logger,
) *StreamUseCase {
	return &StreamUseCase{
		cfg:       cfg,
		provider:  provider,
		schemas:   schemas,
		tools:     tools,
		idemCache: idemCache,
		sessions:  sessions,
		logger:    logger,
	}
}

// Run executes one session against em and returns its metrics along
// with the session id. The emitter is closed before Run returns.
func (u *StreamUseCase) Run(ctx context.Context, input StreamInput, em service.Emitter) (service.Metrics, string) {
	sessionID := uuid.NewString()

	var writer service.ArtifactsWriter
	fileWriter, err := artifacts.NewWriter(u.cfg.Artifacts.Dir, sessionID)
	if err != nil {
		u.logger.Warn("Artifacts unavailable, session will not be persisted to disk",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		writer = artifacts.Nop{}
	} else {
		writer = fileWriter
		defer fileWriter.Close()
	}

	validator := schema.NewValidator(u.schemas, u.logger)
	repairer := repair.NewRepairer(u.schemas, u.logger)
	orch := service.NewOrchestrator(u.tools, u.idemCache, service.OrchestratorConfig{
		Timeout: time.Duration(u.cfg.Session.ToolTimeoutMs) * time.Millisecond,
		Retries: u.cfg.Session.ToolRetries,
	}, u.logger)

	sess := service.NewSession(sessionID, u.cfg.ToSessionConfig(),
		u.provider, em, validator, repairer, orch, writer, u.logger)

	metrics := sess.Run(ctx, service.Request{
		Prompt:          input.Prompt,
		Mode:            input.Mode,
		TestKey:         input.TestKey,
		IdempotencyKey:  input.IdempotencyKey,
		RetriesOverride: retriesOverride(input.Mode),
	})

	u.record(sessionID, input, metrics)
	return metrics, sessionID
}

// retriesOverride disables the retry budget for the timeout mode so a
// stalled tool produces exactly one attempt and one error result.
func retriesOverride(mode string) *int {
	if mode == "timeout_test" {
		zero := 0
		return &zero
	}
	return nil
}

// record stores the completed session. Uses a fresh context: the
// request context is usually already cancelled at this point.
func (u *StreamUseCase) record(sessionID string, input StreamInput, m service.Metrics) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := u.sessions.Save(ctx, &entity.SessionRecord{
		ID:             sessionID,
		Prompt:         input.Prompt,
		Mode:           input.Mode,
		IdempotencyKey: input.IdempotencyKey,
		Model:          m.Model,
		TotalMs:        m.TotalMs,
		ToolLatencyMs:  m.ToolLatencyMs,
		OKJSON:         m.Validation.OKJSON,
		BadJSON:        m.Validation.BadJSON,
		OKResult:       m.Validation.OKResult,
		BadResult:      m.Validation.BadResult,
		Degraded:       m.Degraded,
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		u.logger.Warn("Failed to store session record",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
	}
}

// Sessions exposes the session store to read-side handlers.
func (u *StreamUseCase) Sessions() repository.SessionRepository {
	return u.sessions
}

// Model returns the active provider's model id.
func (u *StreamUseCase) Model() string {
	return u.provider.Model()
}

// QueueCapacity returns the configured emitter bound for the
// transports to size their queues with.
func (u *StreamUseCase) QueueCapacity() int {
	return u.cfg.Session.MaxQueuedChunks
}
