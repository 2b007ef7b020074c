package dirsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"helios/internal/platform/metrics"
	"helios/pkg/domain"
	"helios/pkg/requestcontext"
)

// Input is everything the extractors may see from a proxied call. Only
// successful (2xx) responses are offered.
type Input struct {
	OrganizationID domain.OrgID
	Family         string
	Method         string
	Path           string
	Enabled        []string
	Body           []byte
}

// Service runs extraction as a best-effort side effect. Every failure mode,
// including a panicking extractor, is contained here; nothing propagates to
// the dispatcher.
type Service struct {
	store      Store
	extractors []Extractor
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

type ServiceOption func(*Service)

func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

func NewService(store Store, extractors []Extractor, logger *slog.Logger, opts ...ServiceOption) *Service {
	s := &Service{store: store, extractors: extractors, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Apply evaluates the enabled extractors in registration order and upserts
// whatever the first recognizing one yields. No recognizing extractor is a
// no-op; that is what keeps never-seen endpoints safe to proxy.
func (s *Service) Apply(ctx context.Context, in Input) {
	entities, name, err := s.extract(in)
	if err != nil {
		s.fail(ctx, in, name, err)
		return
	}
	if len(entities) == 0 {
		return
	}

	now := requestcontext.Now(ctx).UTC()
	for i := range entities {
		entities[i].OrganizationID = in.OrganizationID
		entities[i].LastSyncedAt = now
	}

	if err := s.store.Upsert(ctx, entities); err != nil {
		s.fail(ctx, in, name, err)
		return
	}

	if s.metrics != nil {
		for _, e := range entities {
			s.metrics.SyncUpserts.WithLabelValues(string(e.Type)).Inc()
		}
	}
	s.logger.DebugContext(ctx, "directory cache updated",
		"extractor", name,
		"entities", len(entities),
		"family", in.Family,
		"request_id", requestcontext.RequestID(ctx),
	)
}

func (s *Service) extract(in Input) (entities []SyncedEntity, name string, err error) {
	defer func() {
		if r := recover(); r != nil {
			entities = nil
			err = fmt.Errorf("extractor panicked: %v", r)
		}
	}()

	for i := range s.extractors {
		ex := &s.extractors[i]
		if !slices.Contains(in.Enabled, ex.Name) {
			continue
		}
		if !ex.Triggers(in.Method, in.Path) {
			continue
		}

		name = ex.Name
		entities, err = ex.Extract(in.Body)
		if errors.Is(err, ErrNoMatch) {
			err = nil
			continue
		}
		return entities, name, err
	}
	return nil, "", nil
}

func (s *Service) fail(ctx context.Context, in Input, name string, err error) {
	if s.metrics != nil {
		s.metrics.SyncFailures.Inc()
	}
	s.logger.WarnContext(ctx, "sync extraction failed",
		"error", err,
		"extractor", name,
		"family", in.Family,
		"method", in.Method,
		"path", in.Path,
		"request_id", requestcontext.RequestID(ctx),
	)
}
