package extraction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/twmb/murmur3"

	"github.com/WailSalutem-Health-Care/emr-service/internal/apperr"
	"github.com/WailSalutem-Health-Care/emr-service/internal/blobstore"
	"github.com/WailSalutem-Health-Care/emr-service/internal/cache"
	"github.com/WailSalutem-Health-Care/emr-service/internal/clinical"
	"github.com/WailSalutem-Health-Care/emr-service/internal/messaging"
	"github.com/WailSalutem-Health-Care/emr-service/internal/telemetry"
)

const (
	DefaultTimeout = 30 * time.Second
	// MaxImageSize bounds ID card uploads.
	MaxImageSize = 5 << 20
)

// ImageTypes maps accepted image MIME types to file extensions.
var ImageTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

type Config struct {
	Model    string
	Timeout  time.Duration
	CacheTTL time.Duration
}

type Service struct {
	gen       Generator
	cache     cache.Cache
	store     blobstore.Store
	publisher messaging.PublisherInterface
	metrics   *telemetry.Metrics
	cfg       Config
	log       zerolog.Logger
	now       func() time.Time
}

var _ ServiceInterface = (*Service)(nil)

func NewService(gen Generator, c cache.Cache, store blobstore.Store, publisher messaging.PublisherInterface, metrics *telemetry.Metrics, cfg Config, log zerolog.Logger) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if c == nil {
		c = cache.Noop{}
	}
	if store == nil {
		store = blobstore.Disabled{}
	}
	return &Service{
		gen:       gen,
		cache:     c,
		store:     store,
		publisher: publisher,
		metrics:   metrics,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

// Extract parses a free-text note into a MedicalExtractionResult, then
// applies the deterministic normalization rules to what the model returned.
func (s *Service) Extract(ctx context.Context, tenantID, notes string) (*MedicalExtractionResult, error) {
	prompt, err := BuildExtractionPrompt(notes)
	if err != nil {
		return nil, err
	}

	var result MedicalExtractionResult
	err = s.run(ctx, tenantID, KindExtract, ExtractionSchema, &result, func(ctx context.Context) (string, error) {
		return s.gen.Generate(ctx, prompt)
	}, []byte(prompt))
	if err != nil {
		return nil, err
	}

	s.normalize(&result, notes)
	return &result, nil
}

func (s *Service) normalize(result *MedicalExtractionResult, notes string) {
	now := s.now()
	for i := range result.PastConditions {
		result.PastConditions[i].Notes = clinical.StampNote(now, result.PastConditions[i].Notes)
	}
	for i := range result.Assessment {
		result.Assessment[i].BodyPart = clinical.CanonicalBodyPart(result.Assessment[i].BodyPart)
	}

	if result.Vitals == nil {
		result.Vitals = &clinical.Vitals{}
	}
	result.Corrections = clinical.SpotCheck(result.Vitals, clinical.ScanVitals(notes))
	if result.Vitals.IsEmpty() {
		result.Vitals = nil
	}
}

// Categorize groups clinical text into categories with a summary.
func (s *Service) Categorize(ctx context.Context, tenantID, text string) (*CategorizationResult, error) {
	prompt, err := BuildCategorizationPrompt(text)
	if err != nil {
		return nil, err
	}

	var result CategorizationResult
	err = s.run(ctx, tenantID, KindCategorize, CategorizationSchema, &result, func(ctx context.Context) (string, error) {
		return s.gen.Generate(ctx, prompt)
	}, []byte(prompt))
	if err != nil {
		return nil, err
	}
	if result.KeyFindings == nil {
		result.KeyFindings = []string{}
	}
	return &result, nil
}

// Search answers query from a patient's record, which is sent to the model
// as JSON.
func (s *Service) Search(ctx context.Context, tenantID, query string, record []byte) (*SearchResult, error) {
	prompt, err := BuildSearchPrompt(query, string(record))
	if err != nil {
		return nil, err
	}

	var result SearchResult
	err = s.run(ctx, tenantID, KindSearch, SearchSchema, &result, func(ctx context.Context) (string, error) {
		return s.gen.Generate(ctx, prompt)
	}, []byte(prompt))
	if err != nil {
		return nil, err
	}
	if result.Citations == nil {
		result.Citations = []string{}
	}
	return &result, nil
}

// ScanIDCard archives the image and reads the holder's details from it.
func (s *Service) ScanIDCard(ctx context.Context, tenantID string, image []byte, mimeType string) (*IDCardResult, error) {
	if len(image) == 0 {
		return nil, apperr.Validationf("image is required")
	}
	ext, ok := ImageTypes[mimeType]
	if !ok {
		return nil, apperr.Validationf("unsupported image type %q, expected JPEG, PNG or WebP", mimeType)
	}
	if len(image) > MaxImageSize {
		return nil, apperr.Validationf("image exceeds the maximum size of %d bytes", MaxImageSize)
	}
	imageGen, ok := s.gen.(ImageGenerator)
	if !ok {
		return nil, errors.New("configured model does not accept images")
	}

	key := fmt.Sprintf("idcards/%s/%s.%s", tenantID, uuid.NewString(), ext)
	if _, err := s.store.Put(ctx, key, image, mimeType); err != nil {
		if !errors.Is(err, blobstore.ErrDisabled) {
			s.log.Warn().Err(err).Str("tenant_id", tenantID).Msg("failed to archive ID card image")
		}
		key = ""
	}

	prompt := BuildIDCardPrompt()
	var result IDCardResult
	err := s.run(ctx, tenantID, KindIDCard, IDCardSchema, &result, func(ctx context.Context) (string, error) {
		return imageGen.GenerateFromImage(ctx, prompt, image, mimeType)
	}, []byte(prompt), image)
	if err != nil {
		return nil, err
	}
	result.ImageKey = key
	return &result, nil
}

// run performs one model call: cache lookup, lock, bounded call, validation
// and cache fill. Identical requests across replicas share a lock so only
// one of them reaches the model.
func (s *Service) run(ctx context.Context, tenantID, kind string, schema *Schema, out interface{}, call func(context.Context) (string, error), payload ...[]byte) (err error) {
	start := time.Now()
	cached := false
	defer func() {
		s.finish(ctx, tenantID, kind, cached, time.Since(start), err)
	}()

	key := CacheKey(kind, tenantID, s.cfg.Model, payload...)
	if s.lookup(ctx, key, out) {
		cached = true
		return nil
	}

	release, lockErr := s.cache.Lock(ctx, key)
	if lockErr != nil {
		s.log.Warn().Err(lockErr).Str("kind", kind).Msg("calling model without lock")
	} else {
		defer func() {
			if err := release(); err != nil {
				s.log.Warn().Err(err).Str("kind", kind).Msg("failed to release lock")
			}
		}()
		if s.lookup(ctx, key, out) {
			cached = true
			return nil
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	raw, err := call(callCtx)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return apperr.Wrap(apperr.Internal, "model call timed out", err)
		}
		return apperr.Wrap(apperr.Internal, "model call failed", err)
	}

	if err := Validate(raw, schema, out); err != nil {
		s.log.Warn().Err(err).Str("kind", kind).Msg("rejected model output")
		return asAppError(err)
	}

	if err := s.cache.SetJSON(ctx, key, out, s.cfg.CacheTTL); err != nil {
		s.log.Warn().Err(err).Str("kind", kind).Msg("failed to cache model output")
	}
	return nil
}

func (s *Service) lookup(ctx context.Context, key string, out interface{}) bool {
	hit, err := s.cache.GetJSON(ctx, key, out)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("cache lookup failed")
		return false
	}
	return hit
}

func (s *Service) finish(ctx context.Context, tenantID, kind string, cached bool, elapsed time.Duration, err error) {
	outcome := telemetry.OutcomeSuccess
	if err != nil {
		outcome = apperr.KindOf(err).String()
	}
	ms := float64(elapsed.Microseconds()) / 1000
	s.metrics.RecordExtraction(ctx, kind, outcome, cached, ms)

	s.log.Info().
		Str("kind", kind).
		Str("tenant_id", tenantID).
		Str("outcome", outcome).
		Bool("cached", cached).
		Dur("duration", elapsed).
		Msg("model call finished")

	messaging.PublishAsync(s.publisher, s.log, messaging.EventExtractionCompleted, messaging.ExtractionCompletedEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventExtractionCompleted, tenantID),
		Data: messaging.ExtractionCompletedData{
			Kind:       kind,
			Outcome:    outcome,
			Cached:     cached,
			DurationMS: elapsed.Milliseconds(),
		},
	})
}

// CacheKey derives the result cache key from everything that shapes the
// model's answer.
func CacheKey(kind, tenantID, model string, payload ...[]byte) string {
	h := murmur3.New64()
	h.Write([]byte(tenantID))
	h.Write([]byte{0})
	h.Write([]byte(model))
	for _, p := range payload {
		h.Write([]byte{0})
		h.Write(p)
	}
	return fmt.Sprintf("ai:%s:%016x", kind, h.Sum64())
}
