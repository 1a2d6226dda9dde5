package services

import (
	"github.com/redis/go-redis/v9"

	"github.com/sendgate/sendgate/config"
	"github.com/sendgate/sendgate/interfaces"
	"github.com/sendgate/sendgate/internal/logger"
	"github.com/sendgate/sendgate/internal/repository"
	"github.com/sendgate/sendgate/services/admission"
	"github.com/sendgate/sendgate/services/batch"
	"github.com/sendgate/sendgate/services/contentgate"
	"github.com/sendgate/sendgate/services/dispatch"
	"github.com/sendgate/sendgate/services/idempotency"
	"github.com/sendgate/sendgate/services/quota"
	"github.com/sendgate/sendgate/services/reputation"
)

type Services struct {
	DispatchPublisher  *dispatch.RabbitMQPublisher
	DispatchSubscriber *dispatch.RabbitMQSubscriber

	IdempotencyService interfaces.IdempotencyService
	QuotaService       interfaces.QuotaService
	ContentGateService interfaces.ContentGateService
	AdmissionService   interfaces.AdmissionService
	BatchService       interfaces.BatchService
	ReputationService  interfaces.ReputationService
}

func InitServices(cfg *config.Config, redisClient *redis.Client, log logger.Logger, repos *repository.Repositories) (*Services, error) {
	publisherConfig := &dispatch.PublisherConfig{
		MessageTTL:          dispatch.DefaultMessageTTL,
		MaxRetries:          dispatch.DefaultMaxRetries,
		PublishTimeout:      dispatch.DefaultPublishTimeout,
		ReconnectBackoff:    dispatch.DefaultReconnectBackoff,
		MaxReconnectBackoff: dispatch.DefaultMaxReconnectBackoff,
	}
	publisher, err := dispatch.NewRabbitMQPublisher(cfg.AppConfig.RabbitMQURL, log, publisherConfig)
	if err != nil {
		return nil, err
	}

	subscriberConfig := &dispatch.SubscriberConfig{
		MaxRetries:          dispatch.DefaultMaxRetries,
		ReconnectBackoff:    dispatch.DefaultReconnectBackoff,
		MaxReconnectBackoff: dispatch.DefaultMaxReconnectBackoff,
	}
	subscriber, err := dispatch.NewRabbitMQSubscriber(cfg.AppConfig.RabbitMQURL, log, subscriberConfig)
	if err != nil {
		return nil, err
	}

	idempotencyService := idempotency.NewIdempotencyService(repos.IdempotencyRepository, log)
	quotaService := quota.NewQuotaService(redisClient, repos.TenantRepository, log)
	contentGateService := contentgate.NewContentGateService(cfg.ContentGateConfig, log)
	admissionService := admission.NewAdmissionService(
		idempotencyService,
		contentGateService,
		quotaService,
		repos.SendRecordRepository,
		publisher,
		log,
	)
	batchService := batch.NewBatchService(admissionService, repos.BatchRepository, repos.SendRecordRepository, log)
	reputationService := reputation.NewReputationService(cfg.ReputationConfig, repos.TenantRepository, repos.SendRecordRepository, log)

	return &Services{
		DispatchPublisher:  publisher,
		DispatchSubscriber: subscriber,
		IdempotencyService: idempotencyService,
		QuotaService:       quotaService,
		ContentGateService: contentGateService,
		AdmissionService:   admissionService,
		BatchService:       batchService,
		ReputationService:  reputationService,
	}, nil
}

// StartOutcomeConsumer wires the outcome feed consumer and starts
// draining the outcomes queue.
func (s *Services) StartOutcomeConsumer(log logger.Logger, repos *repository.Repositories) error {
	return s.DispatchSubscriber.Subscribe(dispatch.NewOutcomeListener(log, repos.SendRecordRepository))
}

func (s *Services) Close() {
	if s.DispatchPublisher != nil {
		_ = s.DispatchPublisher.Close()
	}
	if s.DispatchSubscriber != nil {
		_ = s.DispatchSubscriber.Close()
	}
}
