package config

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/draftea/checkout-system/checkout-service/application"
	"github.com/draftea/checkout-system/checkout-service/domain"
	"github.com/draftea/checkout-system/checkout-service/handlers"
	"github.com/draftea/checkout-system/checkout-service/infrastructure"
	"github.com/draftea/checkout-system/shared/events"
	sharedinfra "github.com/draftea/checkout-system/shared/infrastructure"
	"github.com/draftea/checkout-system/shared/logging"
	"github.com/draftea/checkout-system/shared/models"
	"github.com/draftea/checkout-system/shared/telemetry"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type Dependencies struct {
	Logger    *zap.Logger
	Telemetry *telemetry.Telemetry

	// Storage
	DB    *sqlx.DB
	Redis *redis.Client

	// Repositories
	Orders         domain.OrderRepository
	Products       domain.ProductRepository
	PaymentMethods domain.PaymentMethodRepository
	Transactions   domain.PaymentTransactionRepository

	// Use Cases
	Inventory           *application.InventoryService
	Providers           *application.ProviderRegistry
	Checkout            *application.CheckoutSaga
	GetOrder            *application.GetOrder
	CancelOrder         *application.CancelOrder
	CreatePaymentIntent *application.CreatePaymentIntent
	ConfirmPayment      *application.ConfirmPayment
	RefundPayment       *application.RefundPayment
	GetPaymentStatus    *application.GetPaymentStatus

	// HTTP Handlers
	CheckoutHandlers *handlers.CheckoutHandlers

	// Event Handlers
	ProviderUpdateHandlers *handlers.ProviderUpdateHandlers

	// Infrastructure
	EventPublisher  events.Publisher
	Notifier        domain.NotificationDispatcher
	EventSubscriber *sharedinfra.SQSEventSubscriber

	closers []func() error
}

// BuildDependencies wires storage, providers and transports from config.
// On error everything opened so far is closed.
func BuildDependencies(ctx context.Context, config *Config) (*Dependencies, error) {
	deps := &Dependencies{}
	if err := deps.build(ctx, config); err != nil {
		_ = deps.Close()
		return nil, err
	}
	return deps, nil
}

func (d *Dependencies) build(ctx context.Context, config *Config) error {
	logger, err := logging.NewLogger(config.ServiceName, config.Env, config.LogLevel)
	if err != nil {
		return errors.Wrap(err, "failed to create logger")
	}
	d.Logger = logger
	d.onClose(func() error {
		// stdout sync fails on some platforms
		_ = logger.Sync()
		return nil
	})

	if err := d.buildTelemetry(ctx, config); err != nil {
		return err
	}
	if err := d.buildStorage(ctx, config); err != nil {
		return err
	}

	awsCfg, err := loadAWSConfig(ctx, config)
	if err != nil {
		return err
	}
	d.buildTransports(config, awsCfg)

	d.buildProviders(config)

	// Initialize use cases
	d.Inventory = application.NewInventoryService(d.Products, d.EventPublisher)
	d.Checkout = application.NewCheckoutSaga(d.Orders, d.PaymentMethods, d.Transactions, d.Inventory, d.Providers, d.EventPublisher, d.Notifier)
	d.GetOrder = application.NewGetOrder(d.Orders)
	d.CancelOrder = application.NewCancelOrder(d.Orders, d.Inventory, d.EventPublisher)
	d.CreatePaymentIntent = application.NewCreatePaymentIntent(d.Orders, d.PaymentMethods, d.Transactions, d.Providers, d.EventPublisher)
	d.ConfirmPayment = application.NewConfirmPayment(d.Orders, d.Transactions, d.Providers, d.EventPublisher)
	d.RefundPayment = application.NewRefundPayment(d.Transactions, d.Providers, d.EventPublisher)
	d.GetPaymentStatus = application.NewGetPaymentStatus(d.Orders, d.Transactions, d.Providers, d.EventPublisher)

	// Initialize handlers
	d.CheckoutHandlers = handlers.NewCheckoutHandlers(
		d.Checkout,
		d.GetOrder,
		d.CancelOrder,
		d.CreatePaymentIntent,
		d.ConfirmPayment,
		d.RefundPayment,
		d.GetPaymentStatus,
	)
	d.ProviderUpdateHandlers = handlers.NewProviderUpdateHandlers(d.GetPaymentStatus)

	if config.AWS.ProviderUpdatesQueueURL != "" {
		d.EventSubscriber = sharedinfra.NewSQSEventSubscriberFromConfig(
			awsCfg,
			config.AWS.EndpointSQS,
			config.AWS.ProviderUpdatesQueueURL,
			d.ProviderUpdateHandlers,
			logger,
		)
		d.onClose(d.EventSubscriber.Stop)
	}

	return nil
}

func (d *Dependencies) buildTelemetry(ctx context.Context, config *Config) error {
	telemetryConfig := telemetry.CheckoutServiceConfig.
		WithServiceName(config.ServiceName).
		WithEnvironment(config.Env).
		WithSampleRatio(config.Telemetry.SampleRatio).
		WithOTLPEndpoint(config.Telemetry.OTLPEndpoint)

	if !config.Telemetry.Enabled {
		d.Telemetry = telemetry.NewTelemetry(telemetryConfig)
		return nil
	}

	tel, shutdown, err := telemetry.InitTelemetry(ctx, telemetryConfig)
	if err != nil {
		return errors.Wrap(err, "failed to initialize telemetry")
	}
	d.Telemetry = tel
	d.onClose(func() error {
		shutdown()
		return nil
	})
	return nil
}

func (d *Dependencies) buildStorage(ctx context.Context, config *Config) error {
	if config.Storage.Backend == StorageMemory {
		products := infrastructure.NewMemoryProductRepository()
		methods := infrastructure.NewMemoryPaymentMethodRepository()
		if err := seedCatalog(config.Seed, products, methods); err != nil {
			return err
		}

		d.Orders = infrastructure.NewMemoryOrderRepository()
		d.Transactions = infrastructure.NewMemoryPaymentTransactionRepository()
		d.PaymentMethods = methods
		d.Products = d.cacheProducts(config, products)

		d.Logger.Info("using in-memory storage",
			zap.Int("products", len(config.Seed.Products)),
			zap.Int("payment_methods", len(config.Seed.PaymentMethods)))
		return nil
	}

	// Initialize database
	db, err := sqlx.ConnectContext(ctx, config.Database.Driver, config.GetDatabaseURL())
	if err != nil {
		return errors.Wrap(err, "failed to connect to database")
	}
	d.DB = db
	d.onClose(func() error {
		return errors.Wrap(db.Close(), "failed to close database")
	})

	if err := infrastructure.InitSchema(ctx, db); err != nil {
		return errors.Wrap(err, "failed to initialize schema")
	}

	d.Orders = infrastructure.NewPostgresOrderRepository(db)
	d.Transactions = infrastructure.NewPostgresPaymentTransactionRepository(db)
	d.PaymentMethods = infrastructure.NewPostgresPaymentMethodRepository(db)
	d.Products = d.cacheProducts(config, infrastructure.NewPostgresProductRepository(db))

	d.Logger.Info("using postgres storage", zap.String("driver", config.Database.Driver))
	return nil
}

func (d *Dependencies) cacheProducts(config *Config, products domain.ProductRepository) domain.ProductRepository {
	if !config.Redis.Enabled {
		return products
	}

	client := redis.NewClient(&redis.Options{Addr: config.Redis.Addr})
	d.Redis = client
	d.onClose(func() error {
		return errors.Wrap(client.Close(), "failed to close redis")
	})

	return infrastructure.NewCachedProductRepository(products, client, config.Redis.ProductTTL, d.Logger)
}

func loadAWSConfig(ctx context.Context, config *Config) (aws.Config, error) {
	if config.Events.Backend != EventsSNS && config.AWS.NotificationsQueueURL == "" && config.AWS.ProviderUpdatesQueueURL == "" {
		return aws.Config{}, nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(config.AWS.Region))
	if err != nil {
		return aws.Config{}, errors.Wrap(err, "failed to load aws config")
	}
	return cfg, nil
}

func (d *Dependencies) buildTransports(config *Config, awsCfg aws.Config) {
	switch config.Events.Backend {
	case EventsSNS:
		d.EventPublisher = sharedinfra.NewSNSEventPublisherFromConfig(awsCfg, config.AWS.EndpointSNS, config.AWS.SNSTopicArn, d.Logger)
	case EventsKafka:
		publisher := sharedinfra.NewKafkaEventPublisher(sharedinfra.NewKafkaWriter(config.Events.KafkaBrokers, config.Events.KafkaTopic))
		d.EventPublisher = publisher
		d.onClose(func() error {
			return errors.Wrap(publisher.Close(), "failed to close event publisher")
		})
	default:
		d.EventPublisher = sharedinfra.NewLogEventPublisher(d.Logger)
	}

	if config.AWS.NotificationsQueueURL != "" {
		d.Notifier = infrastructure.NewSQSNotificationDispatcherFromConfig(awsCfg, config.AWS.EndpointSQS, config.AWS.NotificationsQueueURL)
	} else {
		d.Notifier = infrastructure.NewLogNotificationDispatcher(d.Logger)
	}
}

func (d *Dependencies) buildProviders(config *Config) {
	var providers []domain.Provider
	if config.Gateways.Stripe.Enabled {
		providers = append(providers, domain.NewGatewayProvider(domain.PaymentProviderStripe, infrastructure.NewStripeGateway(infrastructure.StripeConfig{
			BaseURL:   config.Gateways.Stripe.BaseURL,
			SecretKey: config.Gateways.Stripe.SecretKey,
			Timeout:   config.Gateways.Stripe.Timeout,
		}, d.Logger)))
	}
	if config.Gateways.Sandbox.Enabled {
		providers = append(providers, domain.NewGatewayProvider(domain.PaymentProviderSandbox, infrastructure.NewSandboxGateway()))
	}
	if len(providers) == 0 {
		d.Logger.Warn("no payment gateway enabled, only manual settlement is available")
	}

	d.Providers = application.NewProviderRegistry(providers...)
}

func seedCatalog(seed Seed, products *infrastructure.MemoryProductRepository, methods *infrastructure.MemoryPaymentMethodRepository) error {
	for _, p := range seed.Products {
		id, err := models.NewID(p.ID)
		if err != nil {
			return errors.Wrapf(err, "invalid seed product id %q", p.ID)
		}
		tenantID, err := models.NewID(p.TenantID)
		if err != nil {
			return errors.Wrapf(err, "invalid seed tenant id %q", p.TenantID)
		}
		products.Save(&domain.Product{
			ID:         id,
			TenantID:   tenantID,
			Name:       p.Name,
			Inventory:  p.Inventory,
			Price:      models.NewMoney(p.Price, p.Currency),
			Timestamps: models.NewTimestamps(),
			Version:    models.NewVersion(),
		})
	}

	for _, m := range seed.PaymentMethods {
		id, err := models.NewID(m.ID)
		if err != nil {
			return errors.Wrapf(err, "invalid seed payment method id %q", m.ID)
		}
		tenantID, err := models.NewID(m.TenantID)
		if err != nil {
			return errors.Wrapf(err, "invalid seed tenant id %q", m.TenantID)
		}
		methodType, err := domain.NewPaymentMethodType(m.Type)
		if err != nil {
			return err
		}
		methods.Save(&domain.PaymentMethod{
			ID:         id,
			TenantID:   tenantID,
			Name:       m.Name,
			Type:       methodType,
			Provider:   domain.PaymentProvider(m.Provider),
			IsActive:   m.Active,
			Timestamps: models.NewTimestamps(),
		})
	}

	return nil
}

func (d *Dependencies) onClose(fn func() error) {
	d.closers = append(d.closers, fn)
}

// Close releases resources in reverse order of acquisition
func (d *Dependencies) Close() error {
	var errs error
	for i := len(d.closers) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, d.closers[i]())
	}
	d.closers = nil
	return errs
}
