package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/apache/pulsar-client-go/pulsar"
	"github.com/ecotracker/fillstate/internal/coordinator"
	"github.com/ecotracker/fillstate/internal/livebcast"
	"github.com/ecotracker/fillstate/internal/metastore"
	catalogstore "github.com/ecotracker/fillstate/internal/metastore/coordinator"
	"github.com/ecotracker/fillstate/internal/metastore/db/dao"
	"github.com/ecotracker/fillstate/internal/metastore/db/dbcore"
	"github.com/ecotracker/fillstate/internal/notification"
	"github.com/ecotracker/fillstate/internal/registry"
	"github.com/gorilla/handlers"
	"github.com/pingcap/log"
	"go.uber.org/zap"
)

type Config struct {
	// HTTP config
	BindAddress string

	// Catalog provider, memory or database
	CatalogProvider string

	// Database config
	Username     string
	Password     string
	Address      string
	Port         int
	DBName       string
	SslMode      string
	MaxIdleConns int
	MaxOpenConns int

	// Firehose config, disabled when PulsarURL is empty
	PulsarURL   string
	PulsarTopic string

	// Push config, disabled when the credentials file is empty
	FCMCredentialsFile         string
	PushFreshnessWindowSeconds int

	// PushSender overrides the FCM transport when set
	PushSender notification.PushSender

	// Config for testing
	Testing bool
}

// Server wires the coordinator, the live hub and the dispatcher behind
// the HTTP API.
//
// When Testing is set to true the HTTP listener is not started, which
// is convenient for end-to-end testing against the router directly.
type Server struct {
	coordinator coordinator.ICoordinator
	registry    *registry.Registry
	hub         *livebcast.Hub
	dispatcher  *notification.Dispatcher

	pulsarClient   pulsar.Client
	pulsarProducer pulsar.Producer
	httpServer     *http.Server
	handler        http.Handler
}

func New(config Config) (*Server, error) {
	ctx := context.Background()

	var catalog metastore.Catalog
	switch config.CatalogProvider {
	case "memory":
		catalog = catalogstore.NewMemoryCatalog()
	case "database":
		_, err := dbcore.ConnectPostgres(dbcore.DBConfig{
			Username:     config.Username,
			Password:     config.Password,
			Address:      config.Address,
			Port:         config.Port,
			DBName:       config.DBName,
			SslMode:      config.SslMode,
			MaxIdleConns: config.MaxIdleConns,
			MaxOpenConns: config.MaxOpenConns,
		})
		if err != nil {
			return nil, err
		}
		catalog = catalogstore.NewTableCatalog(dbcore.NewTxImpl(), dao.NewMetaDomain())
	default:
		return nil, errors.New("invalid catalog provider, only memory and database are supported")
	}

	s := &Server{
		registry: registry.NewRegistry(),
	}
	s.hub = livebcast.NewHub(s.registry)

	var notifier notification.Notifier
	if config.PulsarURL != "" {
		client, err := pulsar.NewClient(pulsar.ClientOptions{URL: config.PulsarURL})
		if err != nil {
			return nil, err
		}
		producer, err := client.CreateProducer(pulsar.ProducerOptions{Topic: config.PulsarTopic})
		if err != nil {
			client.Close()
			return nil, err
		}
		s.pulsarClient = client
		s.pulsarProducer = producer
		notifier = notification.NewPulsarNotifier(producer)
	}

	sender := config.PushSender
	if sender == nil && config.FCMCredentialsFile != "" {
		fcmSender, err := notification.NewFCMSender(ctx, config.FCMCredentialsFile)
		if err != nil {
			return nil, err
		}
		sender = fcmSender
	}

	s.dispatcher = notification.NewDispatcher(s.registry, catalog, s.hub, notifier, sender, notification.DispatcherConfig{
		PushFreshnessWindow: time.Duration(config.PushFreshnessWindowSeconds) * time.Second,
	})

	c, err := coordinator.NewCoordinator(ctx, catalog)
	if err != nil {
		return nil, err
	}
	s.coordinator = c
	s.coordinator.Start()
	s.hub.Start()

	router := s.routes()
	s.handler = handlers.RecoveryHandler()(handlers.LoggingHandler(os.Stdout, router))

	if !config.Testing {
		s.httpServer = &http.Server{
			Addr:    config.BindAddress,
			Handler: s.handler,
		}
		go func() {
			log.Info("http server listening", zap.String("address", config.BindAddress))
			if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("http server stopped", zap.Error(err))
			}
		}()
	}
	return s, nil
}

// Handler exposes the routed handler for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) Close() error {
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Error("failed to shut down http server", zap.Error(err))
		}
	}
	s.hub.Stop()
	s.coordinator.Stop()
	if s.pulsarProducer != nil {
		s.pulsarProducer.Close()
	}
	if s.pulsarClient != nil {
		s.pulsarClient.Close()
	}
	return nil
}
