package app

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/thebackstage/backstage/internal/config"
	"github.com/thebackstage/backstage/internal/db"
	"github.com/thebackstage/backstage/internal/platform/spotify"
	"github.com/thebackstage/backstage/internal/repository"
	"github.com/thebackstage/backstage/internal/service"
	"github.com/thebackstage/backstage/internal/service/payment"
	"github.com/thebackstage/backstage/internal/storage"
	"github.com/thebackstage/backstage/internal/worker"
	"golang.org/x/oauth2"
)

type App struct {
	Cfg                  *config.Config
	DB                   *sqlx.DB
	FileStorage          storage.Storage
	AuthService          *service.AuthService
	EmailService         *service.EmailService
	SubscriptionService  *service.SubscriptionService
	PaymentProvider      payment.Provider
	GateService          *service.GateService
	SubmissionService    *service.SubmissionService
	ContactService       *service.ContactService
	AnalyticsService     *service.AnalyticsService
	OAuthStateService    *service.OAuthStateService
	VerificationService  *service.VerificationService
	DownloadTokenService *service.DownloadTokenService
	Autosave             *worker.Autosave
}

func New(cfg *config.Config) (*App, error) {
	// Initialize database
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %v", err)
	}

	// Run database migrations
	err = db.RunMigrations(database.DB, cfg.DBDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %v", err)
	}

	// Repositories
	userRepository := repository.NewUserRepository(database)
	tokenRepository := repository.NewTokenRepository(database)
	subscriptionRepository := repository.NewSubscriptionRepository(database)
	gateRepository := repository.NewGateRepository(database)
	submissionRepository := repository.NewSubmissionRepository(database)
	contactRepository := repository.NewContactRepository(database)
	gateEventRepository := repository.NewGateEventRepository(database)
	oauthStateRepository := repository.NewOAuthStateRepository(database)
	connectionRepository := repository.NewConnectionRepository(database)
	downloadTokenRepository := repository.NewDownloadTokenRepository(database)

	// Storage
	fileStorage, err := storage.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %v", err)
	}

	// Services
	emailService := service.NewEmailService(
		cfg.ResendAPIKey,
		cfg.EmailFrom,
		cfg.ResendAudienceID,
		cfg.AppURL,
		cfg.AppName,
		cfg.IsDevelopment(),
	)
	subscriptionService := service.NewSubscriptionService(subscriptionRepository)

	paymentProvider, err := payment.NewProvider(cfg, subscriptionService)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize payment provider: %v", err)
	}

	gateService := service.NewGateService(gateRepository, subscriptionService)
	analyticsService := service.NewAnalyticsService(gateEventRepository)
	contactService := service.NewContactService(contactRepository, emailService)
	submissionService := service.NewSubmissionService(
		submissionRepository,
		gateService,
		contactService,
		analyticsService,
	)
	oauthStateService := service.NewOAuthStateService(oauthStateRepository, cfg.OAuthStateExpiry)
	verificationService := service.NewVerificationService(
		submissionRepository,
		connectionRepository,
		gateService,
	)
	authService := service.NewAuthService(
		userRepository,
		tokenRepository,
		subscriptionService,
		emailService,
		cfg.JWTSecret,
		cfg.IsProduction(),
		cfg.JWTExpiry,
		cfg.TokenMagicLinkExpiry,
	)
	downloadTokenService := service.NewDownloadTokenService(
		downloadTokenRepository,
		submissionRepository,
		gateService,
		analyticsService,
		fileStorage,
		cfg.DownloadTokenExpiry,
	)

	// The auto-save worker only makes sense with a Spotify app configured.
	var autosave *worker.Autosave
	if cfg.SpotifyClientID != "" {
		spotifyOAuth := &oauth2.Config{
			ClientID:     cfg.SpotifyClientID,
			ClientSecret: cfg.SpotifyClientSecret,
			RedirectURL:  cfg.AppURL + "/connect/spotify/callback",
			Scopes:       []string{"user-read-email", "user-library-read", "user-library-modify"},
			Endpoint:     spotify.OAuthEndpoint,
		}
		autosave = worker.NewAutosave(
			connectionRepository,
			submissionService,
			gateService,
			spotifyOAuth,
			cfg.AutosaveInterval,
			cfg.AutosaveCallDelay,
		)
	}

	return &App{
		Cfg:                  cfg,
		DB:                   database,
		FileStorage:          fileStorage,
		AuthService:          authService,
		EmailService:         emailService,
		SubscriptionService:  subscriptionService,
		PaymentProvider:      paymentProvider,
		GateService:          gateService,
		SubmissionService:    submissionService,
		ContactService:       contactService,
		AnalyticsService:     analyticsService,
		OAuthStateService:    oauthStateService,
		VerificationService:  verificationService,
		DownloadTokenService: downloadTokenService,
		Autosave:             autosave,
	}, nil
}

func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
