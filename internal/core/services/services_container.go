package services

import (
	portsrepo "github.com/SscSPs/credit_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/credit_ledger/internal/core/ports/services"
	"github.com/SscSPs/credit_ledger/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, provider portssvc.JobProvider) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	container.Pricing = NewPricingService()
	container.Account = NewAccountService(
		repos.LedgerRepo,
		container.Pricing,
		WithWelcomeCredits(cfg.WelcomeCredits),
		WithBundleID(cfg.AppleBundleID),
	)
	container.Lock = NewGenerationLockService(repos.LockRepo)
	container.Refund = NewRefundService(repos.LedgerRepo)

	// The generation service polls through the notification guard, so build it first.
	container.Notification = NewNotificationService(
		repos.JobRepo,
		repos.NotificationRepo,
		container.Refund,
		provider,
		NotificationSettings{
			ServiceURL:       cfg.ServiceURL,
			VerifyOnComplete: cfg.VerifyProviderOnComplete,
			DownloadURLTTL:   cfg.DownloadURLTTL,
			ProviderTimeout:  cfg.ProviderTimeout,
		},
	)
	container.Generation = NewGenerationService(
		repos.LedgerRepo,
		repos.JobRepo,
		container.Lock,
		container.Refund,
		container.Notification,
		container.Pricing,
		provider,
		WithProviderTimeout(cfg.ProviderTimeout),
		WithDailyQuota(cfg.MaxGenerationsPerDay),
	)

	return container
}
