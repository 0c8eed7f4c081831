package views

import (
	"context"
	"fmt"

	"github.com/wolfman30/barbershop-scheduler/internal/scheduling"
	"github.com/wolfman30/barbershop-scheduler/pkg/logging"
)

// ProviderLister lists providers.
type ProviderLister interface {
	ListProviders(ctx context.Context) ([]scheduling.Provider, error)
}

// ProviderSummary is one directory row.
type ProviderSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	AvatarURL string `json:"avatar_url"`
}

// Directory lists the providers a client can book with.
type Directory struct {
	lister  ProviderLister
	avatars AvatarURLs
	logger  *logging.Logger
}

func NewDirectory(lister ProviderLister, avatars AvatarURLs, logger *logging.Logger) *Directory {
	if logger == nil {
		logger = logging.Default()
	}
	return &Directory{lister: lister, avatars: avatars, logger: logger}
}

// List returns every provider. No providers is an empty list.
func (d *Directory) List(ctx context.Context) ([]ProviderSummary, error) {
	providers, err := d.lister.ListProviders(ctx)
	if err != nil {
		d.logger.Error("views: list providers failed", "error", err)
		return nil, fmt.Errorf("views: list providers: %w", err)
	}
	out := make([]ProviderSummary, 0, len(providers))
	for _, p := range providers {
		out = append(out, ProviderSummary{
			ID:        p.ID,
			Name:      p.Name,
			Email:     p.Email,
			AvatarURL: avatarURL(ctx, d.avatars, p.AvatarRef),
		})
	}
	return out, nil
}
