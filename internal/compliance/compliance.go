// Package compliance enforces the country/wallet blocklists that gate
// /quote and /debug/emit-swap-note, surfaced as HTTP 451/403.
package compliance

import (
	"strings"

	"github.com/WeAreTheArtMakers/mcryptoex/internal/apperr"
	"github.com/WeAreTheArtMakers/mcryptoex/internal/config"
)

// Checker evaluates a request's country code and wallet address against
// the configured blocklists.
type Checker struct {
	enabled           bool
	blockedCountries  map[string]bool
	blockedWallets    map[string]bool
}

func New(cfg config.Compliance) *Checker {
	countries := make(map[string]bool, len(cfg.BlockedCountries))
	for _, c := range cfg.BlockedCountries {
		countries[strings.ToLower(c)] = true
	}
	wallets := make(map[string]bool, len(cfg.BlockedWallets))
	for _, w := range cfg.BlockedWallets {
		wallets[strings.ToLower(w)] = true
	}
	return &Checker{
		enabled:          cfg.EnforcementEnabled,
		blockedCountries: countries,
		blockedWallets:   wallets,
	}
}

// Check returns a tagged apperr.Error (451 or 403) when enforcement is
// enabled and either the country or wallet is blocked; nil otherwise.
func (c *Checker) Check(countryCode, walletAddress string) error {
	if !c.enabled {
		return nil
	}
	if countryCode != "" && c.blockedCountries[strings.ToLower(countryCode)] {
		return apperr.Geofenced(countryCode)
	}
	if walletAddress != "" && c.blockedWallets[strings.ToLower(walletAddress)] {
		return apperr.Sanctioned(walletAddress)
	}
	return nil
}
