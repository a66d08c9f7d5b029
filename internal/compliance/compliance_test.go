package compliance

import (
	"testing"

	"github.com/WeAreTheArtMakers/mcryptoex/internal/apperr"
	"github.com/WeAreTheArtMakers/mcryptoex/internal/config"
)

func TestCheckDisabledAlwaysPasses(t *testing.T) {
	c := New(config.Compliance{EnforcementEnabled: false, BlockedCountries: []string{"kp"}})
	if err := c.Check("KP", "0xdead"); err != nil {
		t.Fatalf("expected no error when enforcement disabled, got %v", err)
	}
}

func TestCheckBlockedCountryReturnsGeofence(t *testing.T) {
	c := New(config.Compliance{EnforcementEnabled: true, BlockedCountries: []string{"kp"}})
	err := c.Check("KP", "")
	if err == nil {
		t.Fatal("expected a geofence error")
	}
	if apperr.StatusCode(err) != 451 {
		t.Fatalf("expected 451, got %d", apperr.StatusCode(err))
	}
}

func TestCheckSanctionedWalletReturns403(t *testing.T) {
	c := New(config.Compliance{EnforcementEnabled: true, BlockedWallets: []string{"0xdead"}})
	err := c.Check("", "0xDEAD")
	if err == nil {
		t.Fatal("expected a sanctions error")
	}
	if apperr.StatusCode(err) != 403 {
		t.Fatalf("expected 403, got %d", apperr.StatusCode(err))
	}
}
