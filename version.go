package tokenmeter

import (
	"sync"

	"github.com/stripe/stripe-go/v78"
)

const middlewareName = "token-meter-go"

var middlewareVersion = "0.1.0"

var appInfoOnce sync.Once

// registerAppInfo identifies this middleware on Stripe API requests.
// Registered once, on first Meter construction.
func registerAppInfo() {
	appInfoOnce.Do(func() {
		stripe.SetAppInfo(&stripe.AppInfo{
			Name:    middlewareName,
			Version: middlewareVersion,
			URL:     "https://github.com/stripe/token-meter-go",
		})
	})
}
