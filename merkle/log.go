package merkle

import "github.com/btcsuite/btclog"

var log = btclog.Disabled

// UseLogger installs a logger to be used by this package.
func UseLogger(logger btclog.Logger) {
	log = logger
}
