package escrow

import "github.com/btcsuite/btclog"

// log is the package-scoped subsystem logger, wired exactly the way lnd's
// subsystems accept a logger from the caller instead of constructing one,
// defaulting to a disabled logger until UseLogger is called.
var log = btclog.Disabled

// UseLogger installs a logger to be used by this package. This should be
// called before any escrow operation runs, typically during host
// application init.
func UseLogger(logger btclog.Logger) {
	log = logger
}
