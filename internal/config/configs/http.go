package configs

// HTTP defines configuration for the ops HTTP server hosting the run
// trigger, the spend-sync hook and the ledger query endpoints.
type HTTP struct {
	// Port is the TCP port the HTTP server will listen on. Defaults to 8080.
	Port uint16 `env:"PORT" envDefault:"8080"`
}
