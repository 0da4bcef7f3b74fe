// Package server wires the operator HTTP API and the cron scheduler.
package server

import "github.com/google/wire"

// ProviderSet is server providers.
var ProviderSet = wire.NewSet(NewHTTPServer, NewCronServer)
