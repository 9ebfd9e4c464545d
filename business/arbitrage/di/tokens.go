// Package di contains dependency injection tokens for the arbitrage context.
package di

import (
	"github.com/fd1az/albion-market-router/business/arbitrage/app"
	"github.com/fd1az/albion-market-router/internal/di"
)

// Public service tokens
var (
	Scanner  = di.NewToken[*app.Scanner]("arbitrage.Scanner")
	Detector = di.NewToken[*app.Detector]("arbitrage.Detector")
	Reporter = di.NewToken[app.Reporter]("arbitrage.Reporter")
)

func GetScanner(c di.ServiceRegistry) *app.Scanner {
	return di.GetToken(c, Scanner)
}

func GetDetector(c di.ServiceRegistry) *app.Detector {
	return di.GetToken(c, Detector)
}

func GetReporter(c di.ServiceRegistry) app.Reporter {
	return di.GetToken(c, Reporter)
}
