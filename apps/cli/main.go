package main

import "github.com/abdul-hamid-achik/photorest/apps/cli/cmd"

// Set by -ldflags "-X main.version=... -X main.buildTime=..."
var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	cmd.Execute(version, buildTime)
}
