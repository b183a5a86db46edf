package cmd

// Build information, set by main from its ldflags-injected variables.
var (
	Version   string
	GitCommit string
	BuildTime string
)
