package config

// Cluster names.
const (
	ClusterMainnet  = "mainnet-beta"
	ClusterDevnet   = "devnet"
	ClusterLocalnet = "localnet"
)

// DefaultProgramID is the deployed ShadowLend program.
const DefaultProgramID = "CiCw5JPuC7oHRvEzhcmKYYBmYDVSUZxQG4hHMAarPUvE"

// Default pool mints: wrapped SOL as collateral, USDC as the borrow asset.
const (
	DefaultCollateralMint = "So11111111111111111111111111111111111111112"
	DefaultBorrowMint     = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

// DefaultInstallURL is offered when no wallet provider is detected.
const DefaultInstallURL = "https://phantom.app/download"

// DefaultEndpoints are public RPC endpoints per cluster, primary first.
//
//nolint:gochecknoglobals // Configuration default, same pattern as the constants above
var DefaultEndpoints = map[string][]string{
	ClusterMainnet: {
		"https://api.mainnet-beta.solana.com",
		"https://solana-rpc.publicnode.com",
	},
	ClusterDevnet: {
		"https://api.devnet.solana.com",
	},
	ClusterLocalnet: {
		"http://127.0.0.1:8899",
	},
}

// Defaults returns the default configuration.
func Defaults() *Config {
	endpoints := make(map[string][]string, len(DefaultEndpoints))
	for name, urls := range DefaultEndpoints {
		endpoints[name] = append([]string(nil), urls...)
	}

	return &Config{
		Version: 1,
		Home:    "~/.shadowlend",
		Cluster: ClusterConfig{
			Name:           ClusterDevnet,
			Endpoints:      endpoints,
			RateLimit:      5,
			RateBurst:      10,
			TimeoutSeconds: 15,
		},
		Program: ProgramConfig{
			ID:             DefaultProgramID,
			CollateralMint: DefaultCollateralMint,
			BorrowMint:     DefaultBorrowMint,
		},
		Wallet: WalletConfig{
			Platform:     "web",
			Origin:       "shadowlend-cli",
			AppName:      "ShadowLend",
			InstallURL:   DefaultInstallURL,
			EagerConnect: true,
			EagerDelayMS: 300,
			Retry: RetryConfig{
				MaxAttempts: 2,
				DelayMS:     500,
			},
		},
		Output: OutputConfig{
			DefaultFormat: "auto",
			Color:         "auto",
			Verbose:       false,
		},
		Logging: LoggingConfig{
			Level: "error",
			File:  "~/.shadowlend/shadowlend.log",
		},
	}
}
