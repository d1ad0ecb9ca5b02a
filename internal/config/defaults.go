package config

// Default file locations, relative to the working directory.
const (
	DefaultConfigPath = "config.json"
	ExampleConfigPath = "config.example.json"

	DefaultJSONFile = "balances.json"
	DefaultCSVFile  = "balances.csv"
	DefaultPDFFile  = "balances.pdf"
)

// Defaults returns the default configuration. Wallets and chains are empty
// and must come from the config file.
func Defaults() *Config {
	return &Config{
		Options: OptionsConfig{
			RetryAttempts: 3,
			Timeout:       30000,
			Backoff:       1000,
			Concurrency: ConcurrencyConfig{
				Tokens:  4,
				Chains:  1,
				Wallets: 1,
			},
		},
		Output: OutputConfig{
			Format:   "auto",
			Color:    "auto",
			JSONFile: DefaultJSONFile,
			CSVFile:  DefaultCSVFile,
			PDFFile:  DefaultPDFFile,
		},
		Logging: LoggingConfig{
			Level: "error",
		},
	}
}
