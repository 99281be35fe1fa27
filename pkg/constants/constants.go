// Package constants provides shared constants for the vehicle-finance application.
package constants

// DateLayout is the calendar date format used for input and output.
const DateLayout = "2006-01-02"

// MonthLayout is the year-month format used in tables.
const MonthLayout = "2006-01"

// Financial constants
const (
	// MonthsPerYear is the number of months in a year
	MonthsPerYear = 12

	// DecimalPrecision is the precision for currency rounding (2 decimal places)
	DecimalPrecision = 100

	// CurrencyTolerance is the tolerance for currency comparisons (1 cent)
	CurrencyTolerance = 0.01

	// AffordableIncomeShare is the share of gross monthly income that may go to a car payment
	AffordableIncomeShare = 0.15

	// AffordableRangeFloor is the lower bound of the affordability range relative to its maximum
	AffordableRangeFloor = 0.7
)

// Lease policy constants
const (
	// LeaseTermMonths is the fixed term of every lease
	LeaseTermMonths = 36

	// ResidualValueRate is the projected share of the price left at lease end
	ResidualValueRate = 0.55

	// MoneyFactorDivisor converts an annual rate into a money factor
	MoneyFactorDivisor = 2400.0
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum request body size (256 KB)
	DefaultMaxUploadSizeBytes int64 = 256 * 1024
)

// Store defaults
const (
	// StoreBackendMemory keeps user records in process memory
	StoreBackendMemory = "memory"

	// StoreBackendRedis keeps user records in Redis
	StoreBackendRedis = "redis"

	// DefaultRedisAddress is the default Redis address
	DefaultRedisAddress = "localhost:6379"

	// DefaultRedisKeyPrefix namespaces every key this application writes
	DefaultRedisKeyPrefix = "vf"

	// DefaultHorizonMonths is the default schedule window for the CLI and API
	DefaultHorizonMonths = 12
)
