// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[2:])

# Sources

Later sources override earlier ones:

  1. YAML file given with -c or --config
  2. .env in the working directory (never overrides a variable already set)
  3. Environment variables
  4. Flags given on the command line

# Config Fields

	Field           Flag            Env               Default
	Port            -p              PORT              3318
	DatabaseURL     -d              DATABASE_URL      required
	DatabaseType    -t              DATABASE_TYPE     sqlite
	BallotSecret    -ballot-secret  BALLOT_SECRET     required
	AdminKey        -admin-key      ADMIN_KEY         required
	TxTimeout       -tx-timeout     TX_TIMEOUT        5s
	MetricsEnabled  -metrics        METRICS_ENABLED   true

YAML keys are the snake_case field names:

	port: 8080
	database_url: "postgres://vote@localhost/quickly_vote?sslmode=disable"
	database_type: postgres
	tx_timeout: 3s

Keep secrets out of the YAML file.

# Validation

ParseFlags returns an error if DatabaseURL, BallotSecret, or AdminKey is
missing, if DatabaseType is not sqlite or postgres, or if TxTimeout is not
positive. A missing ballot secret is a startup failure, never a
per-request one.

# Extra Flags

Subcommands register their own flags on the same set:

	var elections []int64
	cfg, err := cliparse.ParseFlags(args, func(fs *flag.FlagSet) {
		fs.Func("election", "Election ID (repeatable)", func(v string) error { ... })
	})
*/
package cliparse
