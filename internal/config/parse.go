package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/rofr-ledger/internal/common"
	"github.com/Veraticus/rofr-ledger/internal/parser"
	"github.com/spf13/viper"
)

// StartDateLayout is the MM/YYYY form of parse.start_date. A single-digit month is accepted too.
const StartDateLayout = "01/2006"

// LoadParseOptions builds parser options from parse.workers, parse.batch_size and parse.start_date.
func LoadParseOptions() (parser.Options, error) {
	opts := parser.DefaultOptions()

	if viper.IsSet("parse.workers") {
		n := viper.GetInt("parse.workers")
		if n <= 0 {
			return opts, fmt.Errorf("%w: parse.workers must be positive, got %d", common.ErrInvalidConfig, n)
		}
		opts.Workers = n
	}
	if viper.IsSet("parse.batch_size") {
		n := viper.GetInt("parse.batch_size")
		if n <= 0 {
			return opts, fmt.Errorf("%w: parse.batch_size must be positive, got %d", common.ErrInvalidConfig, n)
		}
		opts.BatchSize = n
	}

	start, err := ParseStartDate(viper.GetString("parse.start_date"))
	if err != nil {
		return opts, err
	}
	opts.StartDate = start

	return opts, nil
}

// ParseStartDate parses MM/YYYY into the first day of that month. Empty input means no bound.
func ParseStartDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse("1/2006", value)
	if err != nil {
		return nil, fmt.Errorf("%w: start date %q is not MM/YYYY", common.ErrInvalidConfig, value)
	}
	return &t, nil
}
