package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/queryscope/queryscope/internal/core/query/domain"
	"github.com/queryscope/queryscope/internal/core/query/executor"
)

// loadSpecFile reads a QuerySpec from a JSON file.
func loadSpecFile(path string) (domain.QuerySpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.QuerySpec{}, fmt.Errorf("failed to read spec file: %w", err)
	}
	var spec domain.QuerySpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return domain.QuerySpec{}, fmt.Errorf("invalid spec file %s: %w", path, err)
	}
	return spec, nil
}

// executionOptions builds gateway options from the run flags.
func executionOptions(limit int, timeout time.Duration) executor.Options {
	return executor.Options{RowLimit: limit, Timeout: timeout}
}
