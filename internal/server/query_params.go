package server

import (
	"strings"

	"github.com/rentrollhq/rentroll/internal/period"
)

func parseMonthParam(raw string) (period.Month, error) {
	return period.Parse(strings.TrimSpace(raw))
}
