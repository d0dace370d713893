package db

import (
	"fmt"
	"strings"

	"github.com/Nokitomo/anime-mondo-italiano-sub000/types"
)

// postgrest-go flattens PostgREST errors into "<code>: <message>".
const (
	pgUniqueViolation = "23505"
	pgrstNoRows       = "PGRST116"
)

func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, pgUniqueViolation):
		return fmt.Errorf("%s: %w", op, types.ErrConflict)
	case strings.Contains(msg, pgrstNoRows):
		return fmt.Errorf("%s: %w", op, types.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}
