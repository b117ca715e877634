package properties

import (
	"context"
	"strings"

	"innsync_backend/platform/logger"

	"github.com/google/uuid"
)

// Directory is the read interface the resolver needs. Satisfied by Repository.
type Directory interface {
	ListActive(ctx context.Context) ([]Property, error)
}

// Resolver maps a free-text property hint from an OTA event to a
// property id. Resolution never fails hard: on lookup errors or an
// empty directory it returns uuid.Nil and the caller degrades.
type Resolver struct {
	dir Directory
	log *logger.Logger
}

// NewResolver creates a property resolver.
func NewResolver(dir Directory, log *logger.Logger) *Resolver {
	return &Resolver{dir: dir, log: log}
}

// Resolve returns the property the hint refers to, or the first active
// property when the hint is empty or unmatched. A case-insensitive
// substring match is tried against both name and address.
func (r *Resolver) Resolve(ctx context.Context, hint string) uuid.UUID {
	active, err := r.dir.ListActive(ctx)
	if err != nil {
		r.log.Error("property resolution failed, continuing unresolved", "error", err)
		return uuid.Nil
	}
	if len(active) == 0 {
		return uuid.Nil
	}

	needle := strings.ToLower(strings.TrimSpace(hint))
	if needle != "" {
		for _, p := range active {
			if strings.Contains(strings.ToLower(p.Name), needle) ||
				strings.Contains(strings.ToLower(p.Address), needle) {
				return p.ID
			}
		}
	}

	// No hint or no match: default to the first active property.
	return active[0].ID
}
