// Package directory resolves free-text crew-member names to stable
// employee entries, creating pending entries when nobody matches.
// Identity here is heuristic by design: the reconciliation core never
// guarantees global uniqueness beyond these name rules.
package directory

import (
	"context"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/crewtally/tally-api/internal/match"
	"github.com/crewtally/tally-api/internal/models"
)

var (
	parentheticalPattern = regexp.MustCompile(`\([^)]*\)`)
	nicknamePattern      = regexp.MustCompile(`["'][^"']*["']`)
	hashMarkerPattern    = regexp.MustCompile(`#\S*`)
	spaceRunPattern      = regexp.MustCompile(`\s+`)
)

// CleanName strips parentheticals, quoted nicknames, and # markers from
// a free-text person name: `Drew Gipson (D)` becomes `Drew Gipson`.
func CleanName(name string) string {
	cleaned := parentheticalPattern.ReplaceAllString(name, " ")
	cleaned = nicknamePattern.ReplaceAllString(cleaned, " ")
	cleaned = hashMarkerPattern.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(spaceRunPattern.ReplaceAllString(cleaned, " "))
}

// SplitName breaks a cleaned name into first name and the remainder as
// last name.
func SplitName(name string) (first, last string) {
	parts := strings.Fields(CleanName(name))
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

// Repository is the employee lookup surface the resolver needs.
type Repository interface {
	ListByBranch(ctx context.Context, branchID int64) ([]models.Employee, error)
	Create(ctx context.Context, employee models.Employee) (models.Employee, error)
}

// Resolver looks employees up by name within a branch, falling back to
// fuzzy full-name disambiguation before creating a pending entry.
type Resolver struct {
	repo      Repository
	threshold int
	logger    zerolog.Logger
}

func NewResolver(repo Repository, logger zerolog.Logger) *Resolver {
	return &Resolver{
		repo:      repo,
		threshold: match.EmployeeThreshold,
		logger:    logger.With().Str("component", "directory").Logger(),
	}
}

// SetThreshold overrides the fuzzy confidence floor for full-name
// disambiguation. Values outside 1-100 are ignored.
func (r *Resolver) SetThreshold(t int) {
	if t > 0 && t <= 100 {
		r.threshold = t
	}
}

// ResolveOrCreate returns the branch employee matching the free-text
// name, matching first by case-insensitive (first, last) equality on
// the cleaned name, then by fuzzy full-name similarity. When nothing
// matches, a pending-status entry is created so the shift can persist
// and the directory owner can confirm later.
func (r *Resolver) ResolveOrCreate(ctx context.Context, name string, branchID int64) (models.Employee, error) {
	first, last := SplitName(name)
	if first == "" {
		return models.Employee{}, errors.Errorf("crew member name %q is empty after cleaning", name)
	}

	existing, err := r.repo.ListByBranch(ctx, branchID)
	if err != nil {
		return models.Employee{}, errors.Wrap(err, "list branch employees")
	}

	for _, emp := range existing {
		if strings.EqualFold(emp.FirstName, first) && strings.EqualFold(emp.LastName, last) {
			return emp, nil
		}
	}

	display := CleanName(name)
	candidates := make([]match.Candidate, len(existing))
	for i, emp := range existing {
		candidates[i] = match.Candidate{ID: emp.ID, Label: emp.DisplayName}
	}
	if res, ok := match.BestMatch(display, candidates, r.threshold); ok {
		for _, emp := range existing {
			if emp.ID == res.Candidate.ID {
				r.logger.Debug().Str("name", name).Str("matched", emp.DisplayName).Int("score", res.Score).
					Msg("resolved crew member by fuzzy match")
				return emp, nil
			}
		}
	}

	created, err := r.repo.Create(ctx, models.Employee{
		BranchID:    branchID,
		FirstName:   first,
		LastName:    last,
		DisplayName: display,
		Status:      models.EmployeeStatusPending,
	})
	if err != nil {
		return models.Employee{}, errors.Wrapf(err, "create pending employee %q", display)
	}
	r.logger.Info().Str("name", display).Int64("branch_id", branchID).Msg("created pending directory entry")
	return created, nil
}
