package auditstore

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultQueryLimit is the maximum number of results a query returns unless configured otherwise.
const DefaultQueryLimit uint = 100

/***** QueryParams *****/

// QueryParams holds the paging and filter options shared by all query kinds.
//
// QueryParams is a value type; every With... method returns a modified copy.
type QueryParams struct {
	limit           uint
	skip            uint
	from            time.Time
	to              time.Time
	commitIDs       []uuid.UUID
	version         VersionUint
	author          string
	changedProperty string
}

// DefaultQueryParams returns QueryParams with the default limit and no filters.
func DefaultQueryParams() QueryParams {
	return QueryParams{limit: DefaultQueryLimit}
}

// Limit returns the configured limit, the zero value QueryParams yields DefaultQueryLimit.
func (p QueryParams) Limit() uint {
	if p.limit == 0 {
		return DefaultQueryLimit
	}

	return p.limit
}

func (p QueryParams) Skip() uint {
	return p.skip
}

func (p QueryParams) From() time.Time {
	return p.from
}

func (p QueryParams) To() time.Time {
	return p.to
}

func (p QueryParams) CommitIDs() []uuid.UUID {
	return slices.Clone(p.commitIDs)
}

func (p QueryParams) Version() VersionUint {
	return p.version
}

func (p QueryParams) Author() string {
	return p.author
}

func (p QueryParams) ChangedProperty() string {
	return p.changedProperty
}

// WithLimit sets the maximum number of results, 0 falls back to DefaultQueryLimit.
func (p QueryParams) WithLimit(limit uint) QueryParams {
	if limit == 0 {
		limit = DefaultQueryLimit
	}

	p.limit = limit

	return p
}

// WithSkip sets the number of newest results to skip.
func (p QueryParams) WithSkip(skip uint) QueryParams {
	p.skip = skip

	return p
}

// WithFrom restricts results to commits made at or after the given time.
func (p QueryParams) WithFrom(from time.Time) QueryParams {
	p.from = from

	return p
}

// WithTo restricts results to commits made at or before the given time.
func (p QueryParams) WithTo(to time.Time) QueryParams {
	p.to = to

	return p
}

// WithCommitIDs restricts results to the given commits.
//
// It sanitizes the input:
//   - removing nil UUIDs
//   - sorting the commit ids
//   - removing duplicate commit ids
func (p QueryParams) WithCommitIDs(commitID uuid.UUID, commitIDs ...uuid.UUID) QueryParams {
	allCommitIDs := append([]uuid.UUID{commitID}, commitIDs...)
	allCommitIDs = append(allCommitIDs, p.commitIDs...)
	allCommitIDs = slices.DeleteFunc(allCommitIDs, func(id uuid.UUID) bool { return id == uuid.Nil })
	slices.SortFunc(allCommitIDs, func(a, b uuid.UUID) int { return strings.Compare(a.String(), b.String()) })
	allCommitIDs = slices.Compact(allCommitIDs)
	p.commitIDs = slices.Clip(allCommitIDs)

	return p
}

// WithVersion restricts results to snapshots with the given object version.
func (p QueryParams) WithVersion(version VersionUint) QueryParams {
	p.version = version

	return p
}

// WithAuthor restricts results to commits made by the given author.
func (p QueryParams) WithAuthor(author string) QueryParams {
	p.author = author

	return p
}

// WithChangedProperty restricts results to snapshots which changed the given property.
func (p QueryParams) WithChangedProperty(property string) QueryParams {
	p.changedProperty = property

	return p
}

// Matches reports whether the snapshot passes all filters, ignoring limit and skip.
func (p QueryParams) Matches(snapshot CdoSnapshot) bool {
	if !p.from.IsZero() && snapshot.Commit.CommitDate.Before(p.from) {
		return false
	}

	if !p.to.IsZero() && snapshot.Commit.CommitDate.After(p.to) {
		return false
	}

	if len(p.commitIDs) > 0 && !slices.Contains(p.commitIDs, snapshot.Commit.ID) {
		return false
	}

	if p.version != 0 && snapshot.Version != p.version {
		return false
	}

	if p.author != "" && snapshot.Commit.Author != p.author {
		return false
	}

	if p.changedProperty != "" && !slices.Contains(snapshot.ChangedProperties, p.changedProperty) {
		return false
	}

	return true
}

// String renders the non-default params for diagnostics.
func (p QueryParams) String() string {
	parts := []string{fmt.Sprintf("limit: %d", p.Limit())}

	if p.skip > 0 {
		parts = append(parts, fmt.Sprintf("skip: %d", p.skip))
	}

	if !p.from.IsZero() {
		parts = append(parts, "from: "+p.from.Format(time.RFC3339))
	}

	if !p.to.IsZero() {
		parts = append(parts, "to: "+p.to.Format(time.RFC3339))
	}

	if len(p.commitIDs) > 0 {
		ids := make([]string, 0, len(p.commitIDs))
		for _, id := range p.commitIDs {
			ids = append(ids, id.String())
		}
		parts = append(parts, "commitIds: ["+strings.Join(ids, ", ")+"]")
	}

	if p.version > 0 {
		parts = append(parts, fmt.Sprintf("version: %d", p.version))
	}

	if p.author != "" {
		parts = append(parts, "author: "+p.author)
	}

	if p.changedProperty != "" {
		parts = append(parts, "changedProperty: "+p.changedProperty)
	}

	return "QueryParams{" + strings.Join(parts, ", ") + "}"
}
