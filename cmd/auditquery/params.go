package main

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/auditstore-go/auditstore"
)

var ErrInvalidQueryFlag = errors.New("invalid query flag")

// paramFlags holds the QueryParams flags shared by the query commands.
type paramFlags struct {
	limit           uint
	skip            uint
	from            string
	to              string
	commitIDs       []string
	version         uint64
	author          string
	changedProperty string
}

func addParamFlags(cmd *cobra.Command, p *paramFlags) {
	flags := cmd.Flags()
	flags.UintVar(&p.limit, "limit", auditstore.DefaultQueryLimit, "maximum number of results")
	flags.UintVar(&p.skip, "skip", 0, "number of newest results to skip")
	flags.StringVar(&p.from, "from", "", "only commits at or after this RFC 3339 time")
	flags.StringVar(&p.to, "to", "", "only commits at or before this RFC 3339 time")
	flags.StringSliceVar(&p.commitIDs, "commit-id", nil, "only these commits, repeatable")
	flags.Uint64Var(&p.version, "version", 0, "only this object version")
	flags.StringVar(&p.author, "author", "", "only commits of this author")
	flags.StringVar(&p.changedProperty, "changed-property", "", "only snapshots which changed this property")
}

func (p *paramFlags) queryParams() (auditstore.QueryParams, error) {
	params := auditstore.DefaultQueryParams().
		WithLimit(p.limit).
		WithSkip(p.skip).
		WithVersion(auditstore.VersionUint(p.version)).
		WithAuthor(p.author).
		WithChangedProperty(p.changedProperty)

	if p.from != "" {
		from, err := time.Parse(time.RFC3339, p.from)
		if err != nil {
			return auditstore.QueryParams{}, errors.Join(ErrInvalidQueryFlag, err)
		}
		params = params.WithFrom(from)
	}

	if p.to != "" {
		to, err := time.Parse(time.RFC3339, p.to)
		if err != nil {
			return auditstore.QueryParams{}, errors.Join(ErrInvalidQueryFlag, err)
		}
		params = params.WithTo(to)
	}

	for _, raw := range p.commitIDs {
		commitID, err := uuid.Parse(raw)
		if err != nil {
			return auditstore.QueryParams{}, errors.Join(ErrInvalidQueryFlag, err)
		}
		params = params.WithCommitIDs(commitID)
	}

	return params, nil
}
