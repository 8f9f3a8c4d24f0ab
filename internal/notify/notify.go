// Package notify classifies pushed ref updates and turns each one into a
// notification mail.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/kb100/post-receive-email/internal/gitcmd"
	"github.com/kb100/post-receive-email/internal/refs"
)

// UpdateCase identifies what happened to a ref during a push. Exactly one
// case applies per update record.
type UpdateCase int

const (
	Ignored UpdateCase = iota
	BranchCreated
	BranchDeleted
	BranchFastForwarded
	BranchReset
	BranchRewrittenUnrelated
	TagCreated
	TagDeleted
)

// String returns the case name for diagnostics.
func (c UpdateCase) String() string {
	switch c {
	case BranchCreated:
		return "branch created"
	case BranchDeleted:
		return "branch deleted"
	case BranchFastForwarded:
		return "branch fast-forwarded"
	case BranchReset:
		return "branch reset"
	case BranchRewrittenUnrelated:
		return "branch rewritten"
	case TagCreated:
		return "tag created"
	case TagDeleted:
		return "tag deleted"
	default:
		return "ignored"
	}
}

// ErrZeroChange indicates a branch update where old and new ids are equal.
// Mailing a "0 new commits" notification is not allowed.
var ErrZeroChange = errors.New("branch update with identical old and new ids")

// ErrTagUpdated indicates a tag that moved in place. Only tag creation and
// deletion are supported; a silent skip here would hide a real event.
var ErrTagUpdated = errors.New("tag updated in place")

// Classify determines the single case for one update record. Branch updates
// with both ids live are resolved by ancestry: old ancestor of new is a
// fast-forward, new ancestor of old is a reset, neither is an unrelated
// rewrite.
func Classify(ctx context.Context, git gitcmd.Provider, rec refs.UpdateRecord) (UpdateCase, error) {
	switch refs.Classify(rec.RefName).Kind {
	case refs.Branch:
		switch {
		case refs.IsNullSHA(rec.OldID):
			return BranchCreated, nil
		case refs.IsNullSHA(rec.NewID):
			return BranchDeleted, nil
		default:
			return classifyBranchUpdate(ctx, git, rec.OldID, rec.NewID)
		}
	case refs.Tag:
		switch {
		case refs.IsNullSHA(rec.OldID):
			return TagCreated, nil
		case refs.IsNullSHA(rec.NewID):
			return TagDeleted, nil
		default:
			return Ignored, fmt.Errorf("%w: %s", ErrTagUpdated, rec.RefName)
		}
	default:
		return Ignored, nil
	}
}

func classifyBranchUpdate(ctx context.Context, git gitcmd.Provider, oldID, newID string) (UpdateCase, error) {
	// The fast-forward check would answer yes for oldID == newID, but zero
	// new commits must be rejected, not mailed.
	if oldID == newID {
		return Ignored, fmt.Errorf("%w: %s", ErrZeroChange, oldID)
	}

	forward, err := git.IsAncestor(ctx, oldID, newID)
	if err != nil {
		return Ignored, err
	}
	if forward {
		return BranchFastForwarded, nil
	}

	backward, err := git.IsAncestor(ctx, newID, oldID)
	if err != nil {
		return Ignored, err
	}
	if backward {
		return BranchReset, nil
	}
	return BranchRewrittenUnrelated, nil
}
