// Package gitcmd answers commit metadata queries by shelling out to git.
package gitcmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// ErrAncestryQuery indicates merge-base answered neither "yes" nor "no",
// including when the query exceeded its deadline.
var ErrAncestryQuery = errors.New("ancestry query failed")

// ErrCommitNotFound indicates a rev did not resolve to a commit.
var ErrCommitNotFound = errors.New("commit not found")

// AncestryTimeout bounds a single merge-base query. The hook runs inside
// git-receive-pack and must not hang the push.
const AncestryTimeout = time.Second

// Provider answers the git queries the hook needs. The production
// implementation is CLI; tests substitute an in-memory fake.
type Provider interface {
	// Show returns the full `git show` output for an object (the annotated
	// tag text, or the commit with its diff).
	Show(id string) (string, error)
	// ShowFormat returns the commit metadata for rev rendered through a
	// `--pretty=format:` template.
	ShowFormat(rev, format string) (string, error)
	// RevListPretty returns the pretty rev-list of commits in (old, new].
	RevListPretty(oldID, newID string) (string, error)
	// IsAncestor reports whether a is an ancestor of b.
	IsAncestor(ctx context.Context, a, b string) (bool, error)
	// CountRange returns the number of commits in (old, new].
	CountRange(oldID, newID string) (int, error)
	// ResolveCommit peels rev to the full object id of its commit, so an
	// annotated tag resolves to the commit it points at.
	ResolveCommit(rev string) (string, error)
}

// CLI implements Provider using the git binary on PATH.
type CLI struct{}

func run(args ...string) (string, error) {
	cmd := exec.Command("git", args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("git %s: %s", args[0], msg)
	}
	return stdout.String(), nil
}

// Show returns the full `git show` output for an object.
func (CLI) Show(id string) (string, error) {
	return run("show", id)
}

// ShowFormat returns `git show -s --pretty=format:<format>` for rev.
func (CLI) ShowFormat(rev, format string) (string, error) {
	return run("show", "--pretty=format:"+format, "-s", rev)
}

// RevListPretty returns `git rev-list --pretty old..new` without the
// trailing newline.
func (CLI) RevListPretty(oldID, newID string) (string, error) {
	out, err := run("rev-list", "--pretty", rangeSpec(oldID, newID))
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(out, "\n"), nil
}

// IsAncestor runs `git merge-base --is-ancestor a b` with a deadline.
// Exit status 0 means yes, 1 means no, anything else is ErrAncestryQuery.
func (CLI) IsAncestor(ctx context.Context, a, b string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, AncestryTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "merge-base", "--is-ancestor", a, b)
	err := cmd.Run()
	if err == nil {
		return true, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 && ctx.Err() == nil {
		return false, nil
	}
	return false, fmt.Errorf("%w: merge-base --is-ancestor %s %s: %v", ErrAncestryQuery, a, b, err)
}

// CountRange runs `git rev-list --count old..new`.
func (CLI) CountRange(oldID, newID string) (int, error) {
	out, err := run("rev-list", "--count", rangeSpec(oldID, newID))
	if err != nil {
		return 0, err
	}
	return parseCount(out)
}

// ResolveCommit resolves rev^{commit} to a full object id.
func (CLI) ResolveCommit(rev string) (string, error) {
	out, err := run("rev-parse", "--verify", rev+"^{commit}")
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrCommitNotFound, rev)
	}
	return strings.TrimSpace(out), nil
}

// rangeSpec formats a right-open commit range for rev-list.
func rangeSpec(oldID, newID string) string {
	return oldID + ".." + newID
}

func parseCount(out string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0, fmt.Errorf("parsing rev-list count %q: %w", out, err)
	}
	return n, nil
}
