package notify

import (
	"context"
	"fmt"

	"github.com/kb100/post-receive-email/internal/gitcmd"
	"github.com/kb100/post-receive-email/internal/mailer"
)

// fakeGit is an in-memory gitcmd.Provider with canned answers.
type fakeGit struct {
	// ancestors holds "a..b" keys meaning a is an ancestor of b.
	ancestors map[string]bool
	// subjects and emails hold per-rev commit metadata.
	subjects map[string]string
	emails   map[string]string
	// counts holds "old..new" range sizes.
	counts map[string]int
	// resolves maps a rev to its peeled commit id.
	resolves map[string]string
	// shows maps an object id to full show output.
	shows map[string]string

	ancestryErr error
}

var _ gitcmd.Provider = (*fakeGit)(nil)

func (f *fakeGit) Show(id string) (string, error) {
	if out, ok := f.shows[id]; ok {
		return out, nil
	}
	return "show of " + id, nil
}

// ShowFormat answers the two metadata formats the composer uses and echoes
// any other template back, so tests can inspect what would reach git.
func (f *fakeGit) ShowFormat(rev, format string) (string, error) {
	switch format {
	case "%s":
		return f.subjects[rev], nil
	case "%ce":
		return f.emails[rev], nil
	default:
		return format, nil
	}
}

func (f *fakeGit) RevListPretty(oldID, newID string) (string, error) {
	return "rev-list " + oldID + ".." + newID, nil
}

func (f *fakeGit) IsAncestor(_ context.Context, a, b string) (bool, error) {
	if f.ancestryErr != nil {
		return false, f.ancestryErr
	}
	return f.ancestors[a+".."+b], nil
}

func (f *fakeGit) CountRange(oldID, newID string) (int, error) {
	return f.counts[oldID+".."+newID], nil
}

func (f *fakeGit) ResolveCommit(rev string) (string, error) {
	if commit, ok := f.resolves[rev]; ok {
		return commit, nil
	}
	return "", fmt.Errorf("%w: %s", gitcmd.ErrCommitNotFound, rev)
}

// fakeMailer records sends and optionally fails every one of them.
type fakeMailer struct {
	sent     []mailer.Message
	attempts int
	sendErr  error
}

func (f *fakeMailer) Send(msg mailer.Message) error {
	f.attempts++
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, msg)
	return nil
}
