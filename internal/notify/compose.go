package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/kb100/post-receive-email/internal/gitcmd"
	"github.com/kb100/post-receive-email/internal/mailer"
	"github.com/kb100/post-receive-email/internal/refs"
)

// Composer builds the outgoing message for each update case. Prefix is the
// normalized subject prefix; Now is time.Now in production and fixed in tests.
type Composer struct {
	Git    gitcmd.Provider
	Prefix string
	Now    func() time.Time
}

// Compose builds the message for rec given its resolved case.
func (c *Composer) Compose(rec refs.UpdateRecord, uc UpdateCase) (mailer.Message, error) {
	name := refs.Classify(rec.RefName).ShortName

	switch uc {
	case BranchCreated:
		return c.branchCreated(rec.NewID, name)
	case BranchDeleted:
		return c.branchDeleted(rec.OldID, name)
	case BranchFastForwarded:
		return c.branchFastForwarded(rec.OldID, rec.NewID, name)
	case BranchReset:
		return c.branchRewritten(rec.NewID, name, "forced reset", "Reset to commit")
	case BranchRewrittenUnrelated:
		return c.branchRewritten(rec.NewID, name, "forced rewrite", "Most recent commit")
	case TagCreated:
		return c.tagCreated(rec.NewID, name)
	case TagDeleted:
		return c.tagDeleted(rec.OldID, name)
	default:
		return mailer.Message{}, fmt.Errorf("no message defined for case %q", uc)
	}
}

func (c *Composer) branchCreated(newID, name string) (mailer.Message, error) {
	subject, err := c.commitSubject(newID)
	if err != nil {
		return mailer.Message{}, err
	}
	replyTo, err := c.committerEmail(newID)
	if err != nil {
		return mailer.Message{}, err
	}

	format := "Committer: %cn <%ce>\n" +
		"Date: %cD\n" +
		"New branch: " + escapeFormat(name) + "\n" +
		"Commit: %H\n" +
		"Subject: %s\n" +
		"Notes:\n%N"
	body, err := c.Git.ShowFormat(newID, format)
	if err != nil {
		return mailer.Message{}, err
	}

	return mailer.Message{
		Subject: fmt.Sprintf("%snew branch: (%s) at commit %s: %s", c.Prefix, name, shortID(newID), subject),
		ReplyTo: replyTo,
		Body:    body,
	}, nil
}

func (c *Composer) branchDeleted(oldID, name string) (mailer.Message, error) {
	replyTo, err := c.committerEmail(oldID)
	if err != nil {
		return mailer.Message{}, err
	}
	return mailer.Message{
		Subject: fmt.Sprintf("%sdelete branch: (%s)", c.Prefix, name),
		ReplyTo: replyTo,
		Body:    fmt.Sprintf("Date: %s\nDeleted branch: %s", c.now().Format(time.RFC1123Z), name),
	}, nil
}

func (c *Composer) branchFastForwarded(oldID, newID, name string) (mailer.Message, error) {
	n, err := c.Git.CountRange(oldID, newID)
	if err != nil {
		return mailer.Message{}, err
	}
	if n < 1 {
		return mailer.Message{}, fmt.Errorf("%w: %s..%s", ErrZeroChange, oldID, newID)
	}

	subject, err := c.commitSubject(newID)
	if err != nil {
		return mailer.Message{}, err
	}
	replyTo, err := c.committerEmail(newID)
	if err != nil {
		return mailer.Message{}, err
	}
	body, err := c.Git.RevListPretty(oldID, newID)
	if err != nil {
		return mailer.Message{}, err
	}

	var subjectLine string
	if n == 1 {
		subjectLine = fmt.Sprintf("%s(%s) new commit %s: %s", c.Prefix, name, shortID(newID), subject)
	} else {
		subjectLine = fmt.Sprintf("%s(%s) %d new commits %s: %s", c.Prefix, name, n, shortID(newID), subject)
	}

	return mailer.Message{Subject: subjectLine, ReplyTo: replyTo, Body: body}, nil
}

// branchRewritten covers forced resets and unrelated rewrites; the two only
// differ in wording.
func (c *Composer) branchRewritten(newID, name, verb, commitLabel string) (mailer.Message, error) {
	subject, err := c.commitSubject(newID)
	if err != nil {
		return mailer.Message{}, err
	}
	replyTo, err := c.committerEmail(newID)
	if err != nil {
		return mailer.Message{}, err
	}

	format := "Committer: %cn <%ce>\n" +
		"Date: %cD\n" +
		"Branch: " + escapeFormat(name) + "\n" +
		commitLabel + ": %H\n" +
		"Subject: %s\n" +
		"Notes:\n%N"
	body, err := c.Git.ShowFormat(newID, format)
	if err != nil {
		return mailer.Message{}, err
	}

	return mailer.Message{
		Subject: fmt.Sprintf("%s(%s) %s to commit %s: %s", c.Prefix, name, verb, shortID(newID), subject),
		ReplyTo: replyTo,
		Body:    body,
	}, nil
}

func (c *Composer) tagCreated(newID, name string) (mailer.Message, error) {
	commit, err := c.Git.ResolveCommit(newID)
	if err != nil {
		return mailer.Message{}, err
	}
	subject, err := c.commitSubject(commit)
	if err != nil {
		return mailer.Message{}, err
	}
	replyTo, err := c.committerEmail(commit)
	if err != nil {
		return mailer.Message{}, err
	}
	// Full show output: the annotated tag text, or the commit for a
	// lightweight tag.
	body, err := c.Git.Show(newID)
	if err != nil {
		return mailer.Message{}, err
	}

	return mailer.Message{
		Subject: fmt.Sprintf("%snew tag: (%s) at commit %s: %s", c.Prefix, name, shortID(commit), subject),
		ReplyTo: replyTo,
		Body:    body,
	}, nil
}

func (c *Composer) tagDeleted(oldID, name string) (mailer.Message, error) {
	// The tag object is gone from the ref namespace but still resolvable by
	// id while it remains in the object store.
	commit, err := c.Git.ResolveCommit(oldID)
	if err != nil {
		return mailer.Message{}, err
	}
	replyTo, err := c.committerEmail(commit)
	if err != nil {
		return mailer.Message{}, err
	}
	return mailer.Message{
		Subject: fmt.Sprintf("%sdelete tag: (%s)", c.Prefix, name),
		ReplyTo: replyTo,
		Body:    fmt.Sprintf("Date: %s\nDeleted tag: %s", c.now().Format(time.RFC1123Z), name),
	}, nil
}

func (c *Composer) commitSubject(rev string) (string, error) {
	return c.Git.ShowFormat(rev, "%s")
}

func (c *Composer) committerEmail(rev string) (string, error) {
	return c.Git.ShowFormat(rev, "%ce")
}

func (c *Composer) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// shortID abbreviates an object id the way git log does.
func shortID(id string) string {
	if len(id) > 7 {
		return id[:7]
	}
	return id
}

// escapeFormat doubles percent signs so a ref name interpolated into a
// --pretty=format: template is treated as literal text.
func escapeFormat(s string) string {
	return strings.ReplaceAll(s, "%", "%%")
}
