package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kb100/post-receive-email/internal/refs"
)

func processorFixture() (*Processor, *fakeGit, *fakeMailer) {
	_, git := composerFixture()
	git.ancestors[oldSHA+".."+newSHA] = true
	git.counts[oldSHA+".."+newSHA] = 2
	mail := &fakeMailer{}

	p := NewProcessor(git, mail, "[repo] ")
	return p, git, mail
}

func TestProcessSendsOneMailPerRecordInOrder(t *testing.T) {
	p, _, mail := processorFixture()

	records := []refs.UpdateRecord{
		{OldID: refs.NullSHA, NewID: newSHA, RefName: "refs/heads/feature"},
		{OldID: oldSHA, NewID: newSHA, RefName: "refs/heads/main"},
		{OldID: tagSHA, NewID: refs.NullSHA, RefName: "refs/tags/v0.9"},
	}

	if err := p.Process(context.Background(), records); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(mail.sent) != 3 {
		t.Fatalf("sent %d mails, want 3", len(mail.sent))
	}

	wantOrder := []string{
		"new branch: (feature)",
		"2 new commits",
		"delete tag: (v0.9)",
	}
	for i, fragment := range wantOrder {
		if !strings.Contains(mail.sent[i].Subject, fragment) {
			t.Errorf("mail %d subject = %q, want it to contain %q", i, mail.sent[i].Subject, fragment)
		}
	}
}

func TestProcessSkipsUnknownRefs(t *testing.T) {
	p, _, mail := processorFixture()

	records := []refs.UpdateRecord{
		{OldID: oldSHA, NewID: newSHA, RefName: "refs/notes/commits"},
		{OldID: oldSHA, NewID: newSHA, RefName: "refs/remotes/origin/main"},
	}

	if err := p.Process(context.Background(), records); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if mail.attempts != 0 {
		t.Errorf("mailer invoked %d times for unknown refs, want 0", mail.attempts)
	}
}

func TestProcessZeroChangeNeverMails(t *testing.T) {
	p, _, mail := processorFixture()

	records := []refs.UpdateRecord{
		{OldID: oldSHA, NewID: oldSHA, RefName: "refs/heads/main"},
	}

	err := p.Process(context.Background(), records)
	if !errors.Is(err, ErrZeroChange) {
		t.Fatalf("Process error = %v, want ErrZeroChange", err)
	}
	if mail.attempts != 0 {
		t.Errorf("mailer invoked %d times for a zero-change update, want 0", mail.attempts)
	}
}

func TestProcessTagMovedFailsLoudly(t *testing.T) {
	p, _, mail := processorFixture()

	records := []refs.UpdateRecord{
		{OldID: oldSHA, NewID: newSHA, RefName: "refs/tags/v1.0"},
	}

	err := p.Process(context.Background(), records)
	if !errors.Is(err, ErrTagUpdated) {
		t.Fatalf("Process error = %v, want ErrTagUpdated", err)
	}
	if mail.attempts != 0 {
		t.Errorf("mailer invoked %d times for a moved tag, want 0", mail.attempts)
	}
}

func TestProcessStopsAtFirstFailure(t *testing.T) {
	p, _, mail := processorFixture()
	mail.sendErr = errors.New("smtp authentication failed")

	records := []refs.UpdateRecord{
		{OldID: refs.NullSHA, NewID: newSHA, RefName: "refs/heads/main"},
		{OldID: refs.NullSHA, NewID: newSHA, RefName: "refs/heads/other"},
	}

	err := p.Process(context.Background(), records)
	if err == nil {
		t.Fatal("Process succeeded with a failing mailer, want error")
	}
	if mail.attempts != 1 {
		t.Errorf("mailer invoked %d times, want 1 (later records are not attempted)", mail.attempts)
	}
}

// A failure mid-push leaves earlier mail sent; nothing is undone.
func TestProcessKeepsEarlierDeliveries(t *testing.T) {
	p, _, mail := processorFixture()

	records := []refs.UpdateRecord{
		{OldID: refs.NullSHA, NewID: newSHA, RefName: "refs/heads/main"},
		{OldID: oldSHA, NewID: newSHA, RefName: "refs/tags/v1.0"}, // moved tag: error
	}

	err := p.Process(context.Background(), records)
	if !errors.Is(err, ErrTagUpdated) {
		t.Fatalf("Process error = %v, want ErrTagUpdated", err)
	}
	if len(mail.sent) != 1 {
		t.Errorf("sent %d mails before the failure, want 1", len(mail.sent))
	}
}
