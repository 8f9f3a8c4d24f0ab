package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/kb100/post-receive-email/internal/gitcmd"
	"github.com/kb100/post-receive-email/internal/mailer"
	"github.com/kb100/post-receive-email/internal/refs"
)

// Processor drives classification, composition, and delivery for one push.
type Processor struct {
	Git      gitcmd.Provider
	Mail     mailer.Mailer
	Composer *Composer
}

// NewProcessor wires a processor over the given git provider and mailer.
// prefix is the normalized subject prefix.
func NewProcessor(git gitcmd.Provider, mail mailer.Mailer, prefix string) *Processor {
	return &Processor{
		Git:      git,
		Mail:     mail,
		Composer: &Composer{Git: git, Prefix: prefix, Now: time.Now},
	}
}

// Process handles each update record in input order, sending one mail per
// qualifying record. The first failure stops the run; records already
// handled have already been mailed and are not undone.
func (p *Processor) Process(ctx context.Context, records []refs.UpdateRecord) error {
	for _, rec := range records {
		uc, err := Classify(ctx, p.Git, rec)
		if err != nil {
			return fmt.Errorf("classifying %s: %w", rec.RefName, err)
		}
		if uc == Ignored {
			continue
		}

		msg, err := p.Composer.Compose(rec, uc)
		if err != nil {
			return fmt.Errorf("composing mail for %s: %w", rec.RefName, err)
		}
		if err := p.Mail.Send(msg); err != nil {
			return fmt.Errorf("mailing %s update: %w", rec.RefName, err)
		}
	}
	return nil
}
