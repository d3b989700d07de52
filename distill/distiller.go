package distill

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/poiesic/distillery/ai"
	"github.com/poiesic/distillery/core"
	"github.com/poiesic/distillery/storage"
)

// RefineRequest carries freshly distilled facets to the refiner.
type RefineRequest struct {
	PrimaryUser string
	BotID       string
	Facets      core.Facets
}

// Distiller turns the new messages of a thread into a KnowledgeRecord.
type Distiller struct {
	threads   storage.ThreadStore
	knowledge storage.KnowledgeStore
	completer ai.Completer
	working   *WorkingSet
	refine    *Queue[RefineRequest]
	config    *Config
	logger    *slog.Logger
	newHandle func() string
}

func newDistiller(threads storage.ThreadStore, knowledge storage.KnowledgeStore, completer ai.Completer,
	working *WorkingSet, refine *Queue[RefineRequest], config *Config, logger *slog.Logger) *Distiller {
	return &Distiller{
		threads:   threads,
		knowledge: knowledge,
		completer: completer,
		working:   working,
		refine:    refine,
		config:    config,
		logger:    logger.With("component", "distiller"),
		newHandle: uuid.NewString,
	}
}

// Process distills one thread. The thread leaves the working set whatever
// the outcome; its watermark only advances when a record is written, so a
// failed thread is selected again by a later scan.
func (d *Distiller) Process(ctx context.Context, c core.ThreadCandidate) (*core.KnowledgeRecord, error) {
	defer d.working.Remove(c.ThreadID)

	msgs, err := d.threads.Messages(ctx, c.ThreadID, c.Watermark, d.config.MessageLimit)
	if err != nil {
		return nil, fmt.Errorf("read messages of %s: %w", c.ThreadID, err)
	}
	if len(msgs) == 0 {
		return nil, ErrNoMessages
	}

	previous, err := d.knowledge.LatestKnowledgeRecord(ctx, c.ThreadID)
	if err != nil {
		return nil, fmt.Errorf("read latest knowledge of %s: %w", c.ThreadID, err)
	}
	handle := ""
	if previous != nil {
		handle = previous.SessionHandle
	}
	if handle == "" {
		handle = d.newHandle()
	}

	transcript, covered := buildTranscript(msgs, d.config.TranscriptBudget)
	if covered < len(msgs) {
		d.logger.Debug("transcript budget reached", "thread", c.ThreadID, "messages", len(msgs), "sent", covered)
		msgs = msgs[:covered]
	}
	completion, err := d.completer.Complete(ctx, []ai.Message{
		{Role: ai.RoleSystem, Content: extractionPrompt},
		{Role: ai.RoleUser, Content: transcript},
	}, handle)
	if err != nil {
		return nil, fmt.Errorf("distill %s: %w", c.ThreadID, err)
	}
	if completion.Handle != "" {
		handle = completion.Handle
	}

	facets, err := parseFacets(completion.Text)
	if err != nil {
		d.logger.Warn("dropping unparsable distillation", "thread", c.ThreadID, "response", completion.Text, "err", err)
		return nil, err
	}

	user, bot := participants(msgs)
	record, err := d.knowledge.InsertKnowledgeRecord(ctx, &core.KnowledgeRecord{
		ThreadID:      c.ThreadID,
		SessionHandle: handle,
		PrimaryUser:   user,
		BotID:         bot,
		Watermark:     msgs[len(msgs)-1].Timestamp,
		Facets:        facets,
	})
	if err != nil {
		return nil, fmt.Errorf("store knowledge of %s: %w", c.ThreadID, err)
	}

	d.logger.Info("distilled thread", "thread", c.ThreadID, "messages", len(msgs), "watermark", record.Watermark)

	if user != "" && bot != "" {
		d.refine.Push(RefineRequest{PrimaryUser: user, BotID: bot, Facets: facets})
	} else {
		d.logger.Debug("no profile subject for thread", "thread", c.ThreadID)
	}
	return record, nil
}

// Run distills queued threads until ctx ends.
func (d *Distiller) Run(ctx context.Context, in <-chan core.ThreadCandidate) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c := <-in:
			if _, err := d.Process(ctx, c); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if !errors.Is(err, ErrMalformedResponse) {
					d.logger.Error("distillation failed", "thread", c.ThreadID, "err", err)
				}
			}
		}
	}
}

// participants returns the first human and the first bot seen in msgs.
func participants(msgs []*core.Message) (user, bot string) {
	for _, m := range msgs {
		if user == "" && m.Qualifies() && m.PrimaryUser != "" {
			user = m.PrimaryUser
		}
		if bot == "" && m.BotID != "" {
			bot = m.BotID
		}
	}
	return user, bot
}
