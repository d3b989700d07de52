package distill

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/distillery/ai"
	"github.com/poiesic/distillery/core"
	"github.com/poiesic/distillery/storage"
)

// Refiner folds new facets into the cumulative profile of a user and bot.
type Refiner struct {
	profiles  storage.ProfileStore
	completer ai.Completer
	logger    *slog.Logger
}

func newRefiner(profiles storage.ProfileStore, completer ai.Completer, logger *slog.Logger) *Refiner {
	return &Refiner{
		profiles:  profiles,
		completer: completer,
		logger:    logger.With("component", "refiner"),
	}
}

// Refine merges req into the latest profile and stores the result as a new
// profile row.
func (r *Refiner) Refine(ctx context.Context, req RefineRequest) (*core.UserBotProfile, error) {
	prior, err := r.profiles.LatestProfile(ctx, req.PrimaryUser, req.BotID)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	if prior == nil {
		prior = &core.UserBotProfile{}
	}

	next := &core.UserBotProfile{PrimaryUser: req.PrimaryUser, BotID: req.BotID}
	facets := []struct {
		name     string
		prior    string
		observed string
		dst      *string
	}{
		{"user_learning", prior.UserLearning, req.Facets.UserLearning, &next.UserLearning},
		{"tool_learning", prior.ToolLearning, req.Facets.ToolLearning, &next.ToolLearning},
		{"data_learning", prior.DataLearning, req.Facets.DataLearning, &next.DataLearning},
	}
	for _, f := range facets {
		if strings.TrimSpace(f.observed) == "" {
			*f.dst = f.prior
			continue
		}
		merged, err := r.merge(ctx, f.name, f.prior, f.observed)
		if err != nil {
			return nil, fmt.Errorf("refine %s: %w", f.name, err)
		}
		*f.dst = merged
	}

	stored, err := r.profiles.InsertProfile(ctx, next)
	if err != nil {
		return nil, fmt.Errorf("store profile: %w", err)
	}
	r.logger.Info("refined profile", "user", req.PrimaryUser, "bot", req.BotID, "id", stored.Id)
	return stored, nil
}

func (r *Refiner) merge(ctx context.Context, facet, prior, observed string) (string, error) {
	completion, err := r.completer.Complete(ctx, []ai.Message{
		{Role: ai.RoleUser, Content: buildRefinePrompt(facet, prior, observed)},
	}, "")
	if err != nil {
		return "", err
	}
	merged := cleanBullets(completion.Text)
	if merged == "" {
		return "", fmt.Errorf("%w: empty summary", ErrMalformedResponse)
	}
	return merged, nil
}

// Run refines queued requests until ctx ends.
func (r *Refiner) Run(ctx context.Context, in *Queue[RefineRequest]) error {
	for {
		req, err := in.Pop(ctx)
		if err != nil {
			return err
		}
		if _, err := r.Refine(ctx, req); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.Error("refinement failed", "user", req.PrimaryUser, "bot", req.BotID, "err", err)
		}
	}
}
