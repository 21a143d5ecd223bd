package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"agentflow/internal/auth"
	"agentflow/internal/cache"
	"agentflow/internal/logging"
	"agentflow/internal/repository"
	"agentflow/internal/services"
	"agentflow/pkg/models"
)

const demoWorkflowName = "Plan, build and review"

func newSeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the default user, agents and a demo workflow",
		Long:  "Seed is idempotent: records that already exist by name are left alone.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			repo, closeRepo, err := a.openRepository(cmd.Context())
			if err != nil {
				return err
			}
			defer closeRepo()
			return seed(cmd.Context(), repo, a.logger)
		},
	}
}

func seed(ctx context.Context, repo repository.Repository, logger *logging.Logger) error {
	user, err := services.NewUserService(repo, logger).Resolve(ctx, auth.DevUserEmail, "Developer")
	if err != nil {
		return fmt.Errorf("failed to ensure default user: %w", err)
	}

	agentSvc := services.NewAgentService(repo, logger)
	existing, err := agentSvc.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list existing agents: %w", err)
	}
	byName := make(map[string]*models.Agent, len(existing))
	for _, a := range existing {
		byName[a.Name] = a
	}

	low := 20
	agents := []services.AgentInput{
		{Name: "Planner", Role: "Breaks a request into implementation steps", Model: models.ModelClaudeOpus4, Tools: []string{"search_code"}},
		{Name: "Builder", Role: "Writes and edits code", Model: models.ModelClaudeSonnet4, Tools: []string{"search_code", "edit_file"}},
		{Name: "Reviewer", Role: "Reviews changes for correctness and style", Model: models.ModelGPT4o, Temperature: &low},
	}
	for _, in := range agents {
		if _, ok := byName[in.Name]; ok {
			logger.Info("skipping existing agent %s", in.Name)
			continue
		}
		a, err := agentSvc.Create(ctx, in, user.ID)
		if err != nil {
			return fmt.Errorf("failed to create agent %s: %w", in.Name, err)
		}
		byName[a.Name] = a
		logger.Info("seeded agent %s (id %d)", a.Name, a.ID)
	}

	workflowSvc := services.NewWorkflowService(repo, cache.Noop{}, logger)
	workflows, err := workflowSvc.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list existing workflows: %w", err)
	}
	for _, w := range workflows {
		if w.Name == demoWorkflowName {
			logger.Info("skipping existing workflow %s", w.Name)
			return nil
		}
	}

	w, err := workflowSvc.Create(ctx, services.WorkflowInput{
		Name: demoWorkflowName,
		Steps: []models.Step{
			{ID: "plan", AgentID: byName["Planner"].ID, Name: "Plan the change"},
			{ID: "build", AgentID: byName["Builder"].ID, Name: "Implement the plan", Dependencies: []string{"plan"}},
			{ID: "review", AgentID: byName["Reviewer"].ID, Name: "Review the implementation", Dependencies: []string{"build"}},
		},
		ExecutionMode: models.ExecutionModeSerial,
		Trigger:       models.TriggerManual,
	}, user.ID)
	if err != nil {
		return fmt.Errorf("failed to create demo workflow: %w", err)
	}
	logger.Info("seeded workflow %s (id %d)", w.Name, w.ID)
	return nil
}
