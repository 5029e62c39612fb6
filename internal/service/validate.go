package service

import (
	"context"
	"fmt"
	"log"

	"github.com/devtrack/eventledger/internal/domain"
)

// MaxSafeConcurrency is the fan-out above which concurrent strategies get a
// HIGH_CONCURRENCY warning.
const MaxSafeConcurrency = 10

// Validation issue types.
const (
	IssueHighConcurrency         = "HIGH_CONCURRENCY"
	IssueZeroConcurrency         = "ZERO_CONCURRENCY"
	IssueEmptyFilter             = "EMPTY_FILTER"
	IssueNoMatchingEvents        = "NO_MATCHING_EVENTS"
	IssueDryRunRollback          = "DRY_RUN_ROLLBACK"
	IssueSelectiveWithoutInclude = "SELECTIVE_WITHOUT_INCLUDE"
	IssuePolicyBlocked           = "POLICY_BLOCKED"
)

// ValidateReplay statically checks a session's configuration without
// executing anything. Issues are advisory and never block execution on
// their own; only the policy hook can force IsValid to false.
func (s *Service) ValidateReplay(ctx context.Context, sessionID string) (*domain.ValidationReport, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	opts := session.Options.Normalized()

	report := &domain.ValidationReport{
		SessionID: sessionID,
		IsValid:   true,
		Issues:    []domain.ValidationIssue{},
	}
	add := func(issueType, detail string) {
		report.Issues = append(report.Issues, domain.ValidationIssue{Type: issueType, Detail: detail})
	}

	concurrent := opts.Strategy == domain.StrategyParallel || opts.Strategy == domain.StrategyDependencyAware
	if concurrent && opts.MaxConcurrency > MaxSafeConcurrency {
		add(IssueHighConcurrency,
			fmt.Sprintf("max_concurrency %d exceeds the safe bound of %d", opts.MaxConcurrency, MaxSafeConcurrency))
	}
	if concurrent && session.Options.MaxConcurrency <= 0 {
		add(IssueZeroConcurrency,
			fmt.Sprintf("%s strategy with max_concurrency unset; executor will run with a fan-out of 1", opts.Strategy))
	}

	if session.Filter.IsEmpty() {
		add(IssueEmptyFilter, "filter matches every event in the store")
	} else {
		count, err := s.store.CountEvents(ctx, session.Filter)
		if err != nil {
			return nil, fmt.Errorf("failed to count matching events: %w", err)
		}
		if count == 0 {
			add(IssueNoMatchingEvents, "filter currently matches no events")
		}
	}

	if opts.Mode == domain.ModeDryRun && opts.EnableRollback {
		add(IssueDryRunRollback, "rollback has no effect under DRY_RUN; nothing is mutated")
	}
	if opts.Strategy == domain.StrategySelective && len(opts.IncludeEvents) == 0 {
		add(IssueSelectiveWithoutInclude, "SELECTIVE strategy without include_events degenerates to SEQUENTIAL")
	}

	if s.policyEngine != nil {
		input := map[string]interface{}{
			"strategy":        string(opts.Strategy),
			"mode":            string(opts.Mode),
			"max_concurrency": opts.MaxConcurrency,
			"stop_on_error":   opts.StopOnError,
			"total_events":    session.TotalEvents,
		}
		decision, reason, err := s.policyEngine.Evaluate(ctx, input)
		if err != nil {
			log.Printf("WARN: session %s: policy evaluation failed: %v", sessionID, err)
		} else if decision == "block" {
			report.IsValid = false
			if reason == "" {
				reason = "replay policy blocked this configuration"
			}
			add(IssuePolicyBlocked, reason)
		}
	}

	return report, nil
}
