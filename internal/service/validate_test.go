package service

import (
	"context"
	"errors"
	"testing"

	"github.com/devtrack/eventledger/internal/domain"
	"github.com/devtrack/eventledger/policy"
	"github.com/devtrack/eventledger/tests/helpers"
)

func hasIssue(report *domain.ValidationReport, issueType string) bool {
	for _, issue := range report.Issues {
		if issue.Type == issueType {
			return true
		}
	}
	return false
}

func TestValidateCleanConfiguration(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	seedFileEvent(t, svc, 1, "src/a.go")
	session, err := svc.CreateSession(ctx, "clean",
		domain.EventFilter{Types: []domain.EventType{domain.EventTypeFileChange}},
		domain.ReplayOptions{Strategy: domain.StrategySequential}, "")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	report, err := svc.ValidateReplay(ctx, session.ID)
	if err != nil {
		t.Fatalf("ValidateReplay failed: %v", err)
	}
	if !report.IsValid || len(report.Issues) != 0 {
		t.Fatalf("expected a clean report, got %+v", report)
	}
}

func TestValidateHighConcurrencyIsAdvisory(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	seedFileEvent(t, svc, 1, "src/a.go")
	session, err := svc.CreateSession(ctx, "wide",
		domain.EventFilter{Types: []domain.EventType{domain.EventTypeFileChange}},
		domain.ReplayOptions{Strategy: domain.StrategyParallel, MaxConcurrency: 20}, "")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	report, err := svc.ValidateReplay(ctx, session.ID)
	if err != nil {
		t.Fatalf("ValidateReplay failed: %v", err)
	}
	if !hasIssue(report, IssueHighConcurrency) {
		t.Fatalf("expected HIGH_CONCURRENCY issue, got %+v", report.Issues)
	}
	// Issues alone never invalidate the session.
	if !report.IsValid {
		t.Fatalf("advisory issue must not block: %+v", report)
	}
}

func TestValidateZeroConcurrency(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	seedFileEvent(t, svc, 1, "src/a.go")
	session, err := svc.CreateSession(ctx, "unset fan-out",
		domain.EventFilter{Types: []domain.EventType{domain.EventTypeFileChange}},
		domain.ReplayOptions{Strategy: domain.StrategyDependencyAware}, "")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	report, err := svc.ValidateReplay(ctx, session.ID)
	if err != nil {
		t.Fatalf("ValidateReplay failed: %v", err)
	}
	if !hasIssue(report, IssueZeroConcurrency) {
		t.Fatalf("expected ZERO_CONCURRENCY issue, got %+v", report.Issues)
	}
	if !report.IsValid {
		t.Fatalf("advisory issue must not block: %+v", report)
	}
}

func TestValidateConcurrencyIgnoredForSequential(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	seedFileEvent(t, svc, 1, "src/a.go")
	session, err := svc.CreateSession(ctx, "seq",
		domain.EventFilter{Types: []domain.EventType{domain.EventTypeFileChange}},
		domain.ReplayOptions{Strategy: domain.StrategySequential, MaxConcurrency: 50}, "")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	report, _ := svc.ValidateReplay(ctx, session.ID)
	if hasIssue(report, IssueHighConcurrency) {
		t.Fatalf("sequential runs never fan out: %+v", report.Issues)
	}
}

func TestValidateEmptyFilter(t *testing.T) {
	svc := newTestService(t)
	session := createTestSession(t, svc, domain.ReplayOptions{})

	report, err := svc.ValidateReplay(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("ValidateReplay failed: %v", err)
	}
	if !hasIssue(report, IssueEmptyFilter) || !report.IsValid {
		t.Fatalf("expected advisory EMPTY_FILTER, got %+v", report)
	}
}

func TestValidateNoMatchingEvents(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, "empty match",
		domain.EventFilter{Source: "nothing-logs-this"}, domain.ReplayOptions{}, "")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	report, _ := svc.ValidateReplay(ctx, session.ID)
	if !hasIssue(report, IssueNoMatchingEvents) {
		t.Fatalf("expected NO_MATCHING_EVENTS, got %+v", report.Issues)
	}
}

func TestValidateDryRunRollback(t *testing.T) {
	svc := newTestService(t)
	session := createTestSession(t, svc, domain.ReplayOptions{
		Mode:           domain.ModeDryRun,
		EnableRollback: true,
	})

	report, _ := svc.ValidateReplay(context.Background(), session.ID)
	if !hasIssue(report, IssueDryRunRollback) {
		t.Fatalf("expected DRY_RUN_ROLLBACK, got %+v", report.Issues)
	}
}

func TestValidateSelectiveWithoutInclude(t *testing.T) {
	svc := newTestService(t)
	session := createTestSession(t, svc, domain.ReplayOptions{Strategy: domain.StrategySelective})

	report, _ := svc.ValidateReplay(context.Background(), session.ID)
	if !hasIssue(report, IssueSelectiveWithoutInclude) {
		t.Fatalf("expected SELECTIVE_WITHOUT_INCLUDE, got %+v", report.Issues)
	}
}

func TestValidatePolicyBlocks(t *testing.T) {
	ctx := context.Background()
	engine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	svc := New(helpers.NewTestSQLiteStore(t), nil, engine, domain.DefaultRetentionPolicy())

	seedFileEvent(t, svc, 1, "src/a.go")
	session, err := svc.CreateSession(ctx, "absurd",
		domain.EventFilter{Types: []domain.EventType{domain.EventTypeFileChange}},
		domain.ReplayOptions{Strategy: domain.StrategyParallel, MaxConcurrency: 100}, "")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	report, err := svc.ValidateReplay(ctx, session.ID)
	if err != nil {
		t.Fatalf("ValidateReplay failed: %v", err)
	}
	if report.IsValid {
		t.Fatalf("default policy blocks fan-out over 64: %+v", report)
	}
	if !hasIssue(report, IssuePolicyBlocked) {
		t.Fatalf("expected POLICY_BLOCKED, got %+v", report.Issues)
	}
}

func TestValidatePolicyAllows(t *testing.T) {
	ctx := context.Background()
	engine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	svc := New(helpers.NewTestSQLiteStore(t), nil, engine, domain.DefaultRetentionPolicy())

	seedFileEvent(t, svc, 1, "src/a.go")
	session, err := svc.CreateSession(ctx, "modest",
		domain.EventFilter{Types: []domain.EventType{domain.EventTypeFileChange}},
		domain.ReplayOptions{Strategy: domain.StrategyParallel, MaxConcurrency: 4}, "")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	report, err := svc.ValidateReplay(ctx, session.ID)
	if err != nil {
		t.Fatalf("ValidateReplay failed: %v", err)
	}
	if !report.IsValid {
		t.Fatalf("expected valid report, got %+v", report)
	}
}

func TestValidateUnknownSession(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.ValidateReplay(context.Background(), "replay_missing")
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
