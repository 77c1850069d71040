package container

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/garyjia/claims-workflow/internal/application/service"
	"github.com/garyjia/claims-workflow/internal/application/workflow"
	"github.com/garyjia/claims-workflow/internal/domain/entity"
	domainwf "github.com/garyjia/claims-workflow/internal/domain/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Database.Path = filepath.Join(dir, "claims.db")
	cfg.Database.MaxOpenConns = 1
	cfg.Storage.DocumentsDir = filepath.Join(dir, "documents")
	cfg.Storage.ReportsDir = filepath.Join(dir, "reports")
	return cfg
}

func startContainer(t *testing.T, cfg *Config) *Container {
	t.Helper()
	c, err := NewContainer(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))
	return c
}

func TestNewContainer_Validation(t *testing.T) {
	_, err := NewContainer(nil, zap.NewNop())
	assert.Error(t, err)

	_, err = NewContainer(DefaultConfig(), nil)
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.Policy.MaxHoursPerClaim = 0
	_, err = NewContainer(cfg, zap.NewNop())
	assert.ErrorContains(t, err, "policy")
}

func TestContainer_Lifecycle(t *testing.T) {
	c := startContainer(t, testConfig(t))

	assert.True(t, c.Ready())
	assert.Error(t, c.Start(context.Background()), "second start must fail")

	health := c.Health(context.Background())
	assert.True(t, health.Overall)
	assert.True(t, health.Components["database"].Healthy)
	assert.Equal(t, "disabled", health.Components["notifications"].Message)
	assert.Equal(t, "1 stage subscribers", health.Components["dispatcher"].Message)

	assert.Equal(t, 180.0, c.Policy().MaxHoursPerClaim())
	require.NotNil(t, c.Services().Claims)

	require.NoError(t, c.Close())
	assert.False(t, c.Ready())
	assert.Error(t, c.Close(), "second close must fail")
	assert.Error(t, c.Start(context.Background()), "closed container cannot restart")
	assert.False(t, c.Health(context.Background()).Overall)
}

func TestContainer_ClaimRoundTrip(t *testing.T) {
	c := startContainer(t, testConfig(t))
	t.Cleanup(func() { _ = c.Close() })

	ctx := context.Background()
	claims := c.Services().Claims

	require.NoError(t, claims.UpsertLecturer(ctx, &entity.Lecturer{
		UserID: "lect-1", FullName: "Naledi Khumalo", Email: "naledi@campus.ac.za", HourlyRate: 200,
	}))

	// 40h at the profile rate of 200 is above the auto-approve threshold
	resp, err := claims.SubmitClaim(ctx, service.SubmitClaimRequest{UserID: "lect-1", HoursWorked: 40})
	require.NoError(t, err)
	require.True(t, resp.Result.Success)
	assert.Equal(t, domainwf.StageUnderReview, resp.Result.Stage)
	assert.Equal(t, 8000.0, resp.Claim.TotalAmount)

	claimID := resp.Claim.ID

	result, err := claims.ReviewClaim(ctx, workflow.ReviewRequest{
		ClaimID: claimID, ActorID: "coord-1", ActorRole: entity.RoleCoordinator, Approve: true,
	})
	require.NoError(t, err)
	assert.Equal(t, domainwf.StageVerified, result.Stage)

	queue, err := claims.ReviewQueue(ctx, entity.RoleManager)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, claimID, queue[0].ID)

	result, err = claims.ReviewClaim(ctx, workflow.ReviewRequest{
		ClaimID: claimID, ActorID: "mgr-1", ActorRole: entity.RoleManager, Approve: true,
	})
	require.NoError(t, err)
	assert.Equal(t, entity.ClaimStatusApproved, result.NewStatus)

	history, err := claims.GetHistory(ctx, claimID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, domainwf.StageSubmitted, history[0].PreviousStage)
	assert.Equal(t, domainwf.StageUnderReview, history[1].PreviousStage)
	assert.Equal(t, domainwf.StageVerified, history[2].PreviousStage)

	path, err := c.Services().Reports.SaveMonthlyReport(ctx, resp.Claim.ClaimMonth, resp.Claim.ClaimYear)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(c.Config().Storage.ReportsDir, path))
}

func TestConvertToZapFields(t *testing.T) {
	fields := convertToZapFields("claim_id", int64(3), 42, "skipped", "error", assert.AnError, "dangling")
	require.Len(t, fields, 2)
	assert.Equal(t, "claim_id", fields[0].Key)
	assert.Equal(t, "error", fields[1].Key)
}

// Submissions fire notification handlers that read lecturer profiles after
// the submitting transaction has committed. Run with -race.
func TestContainer_SubmissionsWithNotificationHandlers(t *testing.T) {
	c := startContainer(t, testConfig(t))

	ctx := context.Background()
	claims := c.Services().Claims

	require.NoError(t, claims.UpsertLecturer(ctx, &entity.Lecturer{
		UserID: "lect-2", FullName: "Sipho Dlamini", HourlyRate: 200,
	}))

	// 45h at 200 is 9000: above the auto-approve threshold, five fit the monthly budget
	for i := 0; i < 5; i++ {
		resp, err := claims.SubmitClaim(ctx, service.SubmitClaimRequest{UserID: "lect-2", HoursWorked: 45})
		require.NoError(t, err)
		assert.Equal(t, domainwf.StageUnderReview, resp.Result.Stage, "claim %d", i+1)
	}

	resp, err := claims.SubmitClaim(ctx, service.SubmitClaimRequest{UserID: "lect-2", HoursWorked: 45})
	require.NoError(t, err)
	assert.Equal(t, domainwf.StageRejected, resp.Result.Stage)
	require.Len(t, resp.Result.Violations, 1)
	assert.Contains(t, resp.Result.Violations[0], "already claimed R45000.00")

	// drains the async handlers before the database closes
	require.NoError(t, c.Close())
}
