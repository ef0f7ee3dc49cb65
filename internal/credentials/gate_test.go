package credentials

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanoney1-alt/UpTend-sub012/internal/logging"
	"github.com/alanoney1-alt/UpTend-sub012/internal/models"
)

func fixedNow() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func newTestGate(reg Registry, accounts AccountLookup) *Gate {
	g := NewGate(DefaultRequirements(), reg, accounts, logging.Discard())
	g.Now = fixedNow
	return g
}

func completed(proID, slug string) models.CredentialRecord {
	return models.CredentialRecord{ProID: proID, Slug: slug, Status: models.CredentialCompleted}
}

func TestRequiredForUnion(t *testing.T) {
	req := DefaultRequirements()

	assert.Nil(t, req.RequiredFor(models.ServiceHomeCleaning, models.AccountConsumer))
	assert.Equal(t, []string{"waste-carrier-licence"},
		req.RequiredFor(models.ServiceWasteClearance, models.AccountConsumer))
	assert.Equal(t, []string{"dbs-checked", "goods-in-transit-insured", "gov-contract-ready"},
		req.RequiredFor(models.ServiceRemovals, models.AccountGovernment))
}

func TestRequiredForDeduplicates(t *testing.T) {
	req := Requirements{
		ByServiceType: map[models.ServiceType][]string{models.ServiceRemovals: {"shared-slug"}},
		ByAccountType: map[models.AccountType][]string{models.AccountLandlord: {"shared-slug"}},
	}
	assert.Equal(t, []string{"shared-slug"}, req.RequiredFor(models.ServiceRemovals, models.AccountLandlord))
}

func TestValidateRejectsUnknownTypes(t *testing.T) {
	assert.NoError(t, DefaultRequirements().Validate())

	bad := Requirements{ByServiceType: map[models.ServiceType][]string{"pet_grooming": {"x"}}}
	assert.Error(t, bad.Validate())

	bad = Requirements{ByAccountType: map[models.AccountType][]string{"charity": {"x"}}}
	assert.Error(t, bad.Validate())
}

func TestIsEligibleEmptyUnionPasses(t *testing.T) {
	g := newTestGate(NewMemoryRegistry(), StaticAccounts{})

	ok, err := g.IsEligible(context.Background(), "pro-1", models.ServiceHomeCleaning, models.AccountConsumer)
	require.NoError(t, err)
	assert.True(t, ok, "no requirements means every pro passes without a registry read")
}

func TestIsEligibleSubsetCheck(t *testing.T) {
	reg := NewMemoryRegistry()
	reg.Add(completed("pro-1", "waste-carrier-licence"))
	g := newTestGate(reg, StaticAccounts{})

	ok, err := g.IsEligible(context.Background(), "pro-1", models.ServiceWasteClearance, models.AccountConsumer)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.IsEligible(context.Background(), "pro-2", models.ServiceWasteClearance, models.AccountConsumer)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIsEligibleExpiredCredentialDoesNotCount(t *testing.T) {
	expired := fixedNow().Add(-time.Hour)
	reg := NewMemoryRegistry()
	reg.Add(models.CredentialRecord{ProID: "pro-1", Slug: "waste-carrier-licence", Status: models.CredentialCompleted, ExpiresAt: &expired})
	g := newTestGate(reg, StaticAccounts{})

	ok, err := g.IsEligible(context.Background(), "pro-1", models.ServiceWasteClearance, models.AccountConsumer)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIsEligibleInProgressDoesNotCount(t *testing.T) {
	reg := NewMemoryRegistry()
	reg.Add(models.CredentialRecord{ProID: "pro-1", Slug: "waste-carrier-licence", Status: models.CredentialInProgress})
	g := newTestGate(reg, StaticAccounts{})

	ok, err := g.IsEligible(context.Background(), "pro-1", models.ServiceWasteClearance, models.AccountConsumer)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFilterEligiblePreservesOrder(t *testing.T) {
	reg := NewMemoryRegistry()
	for _, id := range []string{"c", "a", "b"} {
		reg.Add(completed(id, "goods-in-transit-insured"))
	}
	g := newTestGate(reg, StaticAccounts{})

	got, err := g.FilterEligible(context.Background(), []string{"c", "x", "a", "b"}, models.ServiceRemovals, models.AccountConsumer)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, got)
}

func TestFilterEligibleGovernmentContract(t *testing.T) {
	// government removals needs three slugs; only the pro with all of them
	// survives the gate
	reg := NewMemoryRegistry()
	reg.Add(completed("full", "goods-in-transit-insured"))
	reg.Add(completed("full", "gov-contract-ready"))
	reg.Add(completed("full", "dbs-checked"))
	reg.Add(completed("partial", "goods-in-transit-insured"))
	reg.Add(completed("partial", "gov-contract-ready"))
	g := newTestGate(reg, StaticAccounts{})

	got, err := g.FilterEligible(context.Background(), []string{"full", "partial"}, models.ServiceRemovals, models.AccountGovernment)
	require.NoError(t, err)
	assert.Equal(t, []string{"full"}, got)

	missing, err := g.MissingFor(context.Background(), "partial", models.ServiceRemovals, models.AccountGovernment)
	require.NoError(t, err)
	assert.Equal(t, []string{"dbs-checked"}, missing)
}

type failingRegistry struct{}

func (failingRegistry) RecordsFor(ctx context.Context, proID string) ([]models.CredentialRecord, error) {
	return nil, errors.New("registry down")
}

func TestFilterEligibleExcludesOnRegistryError(t *testing.T) {
	g := newTestGate(failingRegistry{}, StaticAccounts{})

	got, err := g.FilterEligible(context.Background(), []string{"a", "b"}, models.ServiceWasteClearance, models.AccountConsumer)
	require.NoError(t, err)
	assert.Empty(t, got)
}

type failingAccounts struct{}

func (failingAccounts) AccountType(ctx context.Context, accountID string) (models.AccountType, error) {
	return "", errors.New("accounts down")
}

func TestResolveAccountTypeDegradesToConsumer(t *testing.T) {
	g := newTestGate(NewMemoryRegistry(), failingAccounts{})

	assert.Equal(t, models.AccountConsumer, g.ResolveAccountType(context.Background(), "acct-1"))
	assert.Equal(t, models.AccountConsumer, g.ResolveAccountType(context.Background(), ""))
}

func TestResolveAccountTypeStatic(t *testing.T) {
	g := newTestGate(NewMemoryRegistry(), StaticAccounts{"acct-gov": models.AccountGovernment})

	assert.Equal(t, models.AccountGovernment, g.ResolveAccountType(context.Background(), "acct-gov"))
	assert.Equal(t, models.AccountConsumer, g.ResolveAccountType(context.Background(), "acct-unknown"))
}

func TestVisibleJobsPartitions(t *testing.T) {
	reg := NewMemoryRegistry()
	reg.Add(completed("pro-1", "waste-carrier-licence"))
	g := newTestGate(reg, StaticAccounts{})

	jobs := []models.Job{
		{ID: "j-open", ServiceType: models.ServiceHomeCleaning, AccountType: models.AccountConsumer},
		{ID: "j-waste", ServiceType: models.ServiceWasteClearance, AccountType: models.AccountConsumer},
		{ID: "j-removals", ServiceType: models.ServiceRemovals, AccountType: models.AccountConsumer},
	}
	vis, err := g.VisibleJobs(context.Background(), "pro-1", jobs)
	require.NoError(t, err)

	visible := make([]string, 0, len(vis.Visible))
	for _, j := range vis.Visible {
		visible = append(visible, j.ID)
	}
	assert.Equal(t, []string{"j-open", "j-waste"}, visible)
	require.Len(t, vis.Hidden, 1)
	assert.Equal(t, "j-removals", vis.Hidden[0].JobID)
	assert.Equal(t, []string{"goods-in-transit-insured"}, vis.Hidden[0].MissingSlugs)
}

func TestSummarize(t *testing.T) {
	now := fixedNow()
	expired := now.Add(-24 * time.Hour)
	valid := now.Add(24 * time.Hour)

	reg := NewMemoryRegistry()
	reg.Add(models.CredentialRecord{ProID: "pro-1", Slug: "waste-carrier-licence", Status: models.CredentialCompleted, ExpiresAt: &valid})
	reg.Add(models.CredentialRecord{ProID: "pro-1", Slug: "goods-in-transit-insured", Status: models.CredentialCompleted, ExpiresAt: &expired})
	reg.Add(models.CredentialRecord{ProID: "pro-1", Slug: "dbs-checked", Status: models.CredentialInProgress})
	g := newTestGate(reg, StaticAccounts{})

	jobs := []models.Job{
		{ID: "j-removals", ServiceType: models.ServiceRemovals, AccountType: models.AccountConsumer},
	}
	sum, err := g.Summarize(context.Background(), "pro-1", jobs)
	require.NoError(t, err)
	assert.Len(t, sum.Active, 1)
	assert.Len(t, sum.Expired, 1)
	assert.Len(t, sum.InProgress, 1)
	assert.Equal(t, 1, sum.HiddenJobCount)
}
