package credentials

import (
	"fmt"
	"sort"

	"github.com/alanoney1-alt/UpTend-sub012/internal/models"
)

// Requirements is the static mapping from job type and account type to the
// credential slugs a pro must hold. An empty union means the job is open to
// every available pro.
type Requirements struct {
	ByServiceType map[models.ServiceType][]string
	ByAccountType map[models.AccountType][]string
}

// DefaultRequirements mirrors the production credential catalog.
func DefaultRequirements() Requirements {
	return Requirements{
		ByServiceType: map[models.ServiceType][]string{
			models.ServiceWasteClearance: {"waste-carrier-licence"},
			models.ServiceRemovals:       {"goods-in-transit-insured"},
		},
		ByAccountType: map[models.AccountType][]string{
			models.AccountGovernment:      {"gov-contract-ready", "dbs-checked"},
			models.AccountPropertyManager: {"block-management-approved"},
		},
	}
}

var knownServiceTypes = map[models.ServiceType]bool{
	models.ServiceHomeCleaning:   true,
	models.ServiceRemovals:       true,
	models.ServiceWasteClearance: true,
	models.ServiceGardening:      true,
	models.ServiceHandyman:       true,
}

var knownAccountTypes = map[models.AccountType]bool{
	models.AccountConsumer:        true,
	models.AccountPropertyManager: true,
	models.AccountLandlord:        true,
	models.AccountGovernment:      true,
}

// Validate rejects mappings keyed by unknown types so a typo in the config
// is a startup failure, not a silent gating hole.
func (r Requirements) Validate() error {
	for st := range r.ByServiceType {
		if !knownServiceTypes[st] {
			return fmt.Errorf("credential requirements: unknown service type %q", st)
		}
	}
	for at := range r.ByAccountType {
		if !knownAccountTypes[at] {
			return fmt.Errorf("credential requirements: unknown account type %q", at)
		}
	}
	return nil
}

// RequiredFor returns the deduplicated union of job-type and account-type
// requirements, sorted for stable output.
func (r Requirements) RequiredFor(st models.ServiceType, at models.AccountType) []string {
	set := make(map[string]bool)
	for _, slug := range r.ByServiceType[st] {
		set[slug] = true
	}
	for _, slug := range r.ByAccountType[at] {
		set[slug] = true
	}
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for slug := range set {
		out = append(out, slug)
	}
	sort.Strings(out)
	return out
}
