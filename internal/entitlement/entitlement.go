// Package entitlement is the tier and quota policy: a static two-row limit
// table, a rolling 30-day counter cycle, lazy premium expiry, and an admin
// overlay that makes every check vacuously permissive for configured
// operator identities. The policy mutates users in memory only; callers
// persist through the users repo, so the engine can sequence counter writes
// with job transitions in one transaction.
package entitlement

import (
	"errors"
	"fmt"
	"time"

	"github.com/careerbuddy/careerbuddy-bot/internal/domain/users"
)

// Cycle is the quota window. Premium runs on the same window: Upgrade sets
// premium_expires_at == quota_reset_at == now + Cycle.
const Cycle = 30 * 24 * time.Hour

// Unlimited is the sentinel reported in Status for admin identities.
const Unlimited = -1

// ErrNotAllowed means the document type has a zero limit on the user's tier,
// independent of any counter value.
var ErrNotAllowed = errors.New("entitlement: document type not available on this tier")

// QuotaError means the tier's limit for the type is exhausted this cycle.
type QuotaError struct {
	DocType users.DocType
	Limit   int
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("entitlement: %s quota exceeded (limit %d)", e.DocType, e.Limit)
}

type TierLimits struct {
	PerType    map[users.DocType]int
	PDFAllowed bool
}

type LimitTable map[users.Tier]TierLimits

// DefaultLimits is the production table. A limit of 0 disallows the type
// for the tier outright.
func DefaultLimits() LimitTable {
	return LimitTable{
		users.TierFree: {
			PerType: map[users.DocType]int{
				users.DocResume:      1,
				users.DocCV:          1,
				users.DocCoverLetter: 0,
				users.DocRevamp:      1,
			},
			PDFAllowed: false,
		},
		users.TierPro: {
			PerType: map[users.DocType]int{
				users.DocResume:      2,
				users.DocCV:          2,
				users.DocCoverLetter: 1,
				users.DocRevamp:      1,
			},
			PDFAllowed: true,
		},
	}
}

// AdminSet is the injected operator identity list. Stateless: admin status
// changes by reconfiguration alone, never by data migration.
type AdminSet map[int64]struct{}

func NewAdminSet(ids []int64) AdminSet {
	s := make(AdminSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s AdminSet) Contains(telegramID int64) bool {
	_, ok := s[telegramID]
	return ok
}

type Engine struct {
	limits LimitTable
	admins AdminSet
	now    func() time.Time
}

func New(limits LimitTable, admins AdminSet) *Engine {
	return &Engine{limits: limits, admins: admins, now: time.Now}
}

// NewWithClock is for tests driving time-based transitions.
func NewWithClock(limits LimitTable, admins AdminSet, now func() time.Time) *Engine {
	return &Engine{limits: limits, admins: admins, now: now}
}

func (e *Engine) IsAdmin(u *users.User) bool {
	return e.admins.Contains(u.TelegramID)
}

// NextQuotaReset is the end of a counter cycle opened now; first-contact
// user rows get it as their initial quota_reset_at.
func (e *Engine) NextQuotaReset() time.Time {
	return e.now().Add(Cycle)
}

// CheckAndResetQuota starts a new counter cycle when the current one has
// elapsed. Must run before any quota read; idempotent within a cycle.
// Returns true when the user changed and needs persisting.
func (e *Engine) CheckAndResetQuota(u *users.User) bool {
	if e.IsAdmin(u) {
		return false
	}
	now := e.now()
	if now.Before(u.QuotaResetAt) {
		return false
	}
	u.ResetCounts()
	u.QuotaResetAt = now.Add(Cycle)
	return true
}

// CheckPremiumExpiry lazily downgrades an expired pro user. Counters are
// untouched: a partially-used pro cycle carries over against free limits.
func (e *Engine) CheckPremiumExpiry(u *users.User) bool {
	if e.IsAdmin(u) {
		return false
	}
	if u.Tier != users.TierPro {
		return false
	}
	if e.now().Before(u.PremiumExpiresAt) {
		return false
	}
	u.Tier = users.TierFree
	return true
}

// CanGenerate reports whether u may generate one more document of the given
// type. On denial the error is ErrNotAllowed (limit 0 for the tier) or a
// *QuotaError (limit reached). Admins are always allowed.
func (e *Engine) CanGenerate(u *users.User, docType users.DocType) (bool, error) {
	if e.IsAdmin(u) {
		return true, nil
	}
	limit := e.limits[u.Tier].PerType[docType]
	if limit == 0 {
		return false, ErrNotAllowed
	}
	if u.Count(docType) >= limit {
		return false, &QuotaError{DocType: docType, Limit: limit}
	}
	return true, nil
}

func (e *Engine) CanUsePDFExport(u *users.User) bool {
	if e.IsAdmin(u) {
		return true
	}
	return e.limits[u.Tier].PDFAllowed
}

// RecordGeneration charges one generation against the counter. No-op for
// admins: their usage is never recorded.
func (e *Engine) RecordGeneration(u *users.User, docType users.DocType) {
	if e.IsAdmin(u) {
		return
	}
	u.SetCount(docType, u.Count(docType)+1)
}

// Upgrade puts the user on pro with a fresh cycle. The invariant
// premium_expires_at == quota_reset_at holds by construction.
func (e *Engine) Upgrade(u *users.User) {
	now := e.now()
	u.Tier = users.TierPro
	u.ResetCounts()
	u.QuotaResetAt = now.Add(Cycle)
	u.PremiumExpiresAt = u.QuotaResetAt
}

type TypeStatus struct {
	Used      int
	Limit     int
	Remaining int
}

type Status struct {
	Tier             users.Tier
	Admin            bool
	PerType          map[users.DocType]TypeStatus
	PDFAllowed       bool
	QuotaResetAt     time.Time
	PremiumExpiresAt time.Time
}

// GetStatus is the read model behind the status command. Admin rows report
// every limit as Unlimited and carry no expiry instants.
func (e *Engine) GetStatus(u *users.User) Status {
	st := Status{
		Tier:    u.Tier,
		PerType: map[users.DocType]TypeStatus{},
	}
	if e.IsAdmin(u) {
		st.Admin = true
		st.PDFAllowed = true
		for _, t := range users.AllDocTypes() {
			st.PerType[t] = TypeStatus{Used: 0, Limit: Unlimited, Remaining: Unlimited}
		}
		return st
	}

	limits := e.limits[u.Tier]
	st.PDFAllowed = limits.PDFAllowed
	st.QuotaResetAt = u.QuotaResetAt
	if u.Tier == users.TierPro {
		st.PremiumExpiresAt = u.PremiumExpiresAt
	}
	for _, t := range users.AllDocTypes() {
		limit := limits.PerType[t]
		used := u.Count(t)
		remaining := limit - used
		if remaining < 0 {
			remaining = 0
		}
		st.PerType[t] = TypeStatus{Used: used, Limit: limit, Remaining: remaining}
	}
	return st
}
