package entitlement

import (
	"errors"
	"testing"
	"time"

	"github.com/careerbuddy/careerbuddy-bot/internal/domain/users"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newEngine(adminIDs []int64, now time.Time) (*Engine, *time.Time) {
	clock := now
	e := NewWithClock(DefaultLimits(), NewAdminSet(adminIDs), func() time.Time { return clock })
	return e, &clock
}

func freshUser(tgID int64) *users.User {
	u := &users.User{ID: "u1", TelegramID: tgID, Tier: users.TierFree, QuotaResetAt: t0.Add(Cycle)}
	u.ResetCounts()
	return u
}

func TestFreeResumeQuota(t *testing.T) {
	e, _ := newEngine(nil, t0)
	u := freshUser(100)

	ok, err := e.CanGenerate(u, users.DocResume)
	if !ok || err != nil {
		t.Fatalf("first resume should be allowed, got ok=%v err=%v", ok, err)
	}
	e.RecordGeneration(u, users.DocResume)
	if u.Count(users.DocResume) != 1 {
		t.Fatalf("resume count = %d, want 1", u.Count(users.DocResume))
	}

	ok, err = e.CanGenerate(u, users.DocResume)
	if ok {
		t.Fatal("second resume in the same cycle should be denied")
	}
	var qe *QuotaError
	if !errors.As(err, &qe) {
		t.Fatalf("want QuotaError, got %v", err)
	}
	if qe.Limit != 1 {
		t.Fatalf("quota error limit = %d, want 1", qe.Limit)
	}
}

func TestFreeCoverLetterNotAllowed(t *testing.T) {
	e, _ := newEngine(nil, t0)
	u := freshUser(100)

	ok, err := e.CanGenerate(u, users.DocCoverLetter)
	if ok {
		t.Fatal("cover letters must be denied on free")
	}
	if !errors.Is(err, ErrNotAllowed) {
		t.Fatalf("want ErrNotAllowed, got %v", err)
	}

	// Counter value must not matter for a zero-limit type.
	u.SetCount(users.DocCoverLetter, 5)
	if _, err := e.CanGenerate(u, users.DocCoverLetter); !errors.Is(err, ErrNotAllowed) {
		t.Fatalf("want ErrNotAllowed regardless of counter, got %v", err)
	}
}

func TestUpgradeThenProLimits(t *testing.T) {
	e, _ := newEngine(nil, t0)
	u := freshUser(100)
	e.RecordGeneration(u, users.DocResume)

	e.Upgrade(u)
	if u.Tier != users.TierPro {
		t.Fatalf("tier = %s, want pro", u.Tier)
	}
	if !u.PremiumExpiresAt.Equal(u.QuotaResetAt) {
		t.Fatal("premium_expires_at must equal quota_reset_at after upgrade")
	}
	if want := t0.Add(Cycle); !u.QuotaResetAt.Equal(want) {
		t.Fatalf("quota_reset_at = %v, want %v", u.QuotaResetAt, want)
	}
	if u.Count(users.DocResume) != 0 {
		t.Fatal("upgrade must reset counters")
	}

	for i := 0; i < 2; i++ {
		ok, err := e.CanGenerate(u, users.DocResume)
		if !ok {
			t.Fatalf("pro resume #%d should be allowed, err=%v", i+1, err)
		}
		e.RecordGeneration(u, users.DocResume)
	}
	if ok, _ := e.CanGenerate(u, users.DocResume); ok {
		t.Fatal("third pro resume in the same cycle should be denied")
	}
}

func TestAdminBypass(t *testing.T) {
	e, _ := newEngine([]int64{42}, t0)
	u := freshUser(42)

	for i := 0; i < 10; i++ {
		ok, err := e.CanGenerate(u, users.DocResume)
		if !ok || err != nil {
			t.Fatalf("admin request #%d denied: %v", i+1, err)
		}
		e.RecordGeneration(u, users.DocResume)
	}
	if u.Count(users.DocResume) != 0 {
		t.Fatalf("admin counter = %d, want 0 (never recorded)", u.Count(users.DocResume))
	}

	if e.CheckAndResetQuota(u) || e.CheckPremiumExpiry(u) {
		t.Fatal("lazy checks must be no-ops for admins")
	}
	if !e.CanUsePDFExport(u) {
		t.Fatal("pdf export must always be allowed for admins")
	}

	st := e.GetStatus(u)
	if !st.Admin {
		t.Fatal("status must flag admin")
	}
	for typ, ts := range st.PerType {
		if ts.Limit != Unlimited || ts.Remaining != Unlimited {
			t.Fatalf("%s: admin limits must be the unlimited sentinel", typ)
		}
	}
}

func TestNextQuotaResetFollowsClock(t *testing.T) {
	e, clock := newEngine(nil, t0)
	if want := t0.Add(Cycle); !e.NextQuotaReset().Equal(want) {
		t.Fatalf("next reset = %v, want %v", e.NextQuotaReset(), want)
	}
	*clock = t0.Add(48 * time.Hour)
	if want := clock.Add(Cycle); !e.NextQuotaReset().Equal(want) {
		t.Fatalf("next reset = %v, want %v", e.NextQuotaReset(), want)
	}
}

func TestQuotaResetIdempotentWithinCycle(t *testing.T) {
	e, _ := newEngine(nil, t0)
	u := freshUser(100)
	e.RecordGeneration(u, users.DocResume)

	if e.CheckAndResetQuota(u) {
		t.Fatal("reset must not fire before the cycle elapses")
	}
	before := u.Count(users.DocResume)
	e.CheckAndResetQuota(u)
	if u.Count(users.DocResume) != before {
		t.Fatal("repeated pre-reset checks must not change counters")
	}
}

func TestQuotaResetAfterCycle(t *testing.T) {
	e, clock := newEngine(nil, t0)
	u := freshUser(100)
	e.RecordGeneration(u, users.DocResume)

	*clock = t0.Add(Cycle + time.Hour)
	if !e.CheckAndResetQuota(u) {
		t.Fatal("reset must fire once the cycle elapses")
	}
	if u.Count(users.DocResume) != 0 {
		t.Fatal("counters must be zero after reset")
	}
	if want := clock.Add(Cycle); !u.QuotaResetAt.Equal(want) {
		t.Fatalf("quota_reset_at = %v, want %v", u.QuotaResetAt, want)
	}
}

func TestPremiumExpiryKeepsCounters(t *testing.T) {
	e, clock := newEngine(nil, t0)
	u := freshUser(100)
	e.Upgrade(u)
	e.RecordGeneration(u, users.DocResume)
	e.RecordGeneration(u, users.DocResume)

	*clock = u.PremiumExpiresAt.Add(time.Minute)
	if !e.CheckPremiumExpiry(u) {
		t.Fatal("expiry must downgrade once premium_expires_at passes")
	}
	if u.Tier != users.TierFree {
		t.Fatalf("tier = %s, want free", u.Tier)
	}
	if u.Count(users.DocResume) != 2 {
		t.Fatal("downgrade must preserve accumulated counters")
	}
	// Carried-over usage now counts against the free limit of 1.
	if ok, _ := e.CanGenerate(u, users.DocResume); ok {
		t.Fatal("carried-over counters must apply against free limits")
	}
}

func TestPDFTierGate(t *testing.T) {
	e, _ := newEngine(nil, t0)
	u := freshUser(100)
	if e.CanUsePDFExport(u) {
		t.Fatal("free tier must not have pdf export")
	}
	e.Upgrade(u)
	if !e.CanUsePDFExport(u) {
		t.Fatal("pro tier must have pdf export")
	}
}

func TestStatusRemainingNeverNegative(t *testing.T) {
	e, _ := newEngine(nil, t0)
	u := freshUser(100)
	u.SetCount(users.DocResume, 3) // over-limit row from an older table
	st := e.GetStatus(u)
	if st.PerType[users.DocResume].Remaining != 0 {
		t.Fatalf("remaining = %d, want clamped 0", st.PerType[users.DocResume].Remaining)
	}
}
