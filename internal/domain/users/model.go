package users

import "time"

type Tier string

const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
)

// DocType is a generated document kind; quota counters are keyed by it.
type DocType string

const (
	DocResume      DocType = "resume"
	DocCV          DocType = "cv"
	DocCoverLetter DocType = "cover_letter"
	DocRevamp      DocType = "revamp"
)

func AllDocTypes() []DocType {
	return []DocType{DocResume, DocCV, DocCoverLetter, DocRevamp}
}

func ParseDocType(s string) (DocType, bool) {
	switch DocType(s) {
	case DocResume, DocCV, DocCoverLetter, DocRevamp:
		return DocType(s), true
	}
	return "", false
}

type User struct {
	ID               string
	TelegramID       int64
	Username         string
	Tier             Tier
	DocCounts        map[DocType]int
	QuotaResetAt     time.Time
	PremiumExpiresAt time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Count returns the counter for t; missing keys read as zero so rows written
// before a new document type was introduced stay valid.
func (u *User) Count(t DocType) int {
	if u.DocCounts == nil {
		return 0
	}
	return u.DocCounts[t]
}

func (u *User) SetCount(t DocType, n int) {
	if u.DocCounts == nil {
		u.DocCounts = map[DocType]int{}
	}
	u.DocCounts[t] = n
}

func (u *User) ResetCounts() {
	u.DocCounts = map[DocType]int{}
	for _, t := range AllDocTypes() {
		u.DocCounts[t] = 0
	}
}
