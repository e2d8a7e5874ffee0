// internal/models/entitlement.go
package models

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

// UsersCollection is the document collection holding one entitlement record per account.
const UsersCollection = "users"

// Unlimited is the stored sentinel for "no cap" quotas.
const Unlimited = 1e10

// Plan is the subscription tier. Tiers only move upwards.
type Plan int

const (
	PlanFree    Plan = 0
	PlanPro     Plan = 1
	PlanPremium Plan = 2
)

func (p Plan) String() string {
	switch p {
	case PlanFree:
		return "free"
	case PlanPro:
		return "pro"
	case PlanPremium:
		return "premium"
	default:
		return fmt.Sprintf("plan(%d)", int(p))
	}
}

// ParsePlan accepts the plan names used in job variables.
func ParsePlan(s string) (Plan, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "free":
		return PlanFree, nil
	case "pro":
		return PlanPro, nil
	case "premium":
		return PlanPremium, nil
	default:
		return 0, fmt.Errorf("unknown plan %q", s)
	}
}

type CaseStudy struct {
	Plan    int     `json:"plan"`
	PerWeek float64 `json:"perWeek"`
}

// UserEntitlement is the stored per-account record.
type UserEntitlement struct {
	AccountID          string     `json:"-"`
	Email              string     `json:"email"`
	Role               *string    `json:"role"`
	Plan               Plan       `json:"plan"`
	InterviewQuota     float64    `json:"interview"`
	QuestionBankAccess int        `json:"questionBank"`
	ProgressTracking   int        `json:"progressTracking"`
	InterviewGiven     int        `json:"interviewGiven"`
	CaseStudy          CaseStudy  `json:"caseStudy"`
	CreatedAt          time.Time  `json:"createdAt"`
	LastLoginAt        *time.Time `json:"lastLoginAt,omitempty"`
}

// HasRole reports whether a role has been assigned; only a null role counts as unset.
func (e *UserEntitlement) HasRole() bool {
	return e.Role != nil
}

func (e *UserEntitlement) RoleValue() string {
	if e.Role == nil {
		return ""
	}
	return *e.Role
}

// CanSeeAdvanced is true when the plan unlocks advanced questions.
func (e *UserEntitlement) CanSeeAdvanced() bool {
	return e.QuestionBankAccess == 1
}

// TierConsistent reports whether every tier field matches the canonical bundle for e.Plan.
func (e *UserEntitlement) TierConsistent() bool {
	b, ok := bundles[e.Plan]
	if !ok {
		return false
	}
	return e.InterviewQuota == b.InterviewQuota &&
		e.QuestionBankAccess == b.QuestionBankAccess &&
		e.ProgressTracking == b.ProgressTracking &&
		e.CaseStudy == b.CaseStudy
}

type tierBundle struct {
	InterviewQuota     float64
	QuestionBankAccess int
	ProgressTracking   int
	CaseStudy          CaseStudy
}

var bundles = map[Plan]tierBundle{
	PlanFree:    {InterviewQuota: 3, QuestionBankAccess: 0, ProgressTracking: 0, CaseStudy: CaseStudy{Plan: 0, PerWeek: 0}},
	PlanPro:     {InterviewQuota: Unlimited, QuestionBankAccess: 1, ProgressTracking: 1, CaseStudy: CaseStudy{Plan: 1, PerWeek: 2}},
	PlanPremium: {InterviewQuota: Unlimited, QuestionBankAccess: 1, ProgressTracking: 1, CaseStudy: CaseStudy{Plan: 2, PerWeek: Unlimited}},
}

// TierBundle returns the partial document that sets every tier field for p in one write.
func TierBundle(p Plan) (map[string]interface{}, error) {
	b, ok := bundles[p]
	if !ok {
		return nil, fmt.Errorf("no tier bundle for %s", p)
	}
	return map[string]interface{}{
		"plan":             int(p),
		"interview":        b.InterviewQuota,
		"questionBank":     b.QuestionBankAccess,
		"progressTracking": b.ProgressTracking,
		"caseStudy": map[string]interface{}{
			"plan":    b.CaseStudy.Plan,
			"perWeek": b.CaseStudy.PerWeek,
		},
	}, nil
}

// NewAccountDocument is the full free-tier record written for a first sign-in or sign-up.
func NewAccountDocument(email string, role *string, now time.Time) map[string]interface{} {
	doc, _ := TierBundle(PlanFree)
	doc["email"] = email
	doc["interviewGiven"] = 0
	doc["createdAt"] = now.UTC().Format(time.RFC3339)
	if role != nil {
		doc["role"] = *role
	} else {
		doc["role"] = nil
	}
	return doc
}

// DecodeEntitlement converts a stored document into a UserEntitlement.
func DecodeEntitlement(accountID string, doc map[string]interface{}) (*UserEntitlement, error) {
	ent := &UserEntitlement{AccountID: accountID}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           ent,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339),
			planHook,
		),
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(doc); err != nil {
		return nil, fmt.Errorf("decode entitlement %s: %w", accountID, err)
	}
	return ent, nil
}

// planHook lets numeric plan values decode into Plan.
func planHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != reflect.TypeOf(PlanFree) {
		return data, nil
	}
	switch v := data.(type) {
	case float64:
		return Plan(int(v)), nil
	case int:
		return Plan(v), nil
	case int64:
		return Plan(int(v)), nil
	}
	return data, nil
}

// Variables flattens the record into process variables.
func (e *UserEntitlement) Variables() map[string]interface{} {
	var role interface{}
	if e.Role != nil {
		role = *e.Role
	}
	return map[string]interface{}{
		"accountId":          e.AccountID,
		"email":              e.Email,
		"role":               role,
		"plan":               e.Plan.String(),
		"planLevel":          int(e.Plan),
		"interviewQuota":     e.InterviewQuota,
		"questionBankAccess": e.QuestionBankAccess,
		"progressTracking":   e.ProgressTracking,
		"interviewGiven":     e.InterviewGiven,
		"caseStudy": map[string]interface{}{
			"plan":    e.CaseStudy.Plan,
			"perWeek": e.CaseStudy.PerWeek,
		},
	}
}
