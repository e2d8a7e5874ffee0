// internal/contentgate/gate.go
package contentgate

import (
	"strings"

	"interview-prep-workers/internal/common/metrics"
	"interview-prep-workers/internal/models"
)

// State is what the question page shows.
type State string

const (
	StateLoading         State = "loading"
	StateUnauthenticated State = "unauthenticated"
	StateNoContent       State = "noContent"
	StateReady           State = "ready"
)

const (
	MsgSelectRole    = "Please log in and select a role to view questions."
	MsgNoQuestions   = "No questions available for your role yet."
	MsgUpgradePrompt = "To access advanced questions, please upgrade to a paid plan."
)

// Visible is the content resolved for a role. Advanced is always populated when the
// role has advanced items; ShowAdvanced says whether the plan may display them.
type Visible struct {
	Basic        []models.ContentItem
	Advanced     []models.ContentItem
	ShowAdvanced bool
}

// VisibleContent resolves role against the bank: exact key, then the first key equal
// ignoring case, then every item whose own role field matches ignoring case.
// An unmatched or empty role yields empty sets.
func (b *Bank) VisibleContent(role string, questionBankAccess int) Visible {
	v := Visible{
		Basic:        []models.ContentItem{},
		Advanced:     []models.ContentItem{},
		ShowAdvanced: questionBankAccess == 1,
	}
	if role == "" {
		return v
	}

	for _, item := range b.resolve(role) {
		switch strings.ToLower(item.Tags) {
		case models.DifficultyBasic:
			v.Basic = append(v.Basic, item)
		case models.DifficultyAdvanced:
			v.Advanced = append(v.Advanced, item)
		}
	}
	return v
}

// Match records how a role resolved. Key is set when a bank key matched; otherwise
// ItemRole holds the lowercased role matched against item role fields.
type Match struct {
	Key      string
	ItemRole string
}

// Lookup resolves role with the same precedence as VisibleContent. ok is false when
// no key matches and no item carries the role.
func (b *Bank) Lookup(role string) (Match, bool) {
	m, items := b.lookup(role)
	return m, m.Key != "" || len(items) > 0
}

func (b *Bank) resolve(role string) []models.ContentItem {
	_, items := b.lookup(role)
	return items
}

func (b *Bank) lookup(role string) (Match, []models.ContentItem) {
	if role == "" {
		return Match{}, nil
	}
	if items, ok := b.sets[role]; ok {
		return Match{Key: role}, items
	}

	lower := strings.ToLower(role)
	for _, key := range b.keys {
		if strings.ToLower(key) == lower {
			return Match{Key: key}, b.sets[key]
		}
	}

	var matched []models.ContentItem
	for _, key := range b.keys {
		for _, item := range b.sets[key] {
			if item.Role != "" && strings.ToLower(item.Role) == lower {
				matched = append(matched, item)
			}
		}
	}
	return Match{ItemRole: lower}, matched
}

// View is the gate's answer for one account.
type View struct {
	State          State
	Message        string
	Visible        Visible
	UpgradeMessage string
}

// Evaluate maps an identity lookup to a gate view. resolved is false while the
// account's credentials are still being looked up.
func (b *Bank) Evaluate(resolved bool, ent *models.UserEntitlement) View {
	view := b.evaluate(resolved, ent)
	metrics.GateStates.WithLabelValues(string(view.State)).Inc()
	return view
}

func (b *Bank) evaluate(resolved bool, ent *models.UserEntitlement) View {
	empty := Visible{Basic: []models.ContentItem{}, Advanced: []models.ContentItem{}}

	if !resolved {
		return View{State: StateLoading, Visible: empty}
	}
	if ent == nil || ent.RoleValue() == "" {
		return View{State: StateUnauthenticated, Message: MsgSelectRole, Visible: empty}
	}

	visible := b.VisibleContent(ent.RoleValue(), ent.QuestionBankAccess)
	if len(visible.Basic) == 0 && len(visible.Advanced) == 0 {
		return View{State: StateNoContent, Message: MsgNoQuestions, Visible: visible}
	}

	view := View{State: StateReady, Visible: visible}
	if !visible.ShowAdvanced && len(visible.Advanced) > 0 {
		view.UpgradeMessage = MsgUpgradePrompt
	}
	return view
}
