package leads

import (
	"strings"

	"lawline/app/config"
	"lawline/app/service/convstate"

	"github.com/samber/do"
)

const minMessagesForKeywordMatch = 2

// Variant tags the kind of notification a verdict asks for.
type Variant string

const (
	VariantNewLead    Variant = "new lead"
	VariantInterested Variant = "interested"
	VariantSupplement Variant = "supplement"
)

// Input is everything the classifier looks at for one evaluation. UserText
// and AssistantText are the unrelayed portions of the conversation.
type Input struct {
	UserText      string
	AssistantText string
	Tier          convstate.Tier
	UserMessages  int
}

// Verdict is a pure decision; the caller performs the actual relay.
type Verdict struct {
	Tier    convstate.Tier
	Notify  bool
	Variant Variant
	Urgent  bool
	Reason  string
}

type rule struct {
	name  string
	apply func(Input) (Verdict, bool)
}

// Engine classifies conversation deltas into notification tiers. Rules are
// evaluated top-down, first match wins.
type Engine struct {
	rules []rule
}

func New(di *do.Injector) (*Engine, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewEngine(cfg.Leads), nil
}

func NewEngine(cfg config.Leads) *Engine {
	e := &Engine{}

	e.rules = append(e.rules,
		rule{name: "user-contact", apply: userContactRule},
		rule{name: "operator-contact-echo", apply: operatorContactRule(cfg.OperatorContacts)},
	)

	// Urgent categories go before count-gated ones so an emergency on the
	// first message is never swallowed by the gate.
	for _, cat := range cfg.Categories {
		if cat.Urgent {
			e.rules = append(e.rules, rule{name: cat.Name, apply: urgentCategoryRule(cat)})
		}
	}
	for _, cat := range cfg.Categories {
		if !cat.Urgent {
			e.rules = append(e.rules, rule{name: cat.Name, apply: categoryRule(cat)})
		}
	}

	e.rules = append(e.rules, rule{name: "confirmed-followup", apply: confirmedFollowupRule})

	return e
}

// Classify evaluates the rule table over the input. When nothing matches the
// verdict keeps the current tier and asks for no notification.
func (e *Engine) Classify(in Input) Verdict {
	for _, r := range e.rules {
		if verdict, ok := r.apply(in); ok {
			if verdict.Reason == "" {
				verdict.Reason = r.name
			}
			return verdict
		}
	}

	return Verdict{Tier: in.Tier}
}

func userContactRule(in Input) (Verdict, bool) {
	if !ContainsContact(in.UserText) {
		return Verdict{}, false
	}

	variant := VariantNewLead
	if in.Tier == convstate.TierConfirmed {
		// Repeat disclosure: still worth showing, but not as a new lead.
		variant = VariantSupplement
	}

	return Verdict{
		Tier:    convstate.TierConfirmed,
		Notify:  true,
		Variant: variant,
		Reason:  "user shared contact details",
	}, true
}

func operatorContactRule(fragments []string) func(Input) (Verdict, bool) {
	return func(in Input) (Verdict, bool) {
		if in.Tier != convstate.TierNone {
			return Verdict{}, false
		}

		lower := strings.ToLower(in.AssistantText)
		for _, fragment := range fragments {
			if fragment != "" && strings.Contains(lower, strings.ToLower(fragment)) {
				return Verdict{
					Tier:    convstate.TierInterested,
					Notify:  true,
					Variant: VariantInterested,
					Reason:  "assistant shared office contacts",
				}, true
			}
		}

		return Verdict{}, false
	}
}

func urgentCategoryRule(cat config.Category) func(Input) (Verdict, bool) {
	return func(in Input) (Verdict, bool) {
		if !matchesKeywords(in.UserText, cat.Keywords) {
			return Verdict{}, false
		}

		return Verdict{
			Tier:    maxTier(in.Tier, convstate.TierInterested),
			Notify:  true,
			Variant: variantForTier(in.Tier),
			Urgent:  true,
			Reason:  cat.Name,
		}, true
	}
}

func categoryRule(cat config.Category) func(Input) (Verdict, bool) {
	return func(in Input) (Verdict, bool) {
		// The count gate suppresses false positives on opening messages.
		if in.UserMessages <= minMessagesForKeywordMatch {
			return Verdict{}, false
		}

		if !matchesKeywords(in.UserText, cat.Keywords) {
			return Verdict{}, false
		}

		return Verdict{
			Tier:    maxTier(in.Tier, convstate.TierInterested),
			Notify:  true,
			Variant: variantForTier(in.Tier),
			Reason:  cat.Name,
		}, true
	}
}

// confirmedFollowupRule keeps the operator in the loop: once a conversation
// is a confirmed lead, later quiet-period fires still relay the tail.
func confirmedFollowupRule(in Input) (Verdict, bool) {
	if in.Tier != convstate.TierConfirmed {
		return Verdict{}, false
	}

	if in.UserText == "" && in.AssistantText == "" {
		return Verdict{}, false
	}

	return Verdict{
		Tier:    convstate.TierConfirmed,
		Notify:  true,
		Variant: VariantSupplement,
		Reason:  "confirmed lead followup",
	}, true
}

func matchesKeywords(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}

	return false
}

func variantForTier(current convstate.Tier) Variant {
	if current == convstate.TierNone {
		return VariantNewLead
	}

	return VariantSupplement
}

func maxTier(a, b convstate.Tier) convstate.Tier {
	if a > b {
		return a
	}

	return b
}
