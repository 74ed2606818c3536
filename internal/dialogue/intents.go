package dialogue

import (
	"context"

	"inspectbot/internal/models"
)

// Intent names, in evaluation order.
const (
	IntentReset        = "reset"
	IntentPayment      = "payment"
	IntentBankMenu     = "bank_menu"
	IntentBankAccount  = "bank_account"
	IntentCard         = "card"
	IntentBankbook     = "bankbook"
	IntentAgent        = "agent"
	IntentImage        = "image"
	IntentFunction     = "function"
	IntentDomain       = "domain"
	IntentBusinessType = "business_type"
	IntentQuery        = "query"
	IntentFallback     = "fallback"
)

// intent pairs a predicate over the turn with the transition it triggers.
// The first matching intent handles the turn.
type intent struct {
	name   string
	match  func(t *turn) bool
	handle func(ctx context.Context, t *turn) models.Reply
}

func utteranceIn(values ...string) func(t *turn) bool {
	return func(t *turn) bool {
		for _, v := range values {
			if t.utterance == v {
				return true
			}
		}
		return false
	}
}

func (e *Engine) intentTable() []intent {
	menu := &e.menu

	return []intent{
		{
			name:  IntentReset,
			match: utteranceIn(inputRestart, inputEnd),
			handle: func(_ context.Context, t *turn) models.Reply {
				t.session.Reset()
				return greetingReply()
			},
		},

		// Menu sub-flows never touch the lookup state.
		{
			name:   IntentPayment,
			match:  utteranceIn(inputPayment, inputPaymentInfo),
			handle: func(context.Context, *turn) models.Reply { return paymentReply() },
		},
		{
			name:   IntentBankMenu,
			match:  utteranceIn(inputAccount, inputOtherBank),
			handle: func(context.Context, *turn) models.Reply { return bankMenuReply(menu) },
		},
		{
			name:  IntentBankAccount,
			match: func(t *turn) bool { return menu.GetBank(t.utterance) != nil },
			handle: func(_ context.Context, t *turn) models.Reply {
				return bankAccountReply(menu, menu.GetBank(t.utterance))
			},
		},
		{
			name:   IntentCard,
			match:  utteranceIn(inputCard),
			handle: func(context.Context, *turn) models.Reply { return cardReply(menu) },
		},
		{
			name:   IntentBankbook,
			match:  utteranceIn(inputBankbook),
			handle: func(context.Context, *turn) models.Reply { return bankbookReply(menu) },
		},
		{
			name:   IntentAgent,
			match:  utteranceIn(inputAgent),
			handle: func(context.Context, *turn) models.Reply { return agentReply(menu) },
		},

		{
			name:  IntentImage,
			match: func(t *turn) bool { return t.imageURL != "" && t.session.ReadyForQuery() },
			handle: func(ctx context.Context, t *turn) models.Reply {
				return e.answerImage(ctx, t.session, t.imageURL)
			},
		},
		{
			name: IntentFunction,
			match: func(t *turn) bool {
				_, ok := models.ParseFunction(t.utterance)
				return ok
			},
			handle: func(_ context.Context, t *turn) models.Reply {
				f, _ := models.ParseFunction(t.utterance)
				t.session.SelectFunction(f)
				return domainPrompt(f)
			},
		},
		{
			name: IntentDomain,
			match: func(t *turn) bool {
				_, ok := models.ParseDomain(t.utterance)
				return ok
			},
			handle: func(_ context.Context, t *turn) models.Reply {
				if t.session.Function == "" {
					return chooseFunctionReply()
				}
				d, _ := models.ParseDomain(t.utterance)
				t.session.SelectDomain(d)
				if t.session.Function == models.FunctionCycles {
					return businessTypePrompt(d)
				}
				return foodTypePrompt(string(d))
			},
		},
		{
			name: IntentBusinessType,
			match: func(t *turn) bool {
				_, ok := models.ParseBusinessType(t.utterance)
				return ok
			},
			handle: func(_ context.Context, t *turn) models.Reply {
				bt, _ := models.ParseBusinessType(t.utterance)
				s := t.session
				if s.Function != models.FunctionCycles {
					return chooseFunctionReply()
				}
				if !s.Domain.Valid() {
					return domainPrompt(s.Function)
				}
				if !bt.BelongsTo(s.Domain) {
					return businessTypePrompt(s.Domain)
				}
				s.BusinessType = bt
				s.ConsecutiveFailures = 0
				return foodTypePrompt(string(bt))
			},
		},
		{
			name:  IntentQuery,
			match: func(t *turn) bool { return t.utterance != "" && t.session.ReadyForQuery() },
			handle: func(ctx context.Context, t *turn) models.Reply {
				return e.answer(ctx, t.session, t.utterance)
			},
		},
		{
			name:   IntentFallback,
			match:  func(*turn) bool { return true },
			handle: func(context.Context, *turn) models.Reply { return greetingReply() },
		},
	}
}
