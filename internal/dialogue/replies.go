package dialogue

import (
	"fmt"
	"strings"

	"inspectbot/internal/config"
	"inspectbot/internal/lookup"
	"inspectbot/internal/models"
)

// Fixed utterances that are not function, domain or business type labels.
const (
	inputRestart     = "처음으로"
	inputEnd         = "종료"
	inputPayment     = "결제수단"
	inputPaymentInfo = "결제정보"
	inputAccount     = "계좌번호"
	inputOtherBank   = "다른은행"
	inputCard        = "카드결제"
	inputBankbook    = "통장사본"
	inputAgent       = "상담원 연결"
)

// MaxChoices bounds the candidate labels offered while disambiguating.
const MaxChoices = 10

// Failure counts at which the miss reply escalates.
const (
	imageInviteThreshold   = 1
	documentCheckThreshold = 3
)

const (
	separator    = "━━━━━━━━━━━━━━━"
	retryFooter  = "☆ 다른 식품 유형을 입력하거나, [종료]를 눌러주세요."
	resultFooter = "📌 다른 식품 유형을 입력하거나, [종료]를 눌러주세요."
)

func reply(text string, inputs ...string) models.Reply {
	return models.Reply{Text: text, SuggestedInputs: inputs}
}

func greetingReply() models.Reply {
	return reply("안녕하세요! 바이오에프엘 검사 안내 챗봇입니다.\n\n원하시는 서비스를 선택해주세요.",
		string(models.FunctionCycles), string(models.FunctionItems))
}

func chooseFunctionReply() models.Reply {
	return reply("먼저 원하시는 서비스를 선택해주세요.",
		string(models.FunctionCycles), string(models.FunctionItems))
}

func errorReply() models.Reply {
	return reply("❌ 오류가 발생했습니다. 잠시 후 다시 시도해주세요.", inputRestart)
}

func domainPrompt(f models.Function) models.Reply {
	inputs := make([]string, 0, len(models.Domains)+1)
	for _, d := range models.Domains {
		inputs = append(inputs, string(d))
	}
	return reply(fmt.Sprintf("[%s] 검사할 분야를 선택해주세요.", f), append(inputs, inputRestart)...)
}

func businessTypePrompt(d models.Domain) models.Reply {
	var inputs []string
	for _, bt := range models.BusinessTypesFor(d) {
		inputs = append(inputs, string(bt))
	}
	return reply(fmt.Sprintf("[%s] 검사할 업종을 선택해주세요.", d), append(inputs, inputRestart)...)
}

// foodTypePrompt is labelled with the domain for item lookups and with the
// business type for cycle lookups.
func foodTypePrompt(label string) models.Reply {
	return reply(fmt.Sprintf("[%s] 검사할 식품 유형을 입력해주세요.\n\n예: 과자, 음료, 소시지 등", label), inputRestart)
}

func foundReply(f models.Function, r *lookup.Record) models.Reply {
	var text string
	if f == models.FunctionCycles {
		text = fmt.Sprintf("✅ [%s] %s의 검사주기:\n\n%s", r.FoodGroup, r.FoodType, r.Detail)
	} else {
		text = fmt.Sprintf("✅ [%s]의 검사 항목:\n\n%s", r.FoodType, r.Detail)
	}
	return reply(text+"\n\n"+resultFooter, inputEnd)
}

func choicesReply(res *lookup.Result) models.Reply {
	labels := res.Labels
	text := fmt.Sprintf("🔍 '%s'에 해당하는 식품 유형이 %d개 있습니다.\n\n아래에서 선택해주세요.", res.Query, len(labels))
	if len(labels) > MaxChoices {
		labels = labels[:MaxChoices]
		text += fmt.Sprintf(" (상위 %d개 표시)", MaxChoices)
	}
	inputs := make([]string, 0, len(labels)+1)
	inputs = append(inputs, labels...)
	return reply(text, append(inputs, inputEnd)...)
}

// escalation is the guidance level of a miss reply.
type escalation int

const (
	escalateGeneric escalation = iota
	escalateImage
	escalateDocument
)

// escalationFor picks the guidance level for a failure count. The document
// check wins regardless of image availability.
func escalationFor(failures int, imageAvailable bool) escalation {
	switch {
	case failures >= documentCheckThreshold:
		return escalateDocument
	case failures >= imageInviteThreshold && imageAvailable:
		return escalateImage
	default:
		return escalateGeneric
	}
}

func documentHint(f models.Function, bt models.BusinessType) string {
	switch {
	case f == models.FunctionItems:
		return "📋 품목제조보고서 또는 영업등록증/신고증/허가증의 '식품유형'을 확인하여 다시 입력해주세요."
	case bt.IsManufacturing():
		return "📋 품목제조보고서의 '식품유형'을 확인하여 다시 입력해주세요."
	default:
		return "📋 영업등록증 또는 신고증/허가증의 '식품유형'을 확인하여 다시 입력해주세요."
	}
}

func missReply(scope lookup.Scope, query string, level escalation, remaining int, similar []string) models.Reply {
	subject := "검사 항목을"
	if scope.Function == models.FunctionCycles {
		subject = "검사주기를"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "❌ '%s'에 대한 %s 찾을 수 없습니다.\n\n", query, subject)
	switch level {
	case escalateDocument:
		b.WriteString(documentHint(scope.Function, scope.BusinessType))
	case escalateImage:
		fmt.Fprintf(&b, "📷 제품 표시사항이나 서류 사진을 보내주시면 식품유형을 찾아드립니다. (남은 횟수: %d회)\n\n", remaining)
		b.WriteString(retryFooter)
	default:
		b.WriteString(retryFooter)
	}
	if len(similar) > 0 {
		b.WriteString("\n\n🔍 유사한 항목: ")
		b.WriteString(strings.Join(similar, ", "))
	}
	return reply(b.String(), inputEnd)
}

func imageFailedReply(message string) models.Reply {
	return reply(message+"\n\n✏️ 식품 유형을 직접 입력해주세요.", inputEnd)
}

func imageReadPrefix(foodType string) string {
	return fmt.Sprintf("📷 이미지에서 '%s'을(를) 인식했습니다.\n\n", foodType)
}

func paymentReply() models.Reply {
	return reply("💳 결제수단을 선택해주세요.", inputAccount, inputCard, inputBankbook, inputRestart)
}

func bankMenuReply(menu *config.MenuConfig) models.Reply {
	return reply("🏦 은행을 선택해주세요.", append(menu.BankNames(), inputRestart)...)
}

func bankAccountReply(menu *config.MenuConfig, bank *config.BankConfig) models.Reply {
	text := fmt.Sprintf("🏦 %s 계좌번호\n\n📋 %s\n\n%s\n%s", bank.Name, bank.Account, separator, menu.DepositNotes)
	return reply(text, inputOtherBank, inputPayment, inputRestart)
}

func cardReply(menu *config.MenuConfig) models.Reply {
	return reply("💳 카드 결제 안내\n\n"+menu.CardPayment, inputPayment, inputRestart)
}

func bankbookReply(menu *config.MenuConfig) models.Reply {
	return reply("📄 통장 사본 안내\n\n"+menu.BankbookCopy, inputPayment, inputRestart)
}

func agentReply(menu *config.MenuConfig) models.Reply {
	text := fmt.Sprintf("👩‍💼 상담원 연결 안내\n\n⏰ 상담 가능 시간\n%s\n\n%s\n아래 링크를 클릭하여 상담원과 연결하세요.\n\n🔗 %s",
		menu.AgentHours, separator, menu.AgentLink)
	return reply(text, inputRestart)
}
