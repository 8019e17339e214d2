package telegram

import (
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/galkinart-netizen/tg-bot-911/internal/providers"
)

// Reply keyboard buttons.
const (
	btnStart     = "Старт"
	btnStop      = "Стоп"
	btnRestart   = "Перезапустить"
	btnAddPhoto  = "Добавить фото"
	btnDiagnosis = "Диагноз"
	btnTreatment = "Лечение"
)

// Callback data.
const (
	cbProviderPrefix = "ai:"
	cbFlowStart      = "flow:start"
	cbConsentAccept  = "consent:accept"
	cbConsentDecline = "consent:decline"
	cbNextSurvey     = "next:survey"
	cbNextUpload     = "next:upload"
	cbSurveySend     = "survey:send"
)

var providerLabels = map[string]string{
	providers.NameGroq:   "Groq",
	providers.NameOpenAI: "OpenAI (GPT)",
	providers.NameGemini: "Gemini",
}

func mainMenuKeyboard() *telego.ReplyKeyboardMarkup {
	return tu.Keyboard(
		tu.KeyboardRow(tu.KeyboardButton(btnStart), tu.KeyboardButton(btnStop), tu.KeyboardButton(btnRestart)),
		tu.KeyboardRow(tu.KeyboardButton(btnAddPhoto), tu.KeyboardButton(btnDiagnosis), tu.KeyboardButton(btnTreatment)),
	).WithResizeKeyboard()
}

// providerKeyboard lists the given providers on one row. Nil when names is empty.
func providerKeyboard(names []string) *telego.InlineKeyboardMarkup {
	if len(names) == 0 {
		return nil
	}
	row := make([]telego.InlineKeyboardButton, 0, len(names))
	for _, name := range names {
		label, ok := providerLabels[name]
		if !ok {
			label = name
		}
		row = append(row, tu.InlineKeyboardButton(label).WithCallbackData(cbProviderPrefix+name))
	}
	return tu.InlineKeyboard(row)
}

// providerFromCallback extracts the provider name from "ai:<name>" data.
func providerFromCallback(data string) (string, bool) {
	name, ok := strings.CutPrefix(data, cbProviderPrefix)
	if !ok || name == "" {
		return "", false
	}
	return strings.ToLower(name), true
}

func startKeyboard() *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("Начать").WithCallbackData(cbFlowStart)),
	)
}

func consentKeyboard() *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("Согласен и продолжить").WithCallbackData(cbConsentAccept)),
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("Не согласен").WithCallbackData(cbConsentDecline)),
	)
}

func nextStepKeyboard() *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("📋 Пройти опрос").WithCallbackData(cbNextSurvey)),
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("📎 Загрузить документы").WithCallbackData(cbNextUpload)),
	)
}
