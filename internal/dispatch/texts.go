package dispatch

import "fmt"

// User-facing replies sent by the engine.
const (
	textProgressTitle   = "Анализирую ваши данные…"
	textNothingLoaded   = "Не удалось загрузить ни одного документа. Попробуй отправить снова."
	textConclusionFail  = "Не удалось составить заключение. "
	textAnswerFail      = "Не удалось получить ответ. "
	textThinking        = "Думаю…"
	textNoProviderAtAll = "Не задан ни один ключ нейросети. Добавь в .env: GROQ_API_KEY (console.groq.com) или OPENAI_API_KEY (platform.openai.com)."
)

func noProviderText(pref string) string {
	if isAuto(pref) {
		return textNoProviderAtAll
	}
	return fmt.Sprintf("Нейросеть «%s» не подключена: нет ключа в .env. Выбери другую или добавь ключ.", pref)
}
