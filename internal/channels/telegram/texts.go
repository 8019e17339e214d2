package telegram

import "fmt"

const textWelcome = "<b>Привет!</b> 👋\n\n" +
	"Я — помощник по медицинским документам. Разбираю анализы и заключения врачей простыми словами, " +
	"чтобы вы и ваши близкие могли спокойно понять результаты и знать, что делать дальше.\n\n" +
	"<b>Чем я полезен:</b>\n" +
	"1️⃣ Объясняю анализы и выписки без сложных терминов\n" +
	"2️⃣ Подсказываю, что в норме, а на что обратить внимание\n" +
	"3️⃣ Даю понятные рекомендации: к врачу ли идти и о чём спросить\n" +
	"4️⃣ Отвечаю на вопросы о здоровье простым языком\n\n" +
	"<b>Что можно сделать:</b>\n" +
	"• Пройти короткий опрос о здоровье\n" +
	"• Прислать фото анализов или заключений — разберу по пунктам\n" +
	"• Написать вопрос текстом — отвечу простым языком\n\n" +
	"Нажмите кнопку ниже, чтобы начать."

const textHelp = "/start — приветствие\n" +
	"/help — эта справка\n\n" +
	"Кнопки: Старт, Стоп, Перезапустить, Добавить фото, Диагноз (последнее заключение), Лечение (последние рекомендации).\n\n" +
	"Можно прислать несколько фото подряд — через 10 сек разберу вместе (или выбери ИИ кнопкой). " +
	"Или напиши «всё» / «готово». Вопрос текстом — отвечу простыми словами."

const textConsent = `📄 <b>Единый блок юридического согласия (РФ)</b>
Информированное согласие пользователя

Нажимая кнопку «Согласен и продолжить», я подтверждаю, что:

• Настоящий сервис не является медицинской организацией, не осуществляет медицинскую деятельность и не оказывает медицинские услуги в смысле Федерального закона № 323-ФЗ «Об основах охраны здоровья граждан в Российской Федерации».

• Бот не устанавливает диагноз, не назначает лечение и не заменяет консультацию врача. Предоставляемая информация носит справочный, информационно-аналитический характер и не является медицинским заключением.

• Я осознаю необходимость обращения к врачу или в медицинскую организацию при ухудшении состояния здоровья.

• В случае возникновения экстренных симптомов (угроза жизни, выраженный болевой синдром, потеря сознания, признаки инсульта или инфаркта и др.) я обязан(а) немедленно обратиться за медицинской помощью или вызвать скорую помощь.

• Я добровольно даю согласие на обработку моих персональных данных, включая специальные категории персональных данных (сведения о состоянии здоровья), в соответствии с Федеральным законом № 152-ФЗ «О персональных данных», исключительно в целях анализа состояния здоровья и формирования информационных рекомендаций в рамках работы сервиса.

• Я подтверждаю, что предоставляю достоверную информацию о своём состоянии здоровья и понимаю, что ответственность за принятие решений о лечении лежит на мне и/или моем лечащем враче.`

const (
	textConsentDeclined = "Мы уважаем ваше решение.\n\n" +
		"К сожалению, без согласия на обработку персональных данных и с условиями использования сервиса мы не можем предоставить возможность пользоваться ботом. " +
		"Если измените решение — нажмите /start и примите условия."
	textNextStep       = "Спасибо! Что делаем дальше?"
	textUploadPrompt   = "Пришлите фото или файл с анализом/заключением. Можно несколько — через 10 сек разберу вместе или нажмите кнопку и выберите ИИ."
	textSurveyDone     = "Спасибо! Опрос завершён. Теперь можно присылать анализы и документы — учту ваши ответы при разборе."
	textSurveyNoAnswer = "Сначала напишите ответ в чат и отправьте сообщение."

	textStopped       = "Остановлено. Буфер фото очищен."
	textRestarted     = "Перезапуск. Буфер очищен. Можешь начать заново: пришли фото или нажми «Добавить фото»."
	textAddPhoto      = "Пришли фото или файл с анализом/заключением. Можно несколько — через 10 сек разберу вместе или напиши «всё» / «готово»."
	textNoDiagnosis   = "Пока нет сохранённого заключения. Пришли фото анализов/документов — разберу и сохраню."
	textNoTreatment   = "Пока нет сохранённых рекомендаций по лечению. Пришли фото — после разбора они появятся здесь."
	textNothingQueued = "Пока нет документов для разбора. Пришли фото или файлы анализов/заключений."
	textNoDocsForAI   = "Документов для разбора нет. Пришлите фото или файлы."
	textStarting      = "Запускаю анализ…"
	textNotImage      = "Пока принимаю только фото и картинки (JPEG, PNG). PDF не поддерживаю — пришли, пожалуйста, скриншот страницы."

	textNameGuard = "Похоже на ФИО. Я не ищу информацию о людях в интернете.\n\n" +
		"Если проходите опрос — нажмите «Начать» в приветствии и отвечайте на вопросы по порядку.\n" +
		"Если нужна помощь по здоровью — задайте вопрос словами (например: что значит повышенный сахар?)."
)

func arrivalText(n, delaySec int) string {
	return fmt.Sprintf("Получил (%d документ(ов)). Пришли ещё в течение %d сек — разберу всё вместе. "+
		"Или напиши «всё» / «готово».\n\nВыберите ИИ для анализа:", n, delaySec)
}

func surveyIDText(id int) string {
	return fmt.Sprintf("<b>Ваш уникальный ID:</b> %d\n\nСохраните его — он привязан к ФИО и дате рождения.", id)
}
