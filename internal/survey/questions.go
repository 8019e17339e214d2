package survey

import (
	"fmt"
	"html"
)

// Question is one questionnaire item. Variants is an optional hint listing
// expected answers.
type Question struct {
	Text     string
	Variants string
}

// AllQuestions is the full medical questionnaire. The first two answers
// double as the respondent's name and birth year.
var AllQuestions = []Question{
	{"Фамилия, имя, отчество", ""},
	{"Год рождения (например, 1955)", ""},
	{"Пол", "мужской / женский"},
	{"Рост (см)", ""},
	{"Вес (кг)", ""},
	{"Социальный статус", "проживает один / с семьёй / в учреждении ухода"},
	{"Основная жалоба", "боль / слабость / одышка / повышение температуры / падение / другое"},
	{"Локализация боли", "грудная клетка / живот / голова / поясница / суставы / иное"},
	{"Характер боли", "острая / ноющая / давящая / колющая / приступообразная"},
	{"Интенсивность боли", "слабая / умеренная / выраженная / нестерпимая"},
	{"Длительность симптомов", "сегодня / 1–3 дня / более недели"},
	{"Динамика состояния", "улучшение / без изменений / ухудшение"},
	{"Связано ли ухудшение с физической нагрузкой?", "да / нет"},
	{"Предшествовал ли стресс?", "да / нет"},
	{"Были ли подобные эпизоды ранее?", "да / нет"},
	{"Вызывалась ли скорая медицинская помощь?", "да / нет"},
	{"Артериальная гипертензия?", "да / нет"},
	{"Ишемическая болезнь сердца?", "да / нет"},
	{"Инфаркт миокарда в анамнезе?", "да / нет"},
	{"Инсульт в анамнезе?", "да / нет"},
	{"Сахарный диабет?", "да / нет"},
	{"Хроническая болезнь почек?", "да / нет"},
	{"ХОБЛ / бронхиальная астма?", "да / нет"},
	{"Онкологические заболевания?", "да / нет"},
	{"Принимаете ли вы постоянную терапию?", "да / нет"},
	{"Гипотензивные препараты?", "да / нет"},
	{"Антикоагулянты / антиагреганты?", "да / нет"},
	{"Инсулин / сахароснижающие препараты?", "да / нет"},
	{"Приняты ли препараты сегодня?", "да / нет / пропустил"},
	{"Артериальное давление", "<100 / 100–130 / 130–150 / 150–180 / >180"},
	{"Температура тела", "норма / до 37.5 / 37.5–38.5 / >38.5"},
	{"Частота пульса", "<60 / 60–90 / >90 / не измерял"},
	{"Наличие отёков?", "да / нет"},
	{"Нарушение речи?", "да / нет"},
	{"Онемение конечностей?", "да / нет"},
	{"Нарушение зрения?", "да / нет"},
	{"Судорожный синдром?", "да / нет"},
	{"Потеря сознания?", "да / нет"},
	{"Факт падения?", "да / нет"},
	{"Удар головой?", "да / нет"},
	{"Потеря сознания при падении?", "да / нет"},
	{"Боль в области таза или шейки бедра?", "да / нет"},
	{"Наличие лекарственной аллергии?", "да / нет / не знаю"},
	{"Аллергия на продукты питания?", "да / нет"},
	{"Имеются ли результаты лабораторных анализов?", "да / нет"},
	{"Имеются ли заключения врачей?", "да / нет"},
	{"Имеются ли результаты инструментальных исследований (УЗИ / КТ / МРТ)?", "да / нет"},
	{"Общее самочувствие", "удовлетворительное / средней тяжести / тяжёлое / крайне тяжёлое"},
}

// Active returns the first n questions, clamped to the full list.
func Active(n int) []Question {
	if n <= 0 || n > len(AllQuestions) {
		n = len(AllQuestions)
	}
	return AllQuestions[:n]
}

// FormatQuestion renders question step (1-based) as Telegram HTML.
func FormatQuestion(q Question, step, total int) string {
	s := fmt.Sprintf("<b>Вопрос %d из %d</b>\n\n%s", step, total, html.EscapeString(q.Text))
	if q.Variants != "" {
		s += "\n\n(" + html.EscapeString(q.Variants) + ")"
	}
	return s + "\n\nНапишите ответ в чат и нажмите Enter."
}
