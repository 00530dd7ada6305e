package bot

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

const (
	cbAddNotes    = "add_notes"
	cbConfirmNote = "confirm_note"
	cbEditNote    = "edit_note"

	btnConnect  = "Connect to Asana 🔑"
	btnOAuth    = "OAuth Link"
	btnAddNotes = "Add notes ✍"
	btnSave     = "Save 💾"
	btnRewrite  = "Re-write ✍"
)

const (
	textStart = "<b>Привет!</b>\n\n" +
		"Бот организует связь с Асаной для получения данных по запланированным задачам.\n\n" +
		"<b>Авторизация</b>\n" +
		"Для начала работы авторизуйте свой аккаунт в Асане через кнопку Connect to Asana ниже или с помощью команды /connect. " +
		"Все доступные команды бота находятся в Menu внизу и здесь, в стартовом сообщении.\n\n" +
		"<b>Команды</b>\n" +
		"/start - вернуться к стартовому сообщению\n" +
		"/connect - авторизоваться в Асане\n" +
		"/mytasks - посмотреть свои задачи на день\n" +
		"/report - получить отчет по плану на день для всех\n" +
		"/pm_report, /ba_report, /av_report - отчеты по группам"

	textConnect = "Перейдите по ссылке для авторизации:"

	textNotePrompt   = "Пожалуйста, напишите вашу заметку к плану задач на сегодня ответом на это сообщение"
	textNoteConfirm  = "Ваша заметка:\n\n<b>%s</b>\n\nПодтвердите сохранение или перепишите заметку"
	textNoteSaved    = "<code>Заметка сохранена успешно</code>"
	textNoteFailed   = "<code>Возникла пробема с сохранением заметки. Пожалуйста, повторите процесс</code>"
	textNoteRewrite  = "Напишите обновленную заметку"
	textNoteStale    = "To add notes use '/mytasks' command -> 'Add notes' button"
	textButtonStale  = "Use command '/mytasks' again"
	textNotConnected = "Your Asana account is not connected yet, use /connect"
	textNoToken      = "No permanent Asana token is on file for you yet"
	textTryLater     = "Asana is not answering right now, please try again later"
	textFailed       = "Something went wrong, please try again later"
	textReportFailed = "Failed to build the report, please try again later"
	textChatID       = "Chat ID: <code>%d</code>"
)

var commands = []tgbotapi.BotCommand{
	{Command: "start", Description: "go to start message"},
	{Command: "connect", Description: "connect to Asana"},
	{Command: "mytasks", Description: "get list of tasks for today"},
	{Command: "report", Description: "get report on tasks for all users"},
	{Command: "pm_report", Description: "get report for PM group"},
	{Command: "ba_report", Description: "get report for BA group"},
	{Command: "av_report", Description: "get report for AV group"},
	{Command: "chatid", Description: "show the id of this chat"},
}

var (
	addNotesKB = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnAddNotes, cbAddNotes)),
	)
	confirmNoteKB = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(btnSave, cbConfirmNote),
			tgbotapi.NewInlineKeyboardButtonData(btnRewrite, cbEditNote),
		),
	)
)

func linkKB(text, url string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL(text, url)),
	)
}
