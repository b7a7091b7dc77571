package bot

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

// mainKeyboard is the persistent reply keyboard; button texts are plain
// commands the engine understands.
func mainKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("New"),
			tgbotapi.NewKeyboardButton("Status"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("History"),
			tgbotapi.NewKeyboardButton("Help"),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func withKeyboard(msg tgbotapi.MessageConfig) tgbotapi.MessageConfig {
	msg.ReplyMarkup = mainKeyboard()
	return msg
}
