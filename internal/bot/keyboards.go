package bot

import "github.com/go-telegram/bot/models"

const (
	callbackMenu        = "menu"
	callbackHistory     = "menu_history"
	callbackBatch       = "menu_batch"
	callbackHelp        = "menu_help"
	callbackBatchDone   = "batch_done"
	callbackBatchCancel = "batch_cancel"
)

func getMenuKeyboard() [][]models.InlineKeyboardButton {
	return [][]models.InlineKeyboardButton{
		{
			{Text: "📚 Batch of PDFs", CallbackData: callbackBatch},
			{Text: "📜 History", CallbackData: callbackHistory},
		},
		{
			{Text: "❔ Help", CallbackData: callbackHelp},
		},
	}
}

func getBatchKeyboard() [][]models.InlineKeyboardButton {
	return [][]models.InlineKeyboardButton{
		{
			{Text: "✅ Analyze batch", CallbackData: callbackBatchDone},
			{Text: "✖️ Cancel", CallbackData: callbackBatchCancel},
		},
	}
}

func getReturnKeyboard() [][]models.InlineKeyboardButton {
	return [][]models.InlineKeyboardButton{
		{{Text: "⬅️ Return to menu", CallbackData: callbackMenu}},
	}
}
