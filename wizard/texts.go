package wizard

// User-visible wizard replies. Kept in Ukrainian to match the audience the
// bot serves.
const (
	TextNotAdmin      = "Вибачте, ця команда доступна тільки для адміністраторів."
	TextChooseAction  = "Оберіть дію:"
	TextChooseSubject = "Оберіть користувача:"
	TextNoSubjects    = "Користувачів поки не знайдено."
	TextCancelled     = "Скасовано."
	TextInvalidInput  = "Невірне значення, спробуйте ще раз."
	TextTryAgain      = "Щось пішло не так, спробуйте ще раз."
	TextFailure       = "Сталася помилка. Почніть спочатку командою /a."

	btnCredit = "➕ Нарахувати"
	btnDebit  = "➖ Зняти"
	btnFinish = "🏁 Завершити"
	btnWipe   = "🧹 Прибрати"
)
