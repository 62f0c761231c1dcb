package bot

const (
	textHelp = `Бот рахує бали учасників чату.

/a — відкрити меню нарахування (для адміністраторів)
/top — показати рейтинг чату
/allclear (/ac) — скинути всі бали (для адміністраторів)
/cancel — скасувати поточну сесію`

	textTopEmpty     = "Рейтинг поки порожній."
	textTopHeader    = "🏆 *Рейтинг чату:*"
	textAllCleared   = "Всі бали скинуто."
	textStoreFailure = "Щось пішло не так, спробуйте ще раз."
)
