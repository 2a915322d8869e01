package app

import (
	"fmt"

	tele "gopkg.in/telebot.v4"

	coretelegram "github.com/anpruch/clubbot/core/telegram"
	"github.com/anpruch/clubbot/core/telegram/commands"
	tghelpers "github.com/anpruch/clubbot/core/telegram/helpers"
)

func (a *App) registerCommands(reg *coretelegram.Registry, t *Transport) {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     t.Command("start"),
		Description: "Начать знакомство с клубами",
		Aliases:     []string{"menu"},
	})
	reg.RegisterCommand("/help", commands.Command{
		Handler:     t.Command("help"),
		Description: "Инструкция по использованию",
	})
	reg.RegisterCommand("/find", commands.Command{
		Handler:     t.Command("find"),
		Description: "Найти клуб по названию",
		Aliases:     []string{"search"},
	})
	reg.RegisterCommand("/stats", commands.Command{
		Handler:     a.handleStats,
		Description: "Статистика бота",
		AdminOnly:   true,
		Hidden:      true,
	})
}

func (a *App) rejectNonAdmin(c tele.Context) error {
	return tghelpers.SendText(c, a.msgs.AdminOnly)
}

func (a *App) handleStats(c tele.Context) error {
	return tghelpers.SendText(c, FormatStats(a.Stats()))
}

// FormatStats renders the admin statistics message.
func FormatStats(s Stats) string {
	return fmt.Sprintf(
		"Категорий: %d\nКлубов: %d\nВопросов FAQ: %d\n\nОбновлений: %d (сообщений %d, нажатий %d)\nОшибок обработки: %d\nОтправлено: %d, ошибок отправки: %d\nUptime: %s",
		s.Categories, s.Clubs, s.FAQ,
		s.Updates.Updates, s.Updates.Messages, s.Updates.Callbacks,
		s.Updates.Failures,
		s.Sent, s.SendErrors,
		s.Uptime,
	)
}
