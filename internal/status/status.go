package status

import (
	"log/slog"
	"strings"
)

// Канонические статусы заявки. Порядок в progression фиксированный,
// cancelled стоит особняком (достижим из любого нетерминального).
const (
	Pending    = "pending"
	Assigned   = "assigned"
	Accepted   = "accepted"
	OnWay      = "on_way"
	InProgress = "in_progress"
	Completed  = "completed"
	Cancelled  = "cancelled"
)

var progression = []string{Pending, Assigned, Accepted, OnWay, InProgress, Completed}

// aliases — формы, которые бэкенд исторически присылает вместо канонических.
var aliases = map[string]string{
	"in-progress": InProgress,
	"on-way":      OnWay,
	"on_the_way":  OnWay,
}

var labels = map[string]string{
	Assigned:   "Mark Assigned",
	Accepted:   "Mark Accepted",
	OnWay:      "Mark On The Way",
	InProgress: "Mark In Progress",
	Completed:  "Mark Completed",
}

// Canonical резолвит алиасы и возвращает канонический статус.
// ok=false для значений вне словаря — фоллбэк решает вызывающий.
func Canonical(raw string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if a, ok := aliases[s]; ok {
		return a, true
	}
	if isKnown(s) {
		return s, true
	}
	return "", false
}

// Normalize приводит сырой статус к каноническому виду.
// Неизвестное значение не роняет клиента: откатываемся на pending,
// но пишем warning как сигнал о рассинхронизации схемы.
func Normalize(raw string) string {
	if s, ok := Canonical(raw); ok {
		return s
	}
	if strings.TrimSpace(raw) != "" {
		slog.Warn("unrecognized request status, falling back to pending", "status", raw)
	}
	return Pending
}

func isKnown(s string) bool {
	if s == Cancelled {
		return true
	}
	for _, p := range progression {
		if p == s {
			return true
		}
	}
	return false
}

// Next возвращает следующий шаг прогрессии или "" для терминальных
// и неизвестных статусов (cancelled всегда даёт "").
func Next(current string) string {
	cur := Normalize(current)
	for i, p := range progression {
		if p == cur && i+1 < len(progression) {
			return progression[i+1]
		}
	}
	return ""
}

// NextLabel — подпись для кнопки перехода ("Mark Assigned" и т.п.).
// Пустая строка, если перехода нет.
func NextLabel(current string) string {
	return labels[Next(current)]
}

func IsTerminal(s string) bool {
	n := Normalize(s)
	return n == Completed || n == Cancelled
}

// CanTransition проверяет, что target — легальный следующий шаг
// либо cancelled. Терминальный current не пропускает ничего.
func CanTransition(current, target string) bool {
	if IsTerminal(current) {
		return false
	}
	t := Normalize(target)
	if t == Cancelled {
		return true
	}
	return t == Next(current)
}
