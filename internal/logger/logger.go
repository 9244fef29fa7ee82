package logger

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// Log глобальный логгер приложения. До вызова Init пишет в stderr с уровнем info.
var Log = logrus.New()

// Init настраивает глобальный логгер: уровень из конфигурации,
// текстовый формат в development и JSON во всех остальных окружениях.
func Init(level, env string) {
	Log = New(level, env)
}

// New создаёт отдельный экземпляр логгера с теми же правилами, что и Init.
func New(level, env string) *logrus.Logger {
	l := logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	if env == "development" {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{})
	}

	return l
}

// Silence отключает вывод глобального логгера (используется в тестах).
func Silence() {
	Log.SetOutput(io.Discard)
}

// MaskIdentifier скрывает большую часть email или телефона перед записью в лог.
// "alice@example.com" -> "a***@example.com", "+79991234567" -> "***4567".
func MaskIdentifier(identifier string) string {
	if at := strings.LastIndex(identifier, "@"); at > 0 {
		return identifier[:1] + "***" + identifier[at:]
	}
	if len(identifier) <= 4 {
		return "***"
	}
	return "***" + identifier[len(identifier)-4:]
}
