package gameserver

import (
	"fmt"
	"strings"
)

// Ответы source-серверов на запрос cvar следуют текстовой конвенции
//
//	"tm_status" = "live" ( def. "" )
//
// ParseCvar извлекает имя и значение из одной такой строки.
func ParseCvar(line string) (name, value string, err error) {
	parts := strings.SplitN(line, "=", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("malformed cvar line %q", line)
	}

	name = unquote(parts[0])
	if name == "" {
		return "", "", fmt.Errorf("malformed cvar line %q: empty name", line)
	}

	rest := strings.TrimSpace(parts[1])
	// Отрезаем примечание про значение по умолчанию, если оно есть.
	if i := strings.Index(rest, " ( def."); i >= 0 {
		rest = rest[:i]
	}
	value = unquote(rest)
	return name, value, nil
}

// ParseCvars разбирает многострочный ответ, пропуская строки без cvar-ов.
func ParseCvars(response string) map[string]string {
	cvars := make(map[string]string)
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.Contains(line, "=") {
			continue
		}
		name, value, err := ParseCvar(line)
		if err != nil {
			continue
		}
		cvars[name] = value
	}
	return cvars
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	return s
}
