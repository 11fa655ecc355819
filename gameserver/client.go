// Package gameserver инкапсулирует работу с удалёнными dedicated-серверами:
// отправка команд по RCON и разбор текстовых ответов.
package gameserver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorcon/rcon"

	"github.com/scrimline/tournament-engine/models"
)

// ErrServerOffline: сервер не ответил в отведённый таймаут.
var ErrServerOffline = errors.New("game server is offline")

// Client - способность "отправить команду, получить текстовый ответ".
type Client interface {
	SendCommand(ctx context.Context, server *models.Server, command string) (string, error)
}

type rconClient struct {
	timeout time.Duration
}

func NewRCONClient(timeout time.Duration) Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &rconClient{timeout: timeout}
}

// SendCommand открывает RCON-соединение с таймаутом и выполняет команду.
// Не отвечающий сервер трактуется как offline, а не как зависание.
func (c *rconClient) SendCommand(ctx context.Context, server *models.Server, command string) (string, error) {
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return "", fmt.Errorf("%w: no time left to reach %s", ErrServerOffline, server.Address)
	}

	type result struct {
		response string
		err      error
	}
	done := make(chan result, 1)

	go func() {
		conn, err := rcon.Dial(server.Address, server.RconPassword,
			rcon.SetDialTimeout(timeout),
			rcon.SetDeadline(timeout),
		)
		if err != nil {
			done <- result{err: fmt.Errorf("%w: dial %s: %v", ErrServerOffline, server.Address, err)}
			return
		}
		defer conn.Close()

		response, err := conn.Execute(command)
		if err != nil {
			done <- result{err: fmt.Errorf("%w: execute on %s: %v", ErrServerOffline, server.Address, err)}
			return
		}
		done <- result{response: response}
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %v", ErrServerOffline, ctx.Err())
	case r := <-done:
		return r.response, r.err
	}
}
