// Утилита для генерации bcrypt-хэша пароля оператора.
// Результат подставляется в переменную окружения OPERATOR_PASSWORD_HASH.
package main

import (
	"fmt"
	"os"

	"github.com/scrimline/tournament-engine/utils"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: hashpass <password>")
		os.Exit(1)
	}

	hash, err := utils.HashPassword(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to hash password: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}
