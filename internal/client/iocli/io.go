package iocli

// IO абстрагирует терминальный ввод/вывод команд
type IO interface {
	Println(a ...any)
	Printf(format string, a ...any)
	ReadInput(prompt string) (string, error)
}
