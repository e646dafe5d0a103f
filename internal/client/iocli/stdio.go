package iocli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Stdio реализует IO поверх произвольных потоков
// По умолчанию это os.Stdin/os.Stdout
type Stdio struct {
	in     *bufio.Reader
	out    io.Writer
	inFd   int
	hasTTY bool
}

func NewStdio() IO {
	return &Stdio{
		in:     bufio.NewReader(os.Stdin),
		out:    os.Stdout,
		inFd:   int(os.Stdin.Fd()),
		hasTTY: term.IsTerminal(int(os.Stdin.Fd())),
	}
}

// NewIO создает IO поверх заданных потоков; используется в тестах
func NewIO(in io.Reader, out io.Writer) IO {
	return &Stdio{in: bufio.NewReader(in), out: out}
}

func (s *Stdio) Println(a ...any) {
	_, _ = fmt.Fprintln(s.out, a...)
}

func (s *Stdio) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(s.out, format, a...)
}

func (s *Stdio) ReadInput(prompt string) (string, error) {
	s.Printf("%s", prompt)
	input, err := s.in.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// ReadPassword скрывает ввод, когда stdin - терминал;
// иначе (пайп, тест) читает обычную строку
func (s *Stdio) ReadPassword(prompt string) (string, error) {
	if !s.hasTTY {
		return s.ReadInput(prompt)
	}

	s.Printf("%s", prompt)
	pwBytes, err := term.ReadPassword(s.inFd)
	s.Println("")
	if err != nil {
		return "", err
	}
	return string(pwBytes), nil
}

// Confirm задает вопрос да/нет; подтверждением считается y/yes
func (s *Stdio) Confirm(prompt string) (bool, error) {
	answer, err := s.ReadInput(prompt + " [y/N]: ")
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes", nil
}

func (s *Stdio) Write(p []byte) (n int, err error) {
	return s.out.Write(p)
}
